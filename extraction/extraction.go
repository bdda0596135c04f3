// Package extraction は注文書ファイルから構造化データを取り出す外部サービスとの境界です。
package extraction

import (
	"context"
	"errors"
	"fmt"

	"bakeslip/model"
)

var (
	// ErrUnsupportedFormat はリクエストを送る前に拒否されるファイル形式です。
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyResponse はサービスが空の応答を返したことを示します。
	ErrEmptyResponse = errors.New("API returned an empty response")
	// ErrMalformedResponse は応答が期待するスキーマに合わないことを示します。
	ErrMalformedResponse = errors.New("Failed to parse the data from the AI. Please try again with a clearer document.")
)

// fallbackReason は理由を持たない失敗に使う文言です。
const fallbackReason = "please check the server log"

// Extractor は1ファイル分の抽出を行います。
type Extractor interface {
	Extract(ctx context.Context, file model.SourceFile) (model.OrderData, error)
}

// ExtractorFunc は関数を Extractor として使うためのアダプタです。
type ExtractorFunc func(ctx context.Context, file model.SourceFile) (model.OrderData, error)

func (f ExtractorFunc) Extract(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
	return f(ctx, file)
}

// ExtractionError はリモートサービス呼び出しの失敗です。
type ExtractionError struct {
	File   string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Reason == "" {
		return fallbackReason
	}
	return e.Reason
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// MalformedResponseError は応答がスキーマに合わなかった理由を持ちます。
// Error は ErrMalformedResponse の文言だけを返し、Detail はログ用です。
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return ErrMalformedResponse.Error()
}

func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func malformed(format string, args ...any) error {
	return &MalformedResponseError{Detail: fmt.Sprintf(format, args...)}
}

// Reason はユーザーに見せる失敗理由を返します。
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackReason
}

// CheckSupported はサービスに送れないファイルを事前に弾きます。
func CheckSupported(file model.SourceFile) error {
	if file.Ext() == ".accdb" {
		return fmt.Errorf("%w: Microsoft Access (.accdb) files are not supported for analysis", ErrUnsupportedFormat)
	}
	return nil
}
