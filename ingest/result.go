package ingest

import (
	"errors"
	"fmt"
	"strings"

	"bakeslip/extraction"
	"bakeslip/model"

	"go.uber.org/multierr"
)

var (
	// ErrNoFiles はファイルなしで呼び出されたことを示します。
	ErrNoFiles = errors.New("no files to process")
	// ErrNoDataExtracted は全ファイルが成功したのに注文が1件もなかったことを示します。
	ErrNoDataExtracted = errors.New("Could not extract any order data from the provided documents.")
)

// FileOutcome は1ファイル分の結果です。Err が nil なら成功です。
type FileOutcome struct {
	Name      string
	MediaType string
	Data      model.OrderData
	Err       error
}

// Status は journal に記録する状態を返します。
func (o FileOutcome) Status() string {
	switch {
	case o.Err != nil:
		return model.FileStatusFailed
	case len(o.Data.Orders) == 0:
		return model.FileStatusEmpty
	default:
		return model.FileStatusSucceeded
	}
}

// Message はユーザー向けのエラー行です。成功なら空文字です。
func (o FileOutcome) Message() string {
	if o.Err == nil {
		return ""
	}
	return fmt.Sprintf("Error with %s: %s", o.Name, extraction.Reason(o.Err))
}

// BatchResult はバッチ全体の結果です。マージ済みデータとファイルごとのエラーを両方持ちます。
type BatchResult struct {
	ID       string
	Data     model.OrderData
	Outcomes []FileOutcome
	Errors   []string
}

// HasData は1件以上の注文を得られたかどうかです。
func (r BatchResult) HasData() bool {
	return len(r.Data.Orders) > 0
}

// NoData は全ファイルが成功したが注文が得られなかった状態です。
func (r BatchResult) NoData() bool {
	return !r.HasData() && len(r.Errors) == 0
}

// Failed は失敗したファイルの数です。
func (r BatchResult) Failed() int {
	return len(r.Errors)
}

// Err はファイルごとのエラーをまとめて返します。
// 注文が得られず失敗もない場合は ErrNoDataExtracted を返します。
func (r BatchResult) Err() error {
	if r.NoData() {
		return ErrNoDataExtracted
	}
	var err error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return err
}

// ErrorMessage は画面に表示するエラー文を改行区切りで返します。
func (r BatchResult) ErrorMessage() string {
	if r.NoData() {
		return ErrNoDataExtracted.Error()
	}
	return strings.Join(r.Errors, "\n")
}
