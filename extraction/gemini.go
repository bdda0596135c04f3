package extraction

import (
	"context"
	"errors"
	"fmt"

	"bakeslip/model"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiExtractor は Gemini API を使って注文書を解析します。
type GeminiExtractor struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiExtractor は Gemini クライアントを作成します。
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiExtractor{
		client: client,
		model:  modelName,
		logger: logger,
	}, nil
}

// Extract は1ファイルを Gemini に送り、応答をスキーマ検証して返します。
// 再試行やタイムアウトは行いません。失敗はそのファイルについて確定です。
func (g *GeminiExtractor) Extract(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
	if err := CheckSupported(file); err != nil {
		return model.OrderData{}, err
	}

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(file.Data, mediaType),
			genai.NewPartFromText(extractionPrompt),
		}, genai.RoleUser),
	}

	g.logger.Debug("sending document to Gemini",
		zap.String("file", file.Name),
		zap.String("media_type", mediaType),
		zap.Int("bytes", file.Size()),
		zap.String("model", g.model),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return model.OrderData{}, &ExtractionError{File: file.Name, Reason: err.Error(), Err: err}
	}

	text := resp.Text()
	data, err := DecodeResponse(text)
	if err != nil {
		fields := []zap.Field{
			zap.String("file", file.Name),
			zap.String("response", text),
			zap.Error(err),
		}
		var bad *MalformedResponseError
		if errors.As(err, &bad) {
			fields = append(fields, zap.String("detail", bad.Detail))
		}
		g.logger.Warn("failed to decode Gemini response", fields...)
		return model.OrderData{}, err
	}
	return data, nil
}

// Model は使用中のモデル名です。
func (g *GeminiExtractor) Model() string {
	return g.model
}
