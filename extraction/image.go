package extraction

import (
	"context"

	"bakeslip/imaging"
	"bakeslip/model"
)

// DefaultMaxImageDim はサービスに送る画像の長辺の上限です。
const DefaultMaxImageDim = 3072

// ImagePreprocessor は webp や大きな写真をPNGに変換・縮小してから next に渡します。
type ImagePreprocessor struct {
	next   Extractor
	maxDim int
}

// NewImagePreprocessor は maxDim が0以下なら DefaultMaxImageDim を使います。
func NewImagePreprocessor(next Extractor, maxDim int) *ImagePreprocessor {
	if maxDim <= 0 {
		maxDim = DefaultMaxImageDim
	}
	return &ImagePreprocessor{next: next, maxDim: maxDim}
}

func (p *ImagePreprocessor) Extract(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
	return p.next.Extract(ctx, p.prepare(file))
}

// prepare はデコードできない画像をそのまま返し、判断をサービスに任せます。
func (p *ImagePreprocessor) prepare(file model.SourceFile) model.SourceFile {
	if !imaging.IsImage(file.MediaType) {
		return file
	}
	img, err := imaging.Decode(file.Data)
	if err != nil {
		return file
	}
	bounds := img.Bounds()
	oversized := bounds.Dx() > p.maxDim || bounds.Dy() > p.maxDim
	if !oversized && file.MediaType != "image/webp" {
		return file
	}
	encoded, err := imaging.EncodePNG(imaging.Downscale(img, p.maxDim))
	if err != nil {
		return file
	}
	return model.SourceFile{Name: file.Name, MediaType: "image/png", Data: encoded}
}
