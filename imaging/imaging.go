// Package imaging は写真・スキャン画像のデコードと縮小を扱います。
package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage は画像としてデコードできないデータです。
var ErrUnsupportedImage = errors.New("unsupported image data")

// IsImage はメディアタイプが画像かどうかを返します。
func IsImage(mediaType string) bool {
	switch mediaType {
	case "image/png", "image/jpeg", "image/webp", "image/gif":
		return true
	}
	return false
}

// DetectMediaType はデータ先頭からメディアタイプを推定します。
// http.DetectContentType が判別できない webp も扱います。
func DetectMediaType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	return http.DetectContentType(data)
}

// Decode は png/jpeg/gif/webp をデコードします。
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if decoded, decodeErr := webp.Decode(bytes.NewReader(data)); decodeErr == nil {
		return decoded, nil
	}
	return nil, ErrUnsupportedImage
}

// Downscale は長辺が maxDim を超える画像を縮小します。小さい画像はそのまま返します。
func Downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxDim <= 0 || (width <= maxDim && height <= maxDim) {
		return img
	}

	var newW, newH int
	if width >= height {
		newW = maxDim
		newH = height * maxDim / width
	} else {
		newH = maxDim
		newW = width * maxDim / height
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// EncodePNG は画像をPNGにエンコードします。
func EncodePNG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Thumbnail はプレビュー用の縮小PNGを作ります。
func Thumbnail(data []byte, maxDim int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(Downscale(img, maxDim))
}
