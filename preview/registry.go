// Package preview はキューに入ったファイルのプレビュー資源を管理します。
// 取得したハンドルはちょうど1回だけ解放されます。
package preview

import (
	"errors"
	"strings"
	"sync"

	"bakeslip/imaging"
	"bakeslip/model"

	"github.com/google/uuid"
)

// ThumbnailDim はサムネイルの長辺です。
const ThumbnailDim = 320

var (
	// ErrReleased は解放済みハンドルへの操作です。
	ErrReleased = errors.New("preview already released")
	// ErrUnknownHandle は発行していないハンドルです。
	ErrUnknownHandle = errors.New("unknown preview handle")
)

// Handle はプレビュー資源の識別子です。
type Handle string

// Preview はファイル1件分のプレビューです。
// 画像なら PNG サムネイル、それ以外は種類を示すラベルだけを持ちます。
type Preview struct {
	Handle    Handle `json:"handle"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Label     string `json:"label"`
	Thumbnail []byte `json:"-"`
}

// HasThumbnail はサムネイル画像があるかどうかです。
func (p Preview) HasThumbnail() bool {
	return len(p.Thumbnail) > 0
}

// Registry はプレビューの発行と解放を管理します。
// 解放済みハンドルの記録は持たず、発行形式のハンドルで保持していないものは解放済みとみなします。
type Registry struct {
	mu    sync.Mutex
	items map[Handle]Preview
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[Handle]Preview)}
}

// missing は保持していないハンドルのエラーです。
func missing(h Handle) error {
	if uuid.Validate(string(h)) != nil {
		return ErrUnknownHandle
	}
	return ErrReleased
}

// Acquire はファイルのプレビューを作成し、ハンドルを返します。
// サムネイルが作れない画像は種類ラベルだけのプレビューになります。
func (r *Registry) Acquire(file model.SourceFile) Handle {
	p := Preview{
		Handle:    Handle(uuid.NewString()),
		Name:      file.Name,
		MediaType: file.MediaType,
		Label:     label(file),
	}
	if imaging.IsImage(file.MediaType) {
		if thumb, err := imaging.Thumbnail(file.Data, ThumbnailDim); err == nil {
			p.Thumbnail = thumb
		}
	}

	r.mu.Lock()
	r.items[p.Handle] = p
	r.mu.Unlock()
	return p.Handle
}

// Get はハンドルのプレビューを返します。
func (r *Registry) Get(h Handle) (Preview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.items[h]; ok {
		return p, nil
	}
	return Preview{}, missing(h)
}

// Release はプレビューを解放します。2回目以降は ErrReleased です。
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[h]; !ok {
		return missing(h)
	}
	delete(r.items, h)
	return nil
}

// ReleaseAll は渡されたハンドルをすべて解放し、最初のエラーを返します。
func (r *Registry) ReleaseAll(handles []Handle) error {
	var first error
	for _, h := range handles {
		if err := r.Release(h); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Len は保持中のプレビュー数です。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func label(file model.SourceFile) string {
	if ext := strings.TrimPrefix(file.Ext(), "."); ext != "" {
		return strings.ToUpper(ext)
	}
	if i := strings.IndexByte(file.MediaType, '/'); i >= 0 {
		return strings.ToUpper(file.MediaType[i+1:])
	}
	return "FILE"
}
