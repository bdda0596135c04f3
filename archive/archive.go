// Package archive はアップロードされた元ファイルを xz 圧縮して保管します。
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"bakeslip/model"

	"github.com/ulikunitz/xz"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store は日付ごとのフォルダに元ファイルを保存します。
type Store struct {
	root string
}

// NewStore は root を保存先とする Store を返します。
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Archive は file を <root>/<yyyymmdd>/<hhmmss>_<name>.xz に保存し、そのパスを返します。
// 同名のファイルが既にある場合は保存済みとみなし、空のパスを返します。
func (s *Store) Archive(file model.SourceFile, at time.Time) (string, error) {
	dir := filepath.Join(s.root, at.Format("20060102"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive folder: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xz", at.Format("150405"), safeName(file.Name)))
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	if err := compress(f, file.Data); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}
	return path, nil
}

func compress(f *os.File, data []byte) error {
	w, err := xz.NewWriter(f)
	if err != nil {
		return fmt.Errorf("failed to start xz stream: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to compress file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish xz stream: %w", err)
	}
	return nil
}

// Open は保存済みファイルを展開して返します。
func Open(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read xz stream: %w", err)
	}
	return io.ReadAll(r)
}

func safeName(name string) string {
	base := filepath.Base(name)
	cleaned := strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")
	if cleaned == "" || cleaned == "." {
		return "upload"
	}
	return cleaned
}
