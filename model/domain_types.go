package model

import (
	"path/filepath"
	"strings"
)

// SourceFile はアップロードされた注文書1件です。
type SourceFile struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"-"`
}

// Ext は小文字の拡張子を返します (".pdf" など)。
func (f SourceFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Size はファイルのバイト数です。
func (f SourceFile) Size() int {
	return len(f.Data)
}
