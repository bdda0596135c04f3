package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ToUTF8 は UTF-8 として不正なデータを Windows-1252 とみなして変換します。
// Excel が書き出す CSV はこの文字コードのことがあります。
func ToUTF8(r io.Reader) (io.Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if utf8.Valid(b) {
		return bytes.NewReader(b), nil
	}
	return transform.NewReader(bytes.NewReader(b), charmap.Windows1252.NewDecoder()), nil
}

// SkipBOM はUTF-8 BOMをスキップします。
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	bom := []byte{0xEF, 0xBB, 0xBF}
	peeked, err := br.Peek(3)
	if err != nil {
		return br
	}
	isBOM := true
	for i, b := range bom {
		if peeked[i] != b {
			isBOM = false
			break
		}
	}
	if isBOM {
		br.Read(make([]byte, 3))
	}
	return br
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.Join(strings.Fields(header), " "))
}

// getColIndex はヘッダー行から列インデックスを取得します。
// aliases のキーが論理名、値が受け付けるヘッダー表記です。
func getColIndex(header []string, aliases map[string][]string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, colName := range header {
		name := normalizeHeader(colName)
		if _, exists := byName[name]; !exists {
			byName[name] = i
		}
	}

	colIndex := make(map[string]int, len(aliases))
	for logical, names := range aliases {
		for _, n := range names {
			if idx, ok := byName[n]; ok {
				colIndex[logical] = idx
				break
			}
		}
		if _, ok := colIndex[logical]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoOrderHeader, logical)
		}
	}
	return colIndex, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
