package parsers

import (
	"regexp"
	"strings"
)

var (
	leadingCodeRe  = regexp.MustCompile(`^[A-Z0-9]+\s`)
	trailingTrayRe = regexp.MustCompile(`(?i)\s*Tray\s*\d*$`)
)

// CleanProductName は抽出された製品名から先頭の品番 (例: "B441 ") と
// 末尾の "Tray 60" を取り除きます。
func CleanProductName(productName string) string {
	if productName == "" {
		return ""
	}
	cleaned := leadingCodeRe.ReplaceAllString(productName, "")
	cleaned = trailingTrayRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
