package render

import "unicode/utf8"

// 製品名の長さに応じた文字サイズの段階です。
var productFontTiers = []struct {
	maxLen int
	size   string
}{
	{18, "3rem"},
	{22, "2.25rem"},
	{28, "1.875rem"},
	{35, "1.5rem"},
	{45, "1.25rem"},
}

const (
	smallestProductFont = "1.125rem"
	routeFont           = "4.5rem"
)

// ProductFontSize は製品名の文字数から伝票上の文字サイズを返します。
func ProductFontSize(name string) string {
	n := utf8.RuneCountInString(name)
	for _, t := range productFontTiers {
		if n <= t.maxLen {
			return t.size
		}
	}
	return smallestProductFont
}

// RouteFontSize はルート名の文字サイズです。長い名前は折り返します。
func RouteFontSize(string) string {
	return routeFont
}
