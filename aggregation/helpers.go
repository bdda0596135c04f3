package aggregation

import (
	"sort"
	"strings"

	"bakeslip/model"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// OrderKey は集約に使うキーです。前後の空白と大文字小文字を無視します。
func OrderKey(o model.Order) string {
	return strings.ToLower(strings.TrimSpace(o.Route)) + "-" + strings.ToLower(strings.TrimSpace(o.Product))
}

// newCollator は英語ロケールの照合器を作ります。
// collate.Collator は並行利用できないので呼び出しごとに生成します。
func newCollator() *collate.Collator {
	return collate.New(language.English)
}

// CompareRoutes はロケールを考慮してルート名を比較します。
func CompareRoutes(a, b string) int {
	return newCollator().CompareString(a, b)
}

// SortByRoute はルート名の昇順に並べ替えます (安定ソート)。
func SortByRoute(orders []model.Order) {
	c := newCollator()
	sort.SliceStable(orders, func(i, j int) bool {
		return c.CompareString(orders[i].Route, orders[j].Route) < 0
	})
}

// UniqueProducts は製品名を出現順に重複なく返します。
func UniqueProducts(orders []model.Order) []string {
	seen := make(map[string]bool, len(orders))
	var products []string
	for _, o := range orders {
		if seen[o.Product] {
			continue
		}
		seen[o.Product] = true
		products = append(products, o.Product)
	}
	return products
}
