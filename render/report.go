// Package render は注文データから印刷用レポート（集計ページと生産伝票）を組み立てます。
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"bakeslip/aggregation"
	"bakeslip/model"
)

const (
	// StockRoute はこのルート名の注文を生産対象から外します。
	StockRoute = "IN STOCK"
	// NoPrimaryProduct は有効な注文がないときの主製品表示です。
	NoPrimaryProduct = "N/A"
	// TimeLayout は集計ページに載せる生成時刻の書式です（例: 02:30 pm）。
	TimeLayout = "03:04 pm"
)

// SummaryRow は集計表の1行です。
type SummaryRow struct {
	model.Order
	Excluded bool
}

// Summary は集計ページの内容です。
type Summary struct {
	IssueDate      string
	Time           string
	PrimaryProduct string
	Rows           []SummaryRow
	TotalTrays     int
}

// Report は1回の印刷・出力分の文書です。
type Report struct {
	CompanyName string
	SliceMode   model.SliceMode
	Summary     Summary
	Slips       []model.PageOrder
}

// PageCount は集計ページを含めた総ページ数です。
func (r Report) PageCount() int {
	return 1 + len(r.Slips)
}

// IsStockRoute はルート名が在庫扱いかどうかを判定します。
func IsStockRoute(route string) bool {
	return strings.ToUpper(strings.TrimSpace(route)) == StockRoute
}

// IsExcludedFromProduction は生産しない注文かどうかを判定します。
func IsExcludedFromProduction(o model.Order) bool {
	return o.InStock || IsStockRoute(o.Route)
}

// ValidOrders はトレイ数が負の注文を除いた一覧を返します。
func ValidOrders(orders []model.Order) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Trays >= 0 {
			out = append(out, o)
		}
	}
	return out
}

// PrimaryProduct は最も多く現れる製品名を返します。
// 同数の場合は先に現れた製品を採用します。
func PrimaryProduct(orders []model.Order) string {
	if len(orders) == 0 {
		return NoPrimaryProduct
	}
	counts := make(map[string]int)
	var order []string
	for _, o := range orders {
		if _, seen := counts[o.Product]; !seen {
			order = append(order, o.Product)
		}
		counts[o.Product]++
	}
	best := order[0]
	for _, p := range order[1:] {
		if counts[p] > counts[best] {
			best = p
		}
	}
	return best
}

// BuildReport は注文データから集計ページと生産伝票を作ります。
// 元の data は変更しません。
func BuildReport(data model.OrderData, mode model.SliceMode, now time.Time) Report {
	valid := ValidOrders(data.Orders)
	return Report{
		SliceMode: mode,
		Summary:   buildSummary(data.IssueDate, valid, now),
		Slips:     Paginate(data.Orders, mode.Capacity()),
	}
}

func buildSummary(issueDate string, valid []model.Order, now time.Time) Summary {
	rows := make([]SummaryRow, len(valid))
	total := 0
	for i, o := range valid {
		excluded := IsExcludedFromProduction(o)
		rows[i] = SummaryRow{Order: o, Excluded: excluded}
		if !excluded {
			total += o.Trays
		}
	}

	cmp := aggregation.CompareRoutes
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := IsStockRoute(rows[i].Route), IsStockRoute(rows[j].Route)
		if a != b {
			return b
		}
		return cmp(rows[i].Route, rows[j].Route) < 0
	})

	return Summary{
		IssueDate:      issueDate,
		Time:           now.Format(TimeLayout),
		PrimaryProduct: PrimaryProduct(valid),
		Rows:           rows,
		TotalTrays:     total,
	}
}

// Paginate は生産対象の注文を capacity トレイ以下のページに分割します。
// PageKey は元の並びでの位置とページ番号から作ります。
func Paginate(orders []model.Order, capacity int) []model.PageOrder {
	if capacity <= 0 {
		capacity = model.SliceDouble.Capacity()
	}
	var pages []model.PageOrder
	for idx, o := range orders {
		if IsExcludedFromProduction(o) || o.Trays <= 0 {
			continue
		}
		totalPages := (o.Trays + capacity - 1) / capacity
		remaining := o.Trays
		for page := 1; remaining > 0; page++ {
			n := min(remaining, capacity)
			slip := o
			slip.Trays = n
			pages = append(pages, model.PageOrder{
				Order:      slip,
				PageKey:    fmt.Sprintf("%d-%d", idx, page),
				PageNumber: page,
				TotalPages: totalPages,
			})
			remaining -= n
		}
	}
	return pages
}
