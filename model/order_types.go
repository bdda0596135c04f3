package model

import (
	"fmt"
	"strings"
)

// Order は1つのルート・製品・トレイ数の組を表します。
// Route と Product は表示用に原文のまま保持します。
type Order struct {
	Route   string `json:"route"`
	Product string `json:"product"`
	Trays   int    `json:"trays"`
	InStock bool   `json:"inStock"`
}

// OrderData は作業セッションの注文一覧です。
type OrderData struct {
	IssueDate string  `json:"issueDate"`
	Orders    []Order `json:"orders"`
}

// Clone は Orders を複製した OrderData を返します。
func (d OrderData) Clone() OrderData {
	out := OrderData{IssueDate: d.IssueDate}
	if d.Orders != nil {
		out.Orders = make([]Order, len(d.Orders))
		copy(out.Orders, d.Orders)
	}
	return out
}

// TotalTrays は全注文のトレイ数合計です。
func (d OrderData) TotalTrays() int {
	total := 0
	for _, o := range d.Orders {
		total += o.Trays
	}
	return total
}

// PageOrder は印刷用に分割された生産伝票1ページ分です。
type PageOrder struct {
	Order
	PageKey    string `json:"pageKey"`
	PageNumber int    `json:"pageNumber"`
	TotalPages int    `json:"totalPages"`
}

// SliceMode は1ページあたりのトレイ上限を決めるプリセットです。
type SliceMode string

const (
	SliceDouble SliceMode = "double"
	SliceSingle SliceMode = "single"
)

// Capacity は1ページに載せられるトレイ数を返します。
func (m SliceMode) Capacity() int {
	if m == SliceSingle {
		return 100
	}
	return 60
}

// ParseSliceMode は文字列をスライスモードに変換します。空文字は double 扱いです。
func ParseSliceMode(s string) (SliceMode, error) {
	switch SliceMode(strings.ToLower(strings.TrimSpace(s))) {
	case SliceDouble, "":
		return SliceDouble, nil
	case SliceSingle:
		return SliceSingle, nil
	default:
		return "", fmt.Errorf("unknown slice mode %q", s)
	}
}
