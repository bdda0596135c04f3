package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"bakeslip/model"
)

// ErrNoOrderHeader はルート・製品・トレイ列を持つヘッダー行が見つからないことを示します。
var ErrNoOrderHeader = errors.New("order header not found")

// headerSearchRows はヘッダー行を探す先頭からの行数です。
const headerSearchRows = 10

var orderHeaderAliases = map[string][]string{
	"route":   {"route", "location", "route / location", "route/location", "route name"},
	"product": {"product", "product name", "description", "product description"},
	"trays":   {"trays", "tray", "quantity", "qty"},
}

// ReadCSVRows はCSVを行の配列として読み込みます。列数の揃っていない行も許容します。
func ReadCSVRows(r io.Reader) ([][]string, error) {
	text, err := ToUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read order csv: %w", err)
	}
	reader := csv.NewReader(SkipBOM(text))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read order csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("order csv is empty")
	}
	return rows, nil
}

// ParseOrderCSV は注文一覧CSVを解析します。
func ParseOrderCSV(r io.Reader) ([]model.Order, error) {
	rows, err := ReadCSVRows(r)
	if err != nil {
		return nil, err
	}
	return ParseOrderRows(rows)
}

// ParseOrderRows は表形式の行から注文を取り出します。
// ヘッダー行は先頭 headerSearchRows 行の中から探します。
// ルートまたは製品が空の行 (合計行など) は読み飛ばします。
func ParseOrderRows(rows [][]string) ([]model.Order, error) {
	headerRow := -1
	var colIndex map[string]int
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		idx, err := getColIndex(rows[i], orderHeaderAliases)
		if err == nil {
			headerRow = i
			colIndex = idx
			break
		}
	}
	if headerRow < 0 {
		return nil, ErrNoOrderHeader
	}

	orders := []model.Order{}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		route := cellValue(row, colIndex["route"])
		product := cellValue(row, colIndex["product"])
		if route == "" || product == "" {
			continue
		}
		traysText := cellValue(row, colIndex["trays"])
		trays, err := strconv.Atoi(traysText)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid tray count %q", i+1, traysText)
		}
		orders = append(orders, model.Order{Route: route, Product: product, Trays: trays})
	}
	return orders, nil
}
