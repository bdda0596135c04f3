package parsers

import (
	"strings"
	"testing"

	"bakeslip/model"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCleanProductName(t *testing.T) {
	cases := map[string]string{
		`B441 4" Regular Tray 60`: `4" Regular`,
		`Brown Sliced Tray`:       `Brown Sliced`,
		`Regular TRAY`:            `Regular`,
		`B441 4" Regular`:         `4" Regular`,
		`Rolls tray12`:            `Rolls`,
		`  Batch Loaf  `:          `Batch Loaf`,
		``:                        ``,
	}
	for in, want := range cases {
		require.Equal(t, want, CleanProductName(in), "input %q", in)
	}
}

func TestParseOrderRowsFindsHeaderBelowTitle(t *testing.T) {
	rows := [][]string{
		{"Slice Order", "", ""},
		{"Route / Location", "Product", "Trays"},
		{"ATHLONE", `B441 4" Regular Tray 60`, "15"},
		{"Carlow", `B441 4" Regular Tray 60`, " 12 "},
		{"", "Total", "27"},
	}
	orders, err := ParseOrderRows(rows)
	require.NoError(t, err)
	require.Equal(t, []model.Order{
		{Route: "ATHLONE", Product: `B441 4" Regular Tray 60`, Trays: 15},
		{Route: "Carlow", Product: `B441 4" Regular Tray 60`, Trays: 12},
	}, orders)
}

func TestParseOrderRowsWithoutHeader(t *testing.T) {
	_, err := ParseOrderRows([][]string{{"a", "b"}, {"c", "d"}})
	require.ErrorIs(t, err, ErrNoOrderHeader)
}

func TestParseOrderRowsRejectsBadTrayCount(t *testing.T) {
	_, err := ParseOrderRows([][]string{
		{"Route", "Product", "Qty"},
		{"NAVAN", "Regular", "five"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseOrderCSVSkipsBOM(t *testing.T) {
	csvText := "\xEF\xBB\xBFroute,product,trays\nFINNERTY,Regular,34\n"
	orders, err := ParseOrderCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Equal(t, []model.Order{{Route: "FINNERTY", Product: "Regular", Trays: 34}}, orders)
}

func TestParseOrderCSVWindows1252(t *testing.T) {
	csvText := "route,product,trays\nCAF\xc9 ROUTE,4\" Regular,7\n"
	orders, err := ParseOrderCSV(strings.NewReader(csvText))
	require.NoError(t, err)
	require.Equal(t, []model.Order{{Route: "CAFÉ ROUTE", Product: `4" Regular`, Trays: 7}}, orders)
}

func TestReadSpreadsheetRowsXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Route", "Product", "Trays"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"NAVAN", "Regular", 5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := ReadSpreadsheetRows(buf.Bytes(), "orders.xlsx")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"Route", "Product", "Trays"}, {"NAVAN", "Regular", "5"}}, rows)

	csvBytes, err := RowsToCSV(rows)
	require.NoError(t, err)
	require.Equal(t, "Route,Product,Trays\nNAVAN,Regular,5\n", string(csvBytes))
}

func TestIsSpreadsheet(t *testing.T) {
	require.True(t, IsSpreadsheet("Orders.XLSX"))
	require.True(t, IsSpreadsheet("legacy.xls"))
	require.False(t, IsSpreadsheet("scan.pdf"))
}
