package export

import (
	"fmt"
	"io"

	"bakeslip/render"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "Summary"
	SlipsSheet   = "Slips"
)

var (
	summaryHeader = []any{"Route / Location", "Product", "In Stock", "Trays"}
	slipsHeader   = []any{"Route", "Product", "Page", "Trays"}
)

// WriteWorkbook はレポートを Summary / Slips の2シートの xlsx として書き出します。
func WriteWorkbook(w io.Writer, report render.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(SlipsSheet); err != nil {
		return fmt.Errorf("failed to create slips sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeSummary(f, report, bold); err != nil {
		return err
	}
	if err := writeSlips(f, report, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, report render.Report, bold int) error {
	s := report.Summary
	rows := [][]any{
		{report.CompanyName},
		{s.IssueDate, "Time: " + s.Time},
		{"Primary product", s.PrimaryProduct},
		{},
		summaryHeader,
	}
	for _, r := range s.Rows {
		stock := ""
		if r.Excluded {
			stock = "In Stock"
		}
		rows = append(rows, []any{r.Route, r.Product, stock, r.Trays})
	}
	rows = append(rows, []any{"Total Trays (To Produce)", "", "", s.TotalTrays})

	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}
	headerRow := 5
	if err := f.SetCellStyle(SummarySheet, cell(1, headerRow), cell(4, headerRow), bold); err != nil {
		return err
	}
	totalRow := len(rows)
	if err := f.SetCellStyle(SummarySheet, cell(1, totalRow), cell(4, totalRow), bold); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 32)
}

func writeSlips(f *excelize.File, report render.Report, bold int) error {
	rows := [][]any{slipsHeader}
	for _, p := range report.Slips {
		rows = append(rows, []any{p.Route, p.Product, fmt.Sprintf("%d/%d", p.PageNumber, p.TotalPages), p.Trays})
	}
	if err := setRows(f, SlipsSheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(SlipsSheet, "A1", "D1", bold); err != nil {
		return err
	}
	return f.SetColWidth(SlipsSheet, "A", "B", 32)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheet, cell(1, i+1), &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
