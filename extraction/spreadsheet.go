package extraction

import (
	"bytes"
	"context"
	"errors"

	"bakeslip/model"
	"bakeslip/parsers"
)

// SpreadsheetExtractor は表計算ファイルとCSVを手元で読み取ります。
// ルート・製品・トレイ列が見つかればリモート呼び出しを行いません。
// 見つからなければCSVテキストに変換して next に渡します。
type SpreadsheetExtractor struct {
	next Extractor
}

// NewSpreadsheetExtractor は next を包んだ SpreadsheetExtractor を返します。
func NewSpreadsheetExtractor(next Extractor) *SpreadsheetExtractor {
	return &SpreadsheetExtractor{next: next}
}

func (s *SpreadsheetExtractor) Extract(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
	isCSV := file.Ext() == ".csv"
	if !isCSV && !parsers.IsSpreadsheet(file.Name) {
		return s.forward(ctx, file)
	}

	var (
		rows [][]string
		err  error
	)
	if isCSV {
		rows, err = parsers.ReadCSVRows(bytes.NewReader(file.Data))
	} else {
		rows, err = parsers.ReadSpreadsheetRows(file.Data, file.Name)
	}
	if err != nil {
		return model.OrderData{}, &ExtractionError{File: file.Name, Reason: "could not read spreadsheet: " + err.Error(), Err: err}
	}

	orders, err := parsers.ParseOrderRows(rows)
	if err == nil {
		return model.OrderData{Orders: orders}, nil
	}
	if !errors.Is(err, parsers.ErrNoOrderHeader) {
		return model.OrderData{}, &ExtractionError{File: file.Name, Reason: err.Error(), Err: err}
	}

	csvBytes, err := parsers.RowsToCSV(rows)
	if err != nil {
		return model.OrderData{}, err
	}
	return s.forward(ctx, model.SourceFile{Name: file.Name, MediaType: "text/csv", Data: csvBytes})
}

func (s *SpreadsheetExtractor) forward(ctx context.Context, file model.SourceFile) (model.OrderData, error) {
	if s.next == nil {
		return model.OrderData{}, &ExtractionError{File: file.Name, Reason: "no extraction service configured"}
	}
	return s.next.Extract(ctx, file)
}
