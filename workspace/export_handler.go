package workspace

import (
	"bytes"
	"fmt"
	"net/http"

	"bakeslip/export"
	"bakeslip/logging"
	"bakeslip/render"
	"bakeslip/session"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (d *Deps) report(w http.ResponseWriter, r *http.Request) (session.Session, render.Report, bool) {
	s, err := d.Store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, r, err)
		return s, render.Report{}, false
	}
	report, err := s.Report(d.now(), companyName())
	if err != nil {
		writeSessionError(w, r, err)
		return s, render.Report{}, false
	}
	return s, report, true
}

// ReportHandler は印刷用のレポートHTMLを返します。
func ReportHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, report, ok := d.report(w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := render.RenderReportHTML(&buf, report); err != nil {
			writeSessionError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}

// ExportPDFHandler はレポートを PDF で返します。失敗してもセッションは変わりません。
func ExportPDFHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, report, ok := d.report(w, r)
		if !ok {
			return
		}
		if d.PDF == nil {
			writeJSONError(w, "PDF export is not available", http.StatusServiceUnavailable)
			return
		}
		pdf, err := d.PDF.RenderPDF(r.Context(), report)
		if err != nil {
			logging.FromContext(r.Context()).Error("PDF export failed", zap.Error(err))
			writeJSONError(w, "Sorry, there was an error creating the PDF file. Please try again.", http.StatusInternalServerError)
			return
		}
		attach(w, "application/pdf", s.ReportFileName("pdf"), pdf)
	}
}

// ExportXLSXHandler はレポートを Excel ブックで返します。
func ExportXLSXHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, report, ok := d.report(w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := export.WriteWorkbook(&buf, report); err != nil {
			logging.FromContext(r.Context()).Error("workbook export failed", zap.Error(err))
			writeJSONError(w, "Sorry, there was an error creating the spreadsheet. Please try again.", http.StatusInternalServerError)
			return
		}
		attach(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", s.ReportFileName("xlsx"), buf.Bytes())
	}
}

func attach(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}
