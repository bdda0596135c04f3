package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html.tmpl").Funcs(template.FuncMap{
		"productFont": ProductFontSize,
		"routeFont":   RouteFontSize,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

// RenderReportHTML は集計ページと全伝票を1つの印刷用HTML文書として書き出します。
// 各ページはA4縦で改ページされます。
func RenderReportHTML(w io.Writer, report Report) error {
	if err := reportTemplate.Execute(w, report); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
