// Package export は確定したレポートを PDF と Excel に書き出します。
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"bakeslip/render"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// PDFRenderer はレポートを複数ページの PDF にします。
type PDFRenderer interface {
	RenderPDF(ctx context.Context, report render.Report) ([]byte, error)
}

// ChromePDF はヘッドレス Chrome の印刷機能で PDF を作ります。
// ページの区切りはレポートHTMLの CSS 改ページに従います。
type ChromePDF struct {
	// Bin は Chrome の実行ファイルです。空なら launcher が探すか取得します。
	Bin    string
	logger *zap.Logger
}

func NewChromePDF(bin string, logger *zap.Logger) *ChromePDF {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromePDF{Bin: bin, logger: logger}
}

// RenderPDF はレポートを1つの A4 縦 PDF にします。呼び出しごとにブラウザを起動・終了します。
func (c *ChromePDF) RenderPDF(ctx context.Context, report render.Report) ([]byte, error) {
	var html bytes.Buffer
	if err := render.RenderReportHTML(&html, report); err != nil {
		return nil, err
	}

	// Leakless(false) でセキュリティソフト対策
	l := launcher.New().Headless(true).Leakless(false)
	if c.Bin != "" {
		l = l.Bin(c.Bin)
	}
	u, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(html.String()); err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("failed to wait for report: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}
	pdf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	c.logger.Info("rendered report PDF", zap.Int("pages", report.PageCount()), zap.Int("bytes", len(pdf)))
	return pdf, nil
}
