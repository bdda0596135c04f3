package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bakeslip/config"
	"bakeslip/export"
	"bakeslip/extraction"
	"bakeslip/ingest"
	"bakeslip/model"
	"bakeslip/session"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type processOptions struct {
	mode      string
	date      string
	pdfPath   string
	xlsxPath  string
	jsonOut   bool
	noJournal bool
}

var processOpts processOptions

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Extract orders from documents and write the order slips",
	Long: `Extract orders from one or more order documents (PDF, images, CSV, spreadsheets),
aggregate them by route and product, and write the slice order report.

Failed files are reported on stderr; the report is written when at least one file
produced orders.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processOpts.mode, "mode", "", "slice mode: double (60 trays per slip) or single (100)")
	f.StringVar(&processOpts.date, "date", "", "issue date printed on the report (YYYY-MM-DD, default today)")
	f.StringVar(&processOpts.pdfPath, "pdf", "", "write the report as PDF to this path")
	f.StringVar(&processOpts.xlsxPath, "xlsx", "", "write the report as an Excel workbook to this path")
	f.BoolVar(&processOpts.jsonOut, "json", false, "print the aggregated orders as JSON on stdout")
	f.BoolVar(&processOpts.noJournal, "no-journal", false, "do not record the batch in the database")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync()
	ctx := cmd.Context()

	files, err := readSourceFiles(args)
	if err != nil {
		return err
	}

	s := session.New("cli", time.Now(), cfg.DefaultSliceMode)
	if processOpts.mode != "" {
		mode, err := model.ParseSliceMode(processOpts.mode)
		if err != nil {
			return err
		}
		if s, err = s.SetSliceMode(mode); err != nil {
			return err
		}
	}
	if processOpts.date != "" {
		if s, err = s.SetSelectedDate(processOpts.date); err != nil {
			return err
		}
	}

	queued := make([]session.QueuedFile, len(files))
	for i, f := range files {
		queued[i] = session.QueuedFile{SourceFile: f}
	}
	if s, err = s.AddFiles(queued...); err != nil {
		return err
	}
	if s, err = s.BeginProcessing(); err != nil {
		return err
	}

	orch, closeDB, err := cliOrchestrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := orch.ProcessBatch(ctx, s.ID, s.SourceFiles())
	if err != nil {
		return err
	}
	if s, err = s.CompleteProcessing(result); err != nil {
		return err
	}
	for _, msg := range s.Errors {
		if msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
	}
	if s.State != session.StateOrdersReady {
		return ingest.ErrNoDataExtracted
	}

	if processOpts.jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(s.Data); err != nil {
			return err
		}
	}

	report, err := s.Report(time.Now(), cfg.CompanyName)
	if err != nil {
		return err
	}
	logger.Info("report built",
		zap.Int("orders", len(s.Data.Orders)),
		zap.Int("pages", report.PageCount()),
		zap.String("primary_product", report.Summary.PrimaryProduct),
	)

	if processOpts.xlsxPath != "" {
		if err := writeFileWith(processOpts.xlsxPath, func(f *os.File) error {
			return export.WriteWorkbook(f, report)
		}); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "wrote", processOpts.xlsxPath)
	}
	if processOpts.pdfPath != "" {
		pdf, err := export.NewChromePDF(cfg.ChromeBin, logger.Named("pdf")).RenderPDF(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to render PDF: %w", err)
		}
		if err := os.WriteFile(processOpts.pdfPath, pdf, 0644); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "wrote", processOpts.pdfPath)
	}
	return nil
}

// cliOrchestrator は process コマンド用の Orchestrator を作ります。
// --no-journal のときはデータベースを開きません。
func cliOrchestrator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*ingest.Orchestrator, func(), error) {
	if processOpts.noJournal {
		return newOrchestrator(ctx, cfg, logger, nil), func() {}, nil
	}
	db, err := openDatabase(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return newOrchestrator(ctx, cfg, logger, db), func() { db.Close() }, nil
}

// readSourceFiles は引数のファイルを読み込みます。対象外の拡張子はここで弾きます。
func readSourceFiles(paths []string) ([]model.SourceFile, error) {
	var (
		files []model.SourceFile
		errs  error
	)
	for _, p := range paths {
		name := filepath.Base(p)
		if !extraction.IsAcceptedName(name) {
			errs = multierr.Append(errs, fmt.Errorf("%s: unsupported file type", p))
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		files = append(files, model.SourceFile{
			Name:      name,
			MediaType: extraction.MediaType(name, "", data),
			Data:      data,
		})
	}
	return files, errs
}

func writeFileWith(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return write(f)
}
