package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"bakeslip/archive"
	"bakeslip/config"
	"bakeslip/database"
	"bakeslip/extraction"
	"bakeslip/ingest"
	"bakeslip/logging"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "bakeslip",
	Short:         "Turn bakery order documents into printable slice order slips",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.SetPath(configPath)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.Path(), "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd, processCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadRuntime は設定を読み込み、ロガーを作ります。
// 設定ファイルが壊れている場合は既定値で続行します。
func loadRuntime() (config.Config, *zap.Logger, error) {
	cfg, cfgErr := config.LoadConfig()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.NewLogger(level)
	if err != nil {
		return cfg, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfgErr != nil {
		logger.Warn("failed to load config file, using defaults", zap.String("path", config.Path()), zap.Error(cfgErr))
	}
	return cfg, logger, nil
}

// openDatabase はジャーナル用のデータベースを開き、スキーマを適用します。
func openDatabase(cfg config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("connecting to database", zap.String("path", cfg.DBPath))
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := database.ApplySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database initialization failed: %w", err)
	}
	return db, nil
}

// newExtractor は抽出サービスを組み立てます。API キーがなければ nil を返し、
// 処理はファイルごとの失敗として報告されます。
func newExtractor(ctx context.Context, cfg config.Config, logger *zap.Logger) extraction.Extractor {
	key := config.APIKey(cfg)
	if key == "" {
		logger.Warn("no Gemini API key configured; extraction will fail until GEMINI_API_KEY is set")
		return nil
	}
	gemini, err := extraction.NewGeminiExtractor(ctx, key, cfg.GeminiModel, logger.Named("gemini"))
	if err != nil {
		logger.Error("failed to create extraction client", zap.Error(err))
		return nil
	}
	return extraction.NewSpreadsheetExtractor(extraction.NewImagePreprocessor(gemini, 0))
}

// newOrchestrator はバッチ処理を組み立てます。db が nil ならジャーナルは記録しません。
func newOrchestrator(ctx context.Context, cfg config.Config, logger *zap.Logger, db *sqlx.DB) *ingest.Orchestrator {
	opts := []ingest.Option{
		ingest.WithLogger(logger.Named("ingest")),
		ingest.WithMaxParallel(cfg.MaxParallelExtractions),
	}
	if db != nil {
		opts = append(opts, ingest.WithJournal(database.NewJournal(db)))
	}
	if cfg.ArchiveFolderPath != "" {
		opts = append(opts, ingest.WithArchiver(archive.NewStore(cfg.ArchiveFolderPath)))
	}
	return ingest.NewOrchestrator(newExtractor(ctx, cfg, logger), opts...)
}

func openBrowser(url string, logger *zap.Logger) {
	var err error
	switch runtime.GOOS {
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		logger.Warn("failed to open browser", zap.Error(err))
	}
}
