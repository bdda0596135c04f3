package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bakeslip/export"
	"bakeslip/model"
	"bakeslip/preview"
	"bakeslip/session"
	"bakeslip/watcher"
	"bakeslip/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	listenAddr string
	noBrowser  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the order slip workspace server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "do not open the browser on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database initialization complete")

	store := session.NewStore(preview.NewRegistry(), cfg.DefaultSliceMode, logger.Named("session"))
	deps := &workspace.Deps{
		Store:     store,
		Processor: newOrchestrator(ctx, cfg, logger, db),
		PDF:       export.NewChromePDF(cfg.ChromeBin, logger.Named("pdf")),
	}

	r := chi.NewRouter()
	SetupRoutes(r, db, deps, logger)

	addr := cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.InboxFolderPath != "" {
		inbox := watcher.NewInbox(cfg.InboxFolderPath, enqueueInbox(store), logger.Named("inbox"))
		g.Go(func() error {
			return inbox.Run(gctx)
		})
	}

	if cfg.OpenBrowser && !noBrowser {
		openBrowser(browserURL(addr), logger)
	}

	return g.Wait()
}

// enqueueInbox は受信フォルダのファイルを共有の受信セッションに積みます。
func enqueueInbox(store *session.Store) watcher.Handler {
	return func(ctx context.Context, file model.SourceFile) error {
		store.GetOrCreate(session.InboxID)
		_, err := store.Enqueue(session.InboxID, file)
		return err
	}
}

func browserURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
