package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/glbot/glbot/internal/bot"
	"github.com/glbot/glbot/internal/config"
	"github.com/glbot/glbot/internal/drive"
	"github.com/glbot/glbot/internal/history"
	"github.com/glbot/glbot/internal/ledger"
	"github.com/glbot/glbot/internal/seatalk"
	"github.com/glbot/glbot/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides GLBOT_SERVER_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	config.LoadEnvFileCandidates()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		log.Warn("invalid timezone, falling back to UTC", "timezone", cfg.Server.Timezone, "error", err)
		loc = time.UTC
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:     cfg.Sentry.DSN,
			Release: "glbot@" + version,
		}); err != nil {
			log.Warn("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	var hist *history.Service
	if cfg.History.Path != "" {
		hist, err = history.NewService(cfg.History.Path)
		if err != nil {
			log.Warn("history store unavailable", "path", cfg.History.Path, "error", err)
		} else {
			defer hist.Close()
		}
	}

	messenger := seatalk.New(cfg.SeaTalk)

	opts := bot.Options{
		Location: loc,
		Logger:   log,
	}
	if hist != nil {
		opts.Recorder = hist
	}
	if cfg.Drive.Ready() {
		svc, err := drive.New(ctx, cfg.Drive)
		if err != nil {
			return fmt.Errorf("drive setup: %w", err)
		}
		opts.Searcher = ledger.NewScanner(svc, log)
		opts.Exporter = ledger.NewExporter(svc)
		log.Info("ledger lookups enabled", "source_folder", cfg.Drive.SourceFolderID)
	} else {
		log.Warn("drive not fully configured, ledger lookups disabled")
	}

	dispatcher := bot.New(messenger, opts)
	srv := server.New(dispatcher, messenger, server.Options{
		Location: loc,
		Logger:   log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
