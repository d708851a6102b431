package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	blinkoadapter "github.com/ericfisherdev/blinkobot/internal/adapter/driven/blinko"
	sqliteadapter "github.com/ericfisherdev/blinkobot/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/blinkobot/internal/adapter/driving/http"
	"github.com/ericfisherdev/blinkobot/internal/adapter/driving/telegram"
	"github.com/ericfisherdev/blinkobot/internal/application"
	"github.com/ericfisherdev/blinkobot/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"blinko_url", cfg.BlinkoURL,
		"poll_timeout", cfg.PollTimeout,
	)

	// 2. Resolve the encryption key: env var wins, else key file next to the
	// database (generated on first run).
	key := cfg.SecretKey
	if key == nil {
		key, err = config.LoadOrCreateKey(cfg.DBPath)
		if err != nil {
			return err
		}
		slog.Info("encryption key loaded from key file", "path", cfg.DBPath+".key")
	}

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 5. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 6. Wire adapters.
	vault := sqliteadapter.NewCredentialRepo(db, key)
	links := sqliteadapter.NewNoteLinkRepo(db)
	notes := blinkoadapter.NewClient(cfg.BlinkoURL, cfg.RequestTimeout, cfg.InsecureTLS)
	tgClient := telegram.NewClient(cfg.TelegramToken, cfg.PollTimeout)

	// 7. Create the relay service and the Telegram poller.
	relaySvc := application.NewRelayService(vault, links, notes, tgClient)
	relaySvc.SetPreviewRenderer(telegram.RenderPreview)
	poller := telegram.NewPoller(tgClient, relaySvc, cfg.PollTimeout)

	pollerDone := make(chan error, 1)
	go func() {
		pollerDone <- poller.Run(ctx)
	}()

	// 8. Serve the operational HTTP surface.
	apiHandler := httphandler.NewHandler(relaySvc, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("blinkobot started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal or a fatal poller error (e.g. bad bot token).
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-pollerDone:
		if err != nil {
			stop()
			return err
		}
	}

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
