package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmorandi/mailbridge/internal/api"
	"github.com/dmorandi/mailbridge/internal/config"
	"github.com/dmorandi/mailbridge/internal/database"
	"github.com/dmorandi/mailbridge/internal/jmap"
	"github.com/dmorandi/mailbridge/internal/logging"
	"github.com/dmorandi/mailbridge/internal/repository"
	"github.com/dmorandi/mailbridge/internal/service"
	"github.com/dmorandi/mailbridge/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		logging.Log.WithError(err).Fatal("application error")
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	logging.Log.Info("database connected")

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		return err
	}
	logging.Log.Info("migrations completed")

	// Initialize repositories
	emailRepo := repository.NewEmailRepository(db)
	stateRepo := repository.NewSyncStateRepository(db)
	blocklistRepo := repository.NewBlocklistRepository(db)

	// Initialize services. Each operation opens a fresh provider
	// client so session state never goes stale.
	openSync := func(ctx context.Context) (service.MailClient, error) {
		return jmap.Open(ctx, cfg.MailUsername, cfg.MailAPIToken, cfg.MailSessionURL)
	}
	openSend := func(ctx context.Context) (service.SendClient, error) {
		return jmap.Open(ctx, cfg.MailUsername, cfg.MailAPIToken, cfg.MailSessionURL)
	}

	syncer := service.NewSyncer(
		openSync,
		emailRepo,
		stateRepo,
		blocklistRepo,
		cfg.MailUsername,
		cfg.SpamNamePatterns,
		cfg.SyncPageSize,
	)
	mailer := service.NewMailer(
		openSend,
		emailRepo,
		syncer,
		cfg.MailUsername,
		time.Duration(cfg.ResyncDelay)*time.Second,
	)

	// Initialize HTTP server
	server := api.NewServer(syncer, mailer, emailRepo)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server,
	}

	// Initialize watcher
	w := watcher.New(cfg, syncer)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start watcher and HTTP server in goroutines
	errChan := make(chan error, 2)
	go func() {
		errChan <- w.Start(ctx)
	}()
	go func() {
		logging.Log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Log.Info("shutdown signal received")
		cancel()

		// Wait for graceful shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Log.WithError(err).Warn("HTTP server shutdown failed")
		}

		select {
		case <-shutdownCtx.Done():
			logging.Log.Warn("shutdown timeout exceeded")
		case err := <-errChan:
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Log.WithError(err).Error("watcher error")
			}
		}

		logging.Log.Info("application stopped")
		return nil

	case err := <-errChan:
		return err
	}
}
