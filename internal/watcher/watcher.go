package watcher

import (
	"context"
	"time"

	"github.com/dmorandi/mailbridge/internal/config"
	"github.com/dmorandi/mailbridge/internal/logging"
	"github.com/dmorandi/mailbridge/internal/service"
)

// Watcher drives periodic sync passes.
type Watcher struct {
	cfg    *config.Config
	syncer *service.Syncer
}

func New(cfg *config.Config, syncer *service.Syncer) *Watcher {
	return &Watcher{
		cfg:    cfg,
		syncer: syncer,
	}
}

// Start runs an initial pass, then keeps syncing on the configured
// interval until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	logging.Log.WithField("interval_seconds", w.cfg.SyncInterval).Info("starting sync watcher")

	if err := w.syncer.SyncAll(ctx); err != nil {
		logging.Log.WithError(err).Warn("initial sync pass failed")
	}

	ticker := time.NewTicker(time.Duration(w.cfg.SyncInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Log.Info("sync watcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := w.syncer.SyncAll(ctx); err != nil {
				logging.Log.WithError(err).Error("sync pass failed")
			}
		}
	}
}
