package store

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig defines how long raw metric events are kept. Systems and
// alerts are never swept: liveness lives in the registry, and alert history
// is retained for audit.
type RetentionConfig struct {
	MetricEvents time.Duration // default 48h
}

// DefaultRetention returns the default retention periods.
func DefaultRetention() RetentionConfig {
	return RetentionConfig{
		MetricEvents: 48 * time.Hour,
	}
}

// Pruner periodically removes expired metric events from the store.
type Pruner struct {
	store     *Store
	retention RetentionConfig
	interval  time.Duration
}

// NewPruner creates a pruner with the given retention config.
func NewPruner(store *Store, retention RetentionConfig) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		interval:  1 * time.Hour,
	}
}

// Run starts the pruner loop. It blocks until the context is cancelled.
func (p *Pruner) Run(ctx context.Context) error {
	slog.Info("pruner started", "interval", p.interval, "retention", p.retention.MetricEvents)

	// Run once at startup
	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pruner stopped")
			return ctx.Err()
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention.MetricEvents).Unix()
	result, err := p.store.db.ExecContext(ctx, "DELETE FROM metrics WHERE ts < ?", cutoff)
	if err != nil {
		slog.Error("pruning failed", "table", "metrics", "error", err)
		return
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		slog.Info("pruned old metric events", "rows", rows)
	}
}
