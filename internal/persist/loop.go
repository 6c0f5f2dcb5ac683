package persist

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lalith-99/streams/internal/repository"
)

// Snapshotter is the part of the service the loop needs.
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

// Loop writes a snapshot every interval and once more when stopped.
type Loop struct {
	source   Snapshotter
	store    repository.SnapshotStore
	interval time.Duration
	logger   *zap.Logger
}

func NewLoop(source Snapshotter, store repository.SnapshotStore, interval time.Duration, logger *zap.Logger) *Loop {
	return &Loop{source: source, store: store, interval: interval, logger: logger}
}

// Restore loads the saved snapshot into the source. It reports whether
// one was found.
func (l *Loop) Restore(ctx context.Context) (bool, error) {
	data, err := l.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := l.source.Restore(data); err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	l.logger.Info("workspace restored", zap.Int("bytes", len(data)))
	return true, nil
}

// SaveNow takes and stores one snapshot.
func (l *Loop) SaveNow(ctx context.Context) error {
	data, err := l.source.Snapshot()
	if err != nil {
		return err
	}
	return l.store.Save(ctx, data)
}

// Run saves on every tick until ctx is done, then saves a final time
// with a fresh context. Failed ticks are logged and retried next tick.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := l.SaveNow(final); err != nil {
				return fmt.Errorf("final snapshot: %w", err)
			}
			l.logger.Info("final snapshot saved")
			return nil
		case <-ticker.C:
			if err := l.SaveNow(ctx); err != nil {
				l.logger.Error("snapshot failed", zap.Error(err))
			}
		}
	}
}
