package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// StoreGCWorker periodically reclaims space in the badger value log.
// Badger never runs value-log GC on its own, so a long-lived relay
// must drive it.
type StoreGCWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewStoreGCWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *StoreGCWorker {
	return &StoreGCWorker{log: log, db: db, interval: interval}
}

func (w StoreGCWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// One GC call rewrites at most one value-log file; loop
			// until badger reports nothing left to reclaim.
			for {
				if err := w.db.RunValueLogGC(gcDiscardRatio); err != nil {
					w.log.Debug("Value log GC pass finished", "reason", err)
					break
				}
			}
		}
	}
}
