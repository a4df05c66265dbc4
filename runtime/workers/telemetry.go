package workers

import (
	"context"
	"log/slog"
	"time"
)

// Occupancy is the slice of registry state the telemetry worker reports.
type Occupancy interface {
	Snapshot() (identities, connections int)
}

// TelemetryWorker periodically logs how many identities and live sessions
// the relay currently tracks. Best effort observability only.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	registry       Occupancy
}

func NewTelemetryWorker(log *slog.Logger, metricInterval time.Duration, registry Occupancy) *TelemetryWorker {
	return &TelemetryWorker{log: log, metricInterval: metricInterval, registry: registry}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			identities, connections := w.registry.Snapshot()
			w.log.Info("Relay occupancy",
				"identities", identities,
				"connections", connections)
		}
	}
}
