package diag

import (
	"context"
	"log/slog"

	"scsync/internal/logger"
)

// LoggingSink emits each anomaly as a structured log line, carrying the
// run id from ctx. Used in production alongside a MemorySink so anomalies
// are both tallied for the manifest and visible to operators as they
// happen.
type LoggingSink struct {
	ctx context.Context
	log *slog.Logger
}

// NewLoggingSink builds a LoggingSink bound to a run's context and logger.
func NewLoggingSink(ctx context.Context, log *slog.Logger) *LoggingSink {
	return &LoggingSink{ctx: ctx, log: log}
}

func (s *LoggingSink) Observe(a Anomaly) {
	attrs := append(logger.WithTrace(s.ctx),
		slog.String("kind", string(a.Kind)),
		slog.Int64("ns_at", a.NsAt),
		slog.String("detail", a.Detail),
	)
	s.log.WarnContext(s.ctx, "anomaly", attrs...)
}
