// Package notify delivers run-outcome alerts to external channels. A
// Failed run, a PartiallyComplete run, or an anomaly count above the
// configured threshold triggers a webhook post with a Telegram fallback.
package notify

import (
	"context"
	"fmt"
	"log"

	"scsync/internal/diag"
	"scsync/internal/syncer"
)

// Level is the severity of an alert.
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelCritical Level = "CRITICAL"
)

// Alert is one notification to deliver.
type Alert struct {
	Level   Level
	Title   string
	Message string
}

// Notifier is one delivery backend.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts locally; used when no webhook/Telegram target
// is configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, alert Alert) error {
	log.Printf("notify: [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Chain tries each notifier in order, falling through to the next on
// error, so a webhook outage doesn't silently swallow a run alert.
type Chain struct {
	notifiers []Notifier
}

// NewChain builds a Chain over the given notifiers, tried in order.
func NewChain(notifiers ...Notifier) *Chain {
	return &Chain{notifiers: notifiers}
}

func (c *Chain) Send(ctx context.Context, alert Alert) error {
	var lastErr error
	for _, n := range c.notifiers {
		if err := n.Send(ctx, alert); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("notify: all backends failed, last error: %w", lastErr)
	}
	return nil
}

// ForResult builds the alert a synchronizer run's outcome warrants, or
// reports ok=false if the run needs no alert.
func ForResult(contract, date string, res syncer.Result, anomalyThreshold int) (Alert, bool) {
	switch res.Status {
	case syncer.Failed:
		return Alert{
			Level:   LevelCritical,
			Title:   fmt.Sprintf("scsync failed: %s %s", contract, date),
			Message: res.Reason,
		}, true
	case syncer.PartiallyComplete:
		return Alert{
			Level:   LevelWarning,
			Title:   fmt.Sprintf("scsync partial: %s %s", contract, date),
			Message: res.Reason,
		}, true
	}

	if total := anomalyTotal(res.Anomalies); total > anomalyThreshold {
		return Alert{
			Level:   LevelWarning,
			Title:   fmt.Sprintf("scsync anomaly threshold exceeded: %s %s", contract, date),
			Message: fmt.Sprintf("%d anomalies observed (threshold %d)", total, anomalyThreshold),
		}, true
	}
	return Alert{}, false
}

func anomalyTotal(counts diag.Counts) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}
