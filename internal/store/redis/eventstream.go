// Package redis also publishes run-lifecycle events to a Redis Stream
// for downstream consumers, on top of the same connection conventions
// the original candle writer used.
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const runEventsMaxLen = 10000

// WriterConfig configures the Redis connection.
type WriterConfig struct {
	Addr     string
	Password string
	DB       int
}

// EventStream publishes run-lifecycle events to a capped Redis Stream.
type EventStream struct {
	client     *goredis.Client
	streamName string
}

// Client returns the underlying Redis client for health checks and the
// distributed lock.
func (e *EventStream) Client() *goredis.Client { return e.client }

// New connects to Redis and pings it before returning.
func New(cfg WriterConfig) (*EventStream, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("redis: connected to %s", cfg.Addr)
	return &EventStream{client: client, streamName: "scsync:run-events"}, nil
}

// RunEvent is one lifecycle transition published to the stream.
type RunEvent struct {
	Contract  string
	TradeDate string
	State     string // syncer.State.String()
	Status    string // syncer.Status.String(), empty until Done
	Reason    string
}

// Publish appends one run event to the stream, trimmed to roughly
// runEventsMaxLen entries.
func (e *EventStream) Publish(ctx context.Context, ev RunEvent) error {
	err := e.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: e.streamName,
		MaxLen: runEventsMaxLen,
		Approx: true,
		Values: map[string]any{
			"contract":   ev.Contract,
			"trade_date": ev.TradeDate,
			"state":      ev.State,
			"status":     ev.Status,
			"reason":     ev.Reason,
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis: publish run event: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (e *EventStream) Close() error {
	return e.client.Close()
}
