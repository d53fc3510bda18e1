package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"spiketrend/internal/model"

	goredis "github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
)

const (
	toggleStreamMaxLen = 10000
	stateTTL           = 24 * time.Hour
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("redis unavailable")

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// Breaker opens after this many consecutive failures (default 5)
	// and half-opens after ResetTimeout (default 10s).
	MaxFailures  uint32
	ResetTimeout time.Duration
}

// Writer publishes toggle events: PUBLISH for live subscribers, XADD for
// history and SET for the latest indicator state.
type Writer struct {
	client *goredis.Client
	cb     *gobreaker.CircuitBreaker

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(from, to gobreaker.State)
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, cfg WriterConfig) *Writer {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}

	w := &Writer{client: client}
	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[redis] breaker %s: %s -> %s", name, from, to)
			if w.OnStateChange != nil {
				w.OnStateChange(from, to)
			}
		},
	})
	return w
}

// BreakerState returns the current breaker state.
func (w *Writer) BreakerState() gobreaker.State { return w.cb.State() }

// PublishToggles writes each toggle to the series stream and channel in
// order, then records the last toggle's state. A nil or empty slice is a
// no-op.
func (w *Writer) PublishToggles(ctx context.Context, series string, toggles []model.Toggle) error {
	if len(toggles) == 0 {
		return nil
	}

	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, w.writeToggles(ctx, series, toggles)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (w *Writer) writeToggles(ctx context.Context, series string, toggles []model.Toggle) error {
	stream := model.ToggleStream(series)
	channel := model.ToggleChannel(series)

	for i := range toggles {
		tg := &toggles[i]
		jsonData := string(tg.JSON())

		err := w.client.XAdd(ctx, &goredis.XAddArgs{
			Stream: stream,
			MaxLen: toggleStreamMaxLen,
			Approx: true,
			Values: []interface{}{
				"index", strconv.Itoa(tg.Index),
				"state", stateValue(tg.State),
				"data", jsonData,
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("redis xadd %s: %w", stream, err)
		}

		if err := w.client.Publish(ctx, channel, jsonData).Err(); err != nil {
			return fmt.Errorf("redis publish %s: %w", channel, err)
		}
	}

	last := toggles[len(toggles)-1]
	if err := w.client.Set(ctx, model.StateKey(series), stateValue(last.State), stateTTL).Err(); err != nil {
		return fmt.Errorf("redis set state: %w", err)
	}
	return nil
}

func stateValue(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
