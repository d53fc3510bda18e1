package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"spiketrend/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// ToggleMessage is a toggle received from PubSub.
type ToggleMessage struct {
	Series  string
	Payload []byte
}

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader reads toggle history and state and relays live toggles.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

// NewReaderWithClient wraps an existing client.
func NewReaderWithClient(client *goredis.Client) *Reader {
	return &Reader{client: client}
}

// LatestState returns the last published indicator state. ok is false when
// no state has been recorded (or it expired).
func (r *Reader) LatestState(ctx context.Context, series string) (state, ok bool, err error) {
	v, err := r.client.Get(ctx, model.StateKey(series)).Result()
	if err == goredis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("redis get state: %w", err)
	}
	return v == "1", true, nil
}

// RecentToggles returns up to count toggles from the series stream, newest
// first.
func (r *Reader) RecentToggles(ctx context.Context, series string, count int64) ([]model.Toggle, error) {
	msgs, err := r.client.XRevRangeN(ctx, model.ToggleStream(series), "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange: %w", err)
	}

	toggles := make([]model.Toggle, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var tg model.Toggle
		if err := json.Unmarshal([]byte(data), &tg); err != nil {
			log.Printf("[redis-reader] bad toggle %s in %s: %v", msg.ID, series, err)
			continue
		}
		toggles = append(toggles, tg)
	}
	return toggles, nil
}

// SubscribeToggles subscribes to pub:toggle:* and forwards every message to
// out. Slow consumers drop messages. Blocks until ctx is cancelled.
func (r *Reader) SubscribeToggles(ctx context.Context, out chan<- ToggleMessage) error {
	pubsub := r.client.PSubscribe(ctx, model.ToggleChannel("*"))
	defer pubsub.Close()

	prefix := model.ToggleChannel("")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			tm := ToggleMessage{
				Series:  strings.TrimPrefix(msg.Channel, prefix),
				Payload: []byte(msg.Payload),
			}
			select {
			case out <- tm:
			default:
			}
		}
	}
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}
