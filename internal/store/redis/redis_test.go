package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"spiketrend/internal/model"

	goredis "github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/sony/gobreaker"
)

func expectToggle(mock redismock.ClientMock, series string, tg model.Toggle) {
	jsonData := string(tg.JSON())
	mock.ExpectXAdd(&goredis.XAddArgs{
		Stream: model.ToggleStream(series),
		MaxLen: toggleStreamMaxLen,
		Approx: true,
		Values: []interface{}{
			"index", strconv.Itoa(tg.Index),
			"state", stateValue(tg.State),
			"data", jsonData,
		},
	}).SetVal("1-0")
	mock.ExpectPublish(model.ToggleChannel(series), jsonData).SetVal(1)
}

// ────────────────────────────────────────────────────────────
// Writer
// ────────────────────────────────────────────────────────────

func TestPublishToggles_WritesStreamChannelAndState(t *testing.T) {
	db, mock := redismock.NewClientMock()
	w := NewWithClient(db, WriterConfig{})

	toggles := []model.Toggle{
		{RunID: "r1", Series: "beer", Index: 19, State: true, Value: 12},
		{RunID: "r1", Series: "beer", Index: 39, State: false, Value: 8},
	}
	for _, tg := range toggles {
		expectToggle(mock, "beer", tg)
	}
	mock.ExpectSet(model.StateKey("beer"), "0", stateTTL).SetVal("OK")

	if err := w.PublishToggles(context.Background(), "beer", toggles); err != nil {
		t.Fatalf("PublishToggles: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPublishToggles_EmptyIsNoop(t *testing.T) {
	db, mock := redismock.NewClientMock()
	w := NewWithClient(db, WriterConfig{})

	if err := w.PublishToggles(context.Background(), "beer", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPublishToggles_BreakerOpens(t *testing.T) {
	db, mock := redismock.NewClientMock()
	w := NewWithClient(db, WriterConfig{MaxFailures: 2, ResetTimeout: time.Minute})

	var transitions []gobreaker.State
	w.OnStateChange = func(_, to gobreaker.State) { transitions = append(transitions, to) }

	tg := model.Toggle{Series: "beer", Index: 3, State: true}
	boom := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		mock.ExpectXAdd(&goredis.XAddArgs{
			Stream: model.ToggleStream("beer"),
			MaxLen: toggleStreamMaxLen,
			Approx: true,
			Values: []interface{}{
				"index", strconv.Itoa(tg.Index),
				"state", "1",
				"data", string(tg.JSON()),
			},
		}).SetErr(boom)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := w.PublishToggles(ctx, "beer", []model.Toggle{tg})
		if err == nil || errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d: expected redis error, got %v", i, err)
		}
	}

	if w.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %v", w.BreakerState())
	}
	err := w.PublishToggles(ctx, "beer", []model.Toggle{tg})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("expected one transition to open, got %v", transitions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// ────────────────────────────────────────────────────────────
// Reader
// ────────────────────────────────────────────────────────────

func TestLatestState(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewReaderWithClient(db)
	ctx := context.Background()

	mock.ExpectGet(model.StateKey("beer")).SetVal("1")
	state, ok, err := r.LatestState(ctx, "beer")
	if err != nil || !ok || !state {
		t.Errorf("expected (true, true, nil), got (%v, %v, %v)", state, ok, err)
	}

	mock.ExpectGet(model.StateKey("wine")).RedisNil()
	state, ok, err = r.LatestState(ctx, "wine")
	if err != nil || ok || state {
		t.Errorf("expected (false, false, nil), got (%v, %v, %v)", state, ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRecentToggles(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewReaderWithClient(db)

	newest := model.Toggle{Series: "beer", Index: 39, State: false}
	oldest := model.Toggle{Series: "beer", Index: 19, State: true}
	mock.ExpectXRevRangeN(model.ToggleStream("beer"), "+", "-", 10).SetVal([]goredis.XMessage{
		{ID: "2-0", Values: map[string]interface{}{"data": string(newest.JSON())}},
		{ID: "1-5", Values: map[string]interface{}{"data": "not json"}},
		{ID: "1-0", Values: map[string]interface{}{"data": string(oldest.JSON())}},
	})

	got, err := r.RecentToggles(context.Background(), "beer", 10)
	if err != nil {
		t.Fatalf("RecentToggles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 toggles (bad entry skipped), got %d", len(got))
	}
	if got[0].Index != 39 || got[1].Index != 19 || !got[1].State {
		t.Errorf("unexpected toggles: %+v", got)
	}
}
