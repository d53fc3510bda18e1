package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"spiketrend/internal/filter"
	"spiketrend/internal/model"
	"spiketrend/internal/pipeline"
	sqlitestore "spiketrend/internal/store/sqlite"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Runner executes filter runs.
type Runner interface {
	Config() filter.Config
	ProcessWith(ctx context.Context, series model.Series, cfg filter.Config) (*pipeline.Outcome, error)
}

// ToggleSource serves published toggle history and state.
type ToggleSource interface {
	LatestState(ctx context.Context, series string) (state, ok bool, err error)
	RecentToggles(ctx context.Context, series string, count int64) ([]model.Toggle, error)
}

// API wires the REST and WebSocket routes. Runs, Series and Toggles are
// optional; their routes answer 503 when unset.
type API struct {
	Hub     *Hub
	Runner  Runner
	Runs    model.RunReader
	Series  model.SeriesReader
	Toggles ToggleSource
}

// FilterRequest is the body of POST /api/filter. Omitted parameters use the
// service defaults. When Values is empty the stored series is loaded.
type FilterRequest struct {
	Series         string    `json:"series"`
	Values         []float64 `json:"values"`
	Window         *int      `json:"window"`
	Threshold      *float64  `json:"threshold"`
	TrendWindow    *int      `json:"trend_window"`
	TrendThreshold *float64  `json:"trend_threshold"`
}

// Config resolves the request parameters against def.
func (req FilterRequest) Config(def filter.Config) filter.Config {
	cfg := def
	if req.Window != nil {
		cfg.Window = *req.Window
	}
	if req.Threshold != nil {
		cfg.Threshold = *req.Threshold
		if req.TrendThreshold == nil {
			cfg.TrendThreshold = 0 // follow the new threshold
		}
	}
	if req.TrendWindow != nil {
		cfg.TrendWindow = *req.TrendWindow
	}
	if req.TrendThreshold != nil {
		cfg.TrendThreshold = *req.TrendThreshold
	}
	return cfg
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Register registers all HTTP routes on the provided mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", a.handleWS)
	mux.HandleFunc("POST /api/filter", a.handleFilter)
	mux.HandleFunc("GET /api/runs/{id}", a.handleRun)
	mux.HandleFunc("GET /api/series", a.handleSeries)
	mux.HandleFunc("GET /api/toggles/{series}", a.handleToggles)
	mux.HandleFunc("GET /api/latest", a.handleLatest)
	mux.HandleFunc("GET /api/missed", a.handleMissed)
	mux.HandleFunc("OPTIONS /api/", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (a *API) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}
	a.Hub.HandleWSRequest(conn, r.URL.Query().Get("last_ts"))
}

func (a *API) handleFilter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	series := model.Series{Name: req.Series, Values: req.Values}
	if len(series.Values) == 0 && series.Name != "" {
		if a.Series == nil {
			writeError(w, http.StatusServiceUnavailable, "series storage not configured")
			return
		}
		values, err := a.Series.ReadSeries(r.Context(), series.Name)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		series.Values = values
	}
	if series.Name == "" {
		series.Name = "adhoc"
	}

	out, err := a.Runner.ProcessWith(r.Context(), series, req.Config(a.Runner.Config()))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeRun(w, &out.Run)
}

func (a *API) handleRun(w http.ResponseWriter, r *http.Request) {
	if a.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run storage not configured")
		return
	}
	run, err := a.Runs.ReadRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeRun(w, run)
}

func writeRun(w http.ResponseWriter, run *model.Run) {
	b, err := run.JSON()
	if err != nil {
		log.Printf("[gateway] %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleSeries(w http.ResponseWriter, r *http.Request) {
	if a.Series == nil {
		writeError(w, http.StatusServiceUnavailable, "series storage not configured")
		return
	}
	names, err := a.Series.ListSeries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(map[string]interface{}{"series": names})
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleToggles(w http.ResponseWriter, r *http.Request) {
	if a.Toggles == nil {
		writeError(w, http.StatusServiceUnavailable, "redis not configured")
		return
	}
	series := r.PathValue("series")
	count, _ := strconv.ParseInt(r.URL.Query().Get("count"), 10, 64)
	if count <= 0 {
		count = 100
	}

	toggles, err := a.Toggles.RecentToggles(r.Context(), series, count)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	state, known, err := a.Toggles.LatestState(r.Context(), series)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := map[string]interface{}{
		"series":  series,
		"toggles": toggles,
	}
	if known {
		resp["state"] = state
	}
	b, _ := json.Marshal(resp)
	writeJSON(w, http.StatusOK, b)
}

func (a *API) handleLatest(w http.ResponseWriter, r *http.Request) {
	b, _ := json.Marshal(a.Hub.GetLatestAll())
	writeJSON(w, http.StatusOK, b)
}

// handleMissed serves GET /api/missed?channel=&from=&to= for client gap
// backfill from the replay buffers.
func (a *API) handleMissed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	channel := q.Get("channel")
	from, err1 := strconv.ParseInt(q.Get("from"), 10, 64)
	to, err2 := strconv.ParseInt(q.Get("to"), 10, 64)
	if channel == "" || err1 != nil || err2 != nil || from > to {
		writeError(w, http.StatusBadRequest, "channel, from and to are required")
		return
	}

	envelopes := a.Hub.GetReplayRange(channel, from, to)
	raw := make([]json.RawMessage, len(envelopes))
	for i, e := range envelopes {
		raw[i] = e
	}
	b, _ := json.Marshal(map[string]interface{}{
		"channel":  channel,
		"seq":      a.Hub.GetChannelSeq(channel),
		"messages": raw,
	})
	writeJSON(w, http.StatusOK, b)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, filter.ErrInvalidParameter),
		errors.Is(err, filter.ErrEmptyInput),
		errors.Is(err, filter.ErrDegenerateWindow):
		return http.StatusBadRequest
	case errors.Is(err, sqlitestore.ErrSeriesNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	b, _ := json.Marshal(map[string]string{"error": msg})
	writeJSON(w, status, b)
}
