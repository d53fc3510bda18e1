// cmd/filtergateway serves filter runs over HTTP and streams toggle events
// to WebSocket clients.
//
// Routes:
//
//	POST /api/filter            run the filter on posted or stored values
//	GET  /api/runs/{id}         stored run with cleaned series and toggles
//	GET  /api/series            stored series names
//	GET  /api/toggles/{series}  indicator state and recent toggles (Redis)
//	GET  /api/latest            last message per WS channel
//	GET  /api/missed            replay range for a channel
//	WS   /ws                    live toggles and runtime metrics
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spiketrend/config"
	"spiketrend/internal/gateway"
	"spiketrend/internal/logger"
	"spiketrend/internal/metrics"
	"spiketrend/internal/notification"
	"spiketrend/internal/pipeline"
	"spiketrend/internal/reference"
	redisstore "spiketrend/internal/store/redis"
	sqlitestore "spiketrend/internal/store/sqlite"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

var processStart = time.Now()

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[filtergateway] starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[filtergateway] config: %v", err)
	}
	slogger := logger.Init("filtergateway", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus(cfg.RedisEnabled())

	smoothers, err := reference.Build(cfg.ReferenceSpecs())
	if err != nil {
		log.Fatalf("[filtergateway] references: %v", err)
	}
	deps := pipeline.Deps{
		Metrics:   prom,
		Health:    health,
		Smoothers: smoothers,
		Logger:    slogger,
		Notifier: notification.Build(notification.Options{
			WebhookURL:       cfg.WebhookURL,
			TelegramBotToken: cfg.TelegramBotToken,
			TelegramChatID:   cfg.TelegramChatID,
			Logger:           slogger,
		}),
	}
	api := &gateway.API{}

	// ---- SQLite ----
	var sqlDB *sql.DB
	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[filtergateway] WARNING: mkdir %s: %v", dir, err)
		}
	}
	if w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath}); err != nil {
		log.Printf("[filtergateway] WARNING: sqlite disabled: %v", err)
	} else {
		defer w.Close()
		deps.Series = w
		deps.Runs = w
		sqlDB = w.DB()
		health.SetSQLiteOK(true)

		r, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[filtergateway] sqlite reader: %v", err)
		}
		defer r.Close()
		api.Runs = r
		api.Series = r
	}

	hub := gateway.NewHub(prom)
	api.Hub = hub

	// ---- Redis ----
	var rdb *goredis.Client
	var relay *redisstore.Reader
	if cfg.RedisEnabled() {
		rw, err := redisstore.New(redisstore.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Fatalf("[filtergateway] redis: %v", err)
		}
		defer rw.Close()
		rw.OnStateChange = prom.ObserveBreaker
		deps.Publisher = rw
		rdb = rw.Client()
		health.SetRedisConnected(true)

		relay, err = redisstore.NewReader(redisstore.ReaderConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Fatalf("[filtergateway] redis reader: %v", err)
		}
		defer relay.Close()
		api.Toggles = relay
		log.Printf("[filtergateway] redis connected at %s", cfg.RedisAddr)
	} else {
		// Without Redis the hub is fed directly by this process.
		deps.OnToggle = hub.BroadcastToggle
		log.Println("[filtergateway] REDIS_ADDR not set, toggles are broadcast locally only")
	}

	svc, err := pipeline.New(cfg.Filter, pipeline.Options{Workers: cfg.Workers, SaveSeries: true}, deps)
	if err != nil {
		log.Fatalf("[filtergateway] %v", err)
	}
	api.Runner = svc

	// ---- Metrics + health ----
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health, nil)
	metricsSrv.Start()
	health.StartLivenessChecker(ctx, rdb, sqlDB, 15*time.Second)

	// ---- HTTP ----
	mux := http.NewServeMux()
	api.Register(mux)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[filtergateway] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		hub.StartMetricsBroadcast(gctx, processStart, 2*time.Second)
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			hub.Relay(gctx, relay)
			return nil
		})
	}
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Printf("[filtergateway] received %v, shutting down...", sig)
		case <-gctx.Done():
		}
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
		metricsSrv.Stop(shutdownCtx)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("[filtergateway] %v", err)
	}
	slogger.Info("stopped", "uptime", time.Since(processStart).String())
}
