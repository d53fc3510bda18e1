// cmd/spikefilter runs the spike filter and trend indicator over one series
// and prints the toggle events.
//
// Usage:
//
//	go run ./cmd/spikefilter --synthetic --chart=beer.html
//	go run ./cmd/spikefilter --input=beer.csv --column=1 --window=4 --threshold=1.3 --save
//	go run ./cmd/spikefilter --from-db --series=beer --publish
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spiketrend/config"
	"spiketrend/internal/logger"
	"spiketrend/internal/model"
	"spiketrend/internal/notification"
	"spiketrend/internal/pipeline"
	"spiketrend/internal/reference"
	"spiketrend/internal/report"
	redisstore "spiketrend/internal/store/redis"
	sqlitestore "spiketrend/internal/store/sqlite"
	"spiketrend/internal/synth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	configPath := flag.String("config", "", "YAML config file (overrides CONFIG_FILE)")
	input := flag.String("input", "", "CSV file to read, '-' for stdin")
	column := flag.Int("column", 0, "CSV column holding the samples (0-based)")
	seriesName := flag.String("series", "", "Series name (required with --from-db)")
	fromDB := flag.Bool("from-db", false, "Load the series from SQLite")
	synthetic := flag.Bool("synthetic", false, "Generate the synthetic beer series")
	seed := flag.Int64("seed", synth.DefaultConfig().Seed, "Seed for --synthetic")
	window := flag.Int("window", 0, "Denoise window (default from config)")
	threshold := flag.Float64("threshold", 0, "Deviation threshold (default from config)")
	trendWindow := flag.Int("trend-window", 0, "Trend window (default from config)")
	trendThreshold := flag.Float64("trend-threshold", 0, "Trend threshold (default: threshold)")
	workers := flag.Int("workers", 0, "Denoise workers (default from config)")
	refs := flag.String("refs", "", "Reference filters TYPE:ARGS,... (default from config)")
	chartPath := flag.String("chart", "", "Write an HTML chart to this path")
	save := flag.Bool("save", false, "Store the series and run in SQLite")
	publish := flag.Bool("publish", false, "Publish toggles to Redis")
	notify := flag.Bool("notify", false, "Send toggle alerts to the configured backends")
	flag.Parse()

	cfg := config.FromEnv()
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG_FILE")
	}
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			log.Fatalf("[spikefilter] %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "window":
			cfg.Filter.Window = *window
		case "threshold":
			cfg.Filter.Threshold = *threshold
		case "trend-window":
			cfg.Filter.TrendWindow = *trendWindow
		case "trend-threshold":
			cfg.Filter.TrendThreshold = *trendThreshold
		case "workers":
			cfg.Workers = *workers
		case "refs":
			cfg.References = *refs
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[spikefilter] %v", err)
	}

	slogger := logger.InitWriter(os.Stderr, "spikefilter", logger.ParseLevel(cfg.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// ---- Load series ----
	series, err := loadSeries(ctx, cfg, *input, *column, *seriesName, *fromDB, *synthetic, *seed)
	if err != nil {
		log.Fatalf("[spikefilter] %v", err)
	}
	log.Printf("[spikefilter] loaded %q: %d samples", series.Name, len(series.Values))

	// ---- Collaborators ----
	smoothers, err := reference.Build(cfg.ReferenceSpecs())
	if err != nil {
		log.Fatalf("[spikefilter] %v", err)
	}
	deps := pipeline.Deps{Smoothers: smoothers, Logger: slogger}

	if *save {
		w, err := openWriter(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("[spikefilter] %v", err)
		}
		defer w.Close()
		deps.Series = w
		deps.Runs = w
	}
	if *publish {
		if !cfg.RedisEnabled() {
			log.Fatal("[spikefilter] --publish requires REDIS_ADDR")
		}
		rw, err := redisstore.New(redisstore.WriterConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err != nil {
			log.Fatalf("[spikefilter] %v", err)
		}
		defer rw.Close()
		deps.Publisher = rw
	}
	if *notify {
		deps.Notifier = notification.Build(notification.Options{
			WebhookURL:       cfg.WebhookURL,
			TelegramBotToken: cfg.TelegramBotToken,
			TelegramChatID:   cfg.TelegramChatID,
			Logger:           slogger,
		})
	}

	svc, err := pipeline.New(cfg.Filter, pipeline.Options{Workers: cfg.Workers, SaveSeries: *save}, deps)
	if err != nil {
		log.Fatalf("[spikefilter] %v", err)
	}

	// ---- Run ----
	out, err := svc.Process(ctx, series)
	if err != nil && out == nil {
		log.Fatalf("[spikefilter] run failed: %v", err)
	}
	report.WriteSummary(os.Stdout, out.Run)
	report.WriteToggles(os.Stdout, out.Run)
	if err != nil {
		log.Fatalf("[spikefilter] %v", err)
	}

	if *chartPath != "" {
		if err := writeChart(*chartPath, out); err != nil {
			log.Fatalf("[spikefilter] chart: %v", err)
		}
		fmt.Printf("chart written to %s\n", *chartPath)
	}
}

func loadSeries(ctx context.Context, cfg *config.Config, input string, column int, name string, fromDB, synthetic bool, seed int64) (model.Series, error) {
	switch {
	case synthetic:
		sc := synth.DefaultConfig()
		sc.Seed = seed
		values, err := synth.Generate(sc)
		if name == "" {
			name = "beer"
		}
		return model.Series{Name: name, Values: values}, err

	case fromDB:
		if name == "" {
			return model.Series{}, fmt.Errorf("--from-db requires --series")
		}
		r, err := sqlitestore.NewReader(cfg.SQLitePath)
		if err != nil {
			return model.Series{}, err
		}
		defer r.Close()
		values, err := r.ReadSeries(ctx, name)
		return model.Series{Name: name, Values: values}, err

	case input != "":
		var src io.Reader = os.Stdin
		if input != "-" {
			f, err := os.Open(input)
			if err != nil {
				return model.Series{}, err
			}
			defer f.Close()
			src = f
			if name == "" {
				name = trimExt(filepath.Base(input))
			}
		}
		values, err := readCSV(src, column)
		return model.Series{Name: pipeline.SeriesName(name, time.Now()), Values: values}, err
	}
	return model.Series{}, fmt.Errorf("no input: use --input, --from-db or --synthetic")
}

func openWriter(path string) (*sqlitestore.Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return sqlitestore.New(sqlitestore.WriterConfig{DBPath: path})
}

func writeChart(path string, out *pipeline.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.RenderChart(f, out.Run, out.References, report.DefaultChartOptions()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
