package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spiketrend/internal/filter"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"FILTER_WINDOW", "FILTER_THRESHOLD", "TREND_WINDOW", "TREND_THRESHOLD",
		"FILTER_WORKERS", "REFERENCE_FILTERS", "SQLITE_PATH", "REDIS_ADDR", "HTTP_ADDR"} {
		t.Setenv(k, "")
	}

	c := FromEnv()
	if c.Filter.Window != 4 || c.Filter.Threshold != 1.3 || c.Filter.TrendWindow != 2 || c.Filter.TrendThreshold != 0 {
		t.Errorf("unexpected filter defaults: %+v", c.Filter)
	}
	if c.SQLitePath != "data/series.db" || c.HTTPAddr != ":8080" || c.RedisEnabled() {
		t.Errorf("unexpected infra defaults: %+v", c)
	}
	if specs := c.ReferenceSpecs(); len(specs) != 2 {
		t.Errorf("expected 2 reference specs, got %v", specs)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("FILTER_WINDOW", "2")
	t.Setenv("FILTER_THRESHOLD", "1.5")
	t.Setenv("TREND_THRESHOLD", "2.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("FILTER_WORKERS", "oops")

	c := FromEnv()
	if c.Filter.Window != 2 || c.Filter.Threshold != 1.5 || c.Filter.TrendThreshold != 2.5 {
		t.Errorf("env not applied: %+v", c.Filter)
	}
	if !c.RedisEnabled() {
		t.Error("expected redis enabled")
	}
	if c.Workers != 1 {
		t.Errorf("invalid FILTER_WORKERS should fall back to 1, got %d", c.Workers)
	}
}

func TestApplyFile(t *testing.T) {
	t.Setenv("FILTER_WINDOW", "")
	t.Setenv("SQLITE_PATH", "")
	path := filepath.Join(t.TempDir(), "spiketrend.yaml")
	yml := "filter:\n  window: 6\nsqlite_path: /tmp/x.db\nworkers: 3\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	c := FromEnv()
	if err := c.ApplyFile(path); err != nil {
		t.Fatalf("ApplyFile: %v", err)
	}
	if c.Filter.Window != 6 || c.SQLitePath != "/tmp/x.db" || c.Workers != 3 {
		t.Errorf("file not applied: %+v", c)
	}
	if c.Filter.Threshold != 1.3 {
		t.Errorf("absent key must keep env value, got %v", c.Filter.Threshold)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	c := FromEnv()
	c.Filter.Window = 0
	if err := c.Validate(); !errors.Is(err, filter.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}

	c = FromEnv()
	c.Workers = 1
	c.Filter = filter.DefaultConfig()
	c.TelegramBotToken = "token"
	c.TelegramChatID = ""
	if err := c.Validate(); err == nil {
		t.Error("expected telegram pairing error")
	}
}
