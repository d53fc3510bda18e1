// Package notification delivers indicator toggle alerts to external
// channels (log, webhook, Telegram).
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spiketrend/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Series  string     `json:"series,omitempty"`
	RunID   string     `json:"run_id,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// AlertForToggle builds the alert for a single indicator flip. Turning on
// is a warning, turning off is informational.
func AlertForToggle(tg model.Toggle) Alert {
	level := AlertInfo
	if tg.State {
		level = AlertWarning
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("%s trend %s", tg.Series, tg.Label()),
		Message: fmt.Sprintf("indicator turned %s at index %d (value %.4g)", tg.Label(), tg.Index, tg.Value),
		Series:  tg.Series,
		RunID:   tg.RunID,
	}
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.logger.InfoContext(ctx, "alert",
		"level", string(alert.Level),
		"title", alert.Title,
		"message", alert.Message,
		"series", alert.Series,
		"run_id", alert.RunID,
	)
	return nil
}

// Multi fans an alert out to every notifier. All backends are attempted;
// failures are joined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options selects the alert backends.
type Options struct {
	WebhookURL       string
	TelegramBotToken string
	TelegramChatID   string
	Logger           *slog.Logger
}

// Build returns a notifier that always logs and additionally posts to every
// configured backend.
func Build(o Options) Notifier {
	m := Multi{NewLogNotifier(o.Logger)}
	if o.WebhookURL != "" {
		m = append(m, NewWebhookNotifier(o.WebhookURL))
	}
	if o.TelegramBotToken != "" && o.TelegramChatID != "" {
		m = append(m, NewTelegramNotifier(o.TelegramBotToken, o.TelegramChatID))
	}
	return m
}
