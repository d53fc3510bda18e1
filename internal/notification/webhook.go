package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const httpTimeout = 10 * time.Second

// webhookPayload is the JSON body POSTed for every alert.
type webhookPayload struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message,omitempty"`
	Series  string     `json:"series,omitempty"`
	RunID   string     `json:"run_id,omitempty"`
	TS      time.Time  `json:"ts"`
}

// WebhookNotifier POSTs alerts as JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: httpTimeout},
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	err := postJSON(ctx, w.client, w.url, webhookPayload{
		Level:   alert.Level,
		Title:   alert.Title,
		Message: alert.Message,
		Series:  alert.Series,
		RunID:   alert.RunID,
		TS:      w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	log.Printf("[webhook] delivered %q", alert.Title)
	return nil
}

// postJSON sends v as a JSON body and treats any non-2xx answer as an error.
func postJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
