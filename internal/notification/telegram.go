package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier posts alerts to a chat through the Bot API sendMessage
// method, formatted as MarkdownV2.
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiURL   string
	client   *http.Client
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		apiURL:   telegramAPI,
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// WithAPIURL points the notifier at a different Bot API host.
func (t *TelegramNotifier) WithAPIURL(u string) *TelegramNotifier {
	t.apiURL = strings.TrimRight(u, "/")
	return t
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	url := t.apiURL + "/bot" + t.botToken + "/sendMessage"
	msg := telegramMessage{ChatID: t.chatID, Text: formatTelegram(alert), ParseMode: "MarkdownV2"}
	if err := postJSON(ctx, t.client, url, msg); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.Printf("[telegram] delivered %q to chat %s", alert.Title, t.chatID)
	return nil
}

func formatTelegram(alert Alert) string {
	var b strings.Builder
	b.WriteString(levelIcon(alert.Level))
	b.WriteString(" *")
	b.WriteString(escapeMarkdown(alert.Title))
	b.WriteString("*")
	if alert.Message != "" {
		b.WriteString("\n\n")
		b.WriteString(escapeMarkdown(alert.Message))
	}
	if alert.RunID != "" {
		b.WriteString("\n_run ")
		b.WriteString(escapeMarkdown(alert.RunID))
		b.WriteString("_")
	}
	return b.String()
}

func levelIcon(l AlertLevel) string {
	switch l {
	case AlertCritical:
		return "🚨"
	case AlertWarning:
		return "📈"
	default:
		return "📉"
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// escapeMarkdown escapes the MarkdownV2 reserved characters.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
