package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// TelegramNotifier sends alerts via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API host. Used in tests.
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = u
	return t
}

func (t *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	body, _ := json.Marshal(map[string]any{
		"chat_id":              t.chatID,
		"text":                 msg.Text,
		"parse_mode":           "HTML",
		"disable_notification": msg.Silent,
	})

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return t.do(req)
}

// SendFile uploads a document via multipart sendDocument.
func (t *TelegramNotifier) SendFile(ctx context.Context, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("telegram: open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", t.chatID); err != nil {
		return fmt.Errorf("telegram: form: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("telegram: form: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("telegram: form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("telegram: copy %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("telegram: finalize form: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendDocument", t.baseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return t.do(req)
}

func (t *TelegramNotifier) do(req *http.Request) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}
