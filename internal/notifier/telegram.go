package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"AstroSwap/internal/model"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	APIBase  string
	BotToken string
	ChatID   string
	Client   *http.Client
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		APIBase:  DefaultTelegramAPI,
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send posts text to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry retries Send with exponential backoff: 1s, 2s, 4s, ...
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = t.Send(ctx, text)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		backoff := time.Second << attempt
		log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", attempt+1, maxRetries+1, lastErr, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

// TelegramObserver mirrors actionable events to the chat. Sending happens
// on a background goroutine so slow Telegram calls never hold up a broadcast.
type TelegramObserver struct {
	notifier *TelegramNotifier
	queue    chan string
}

// NewTelegramObserver creates an observer; call Run to start sending.
func NewTelegramObserver(tn *TelegramNotifier) *TelegramObserver {
	return &TelegramObserver{notifier: tn, queue: make(chan string, 32)}
}

func (o *TelegramObserver) ID() string { return "telegram-" + o.notifier.ChatID }

// Deliver formats evt and queues it. Routine events are dropped silently.
func (o *TelegramObserver) Deliver(evt model.Event) error {
	text := FormatEvent(evt)
	if text == "" {
		return nil
	}
	select {
	case o.queue <- text:
	default:
		log.Printf("[WARN] telegram queue full, dropping %s event", evt.Type)
	}
	return nil
}

// Run sends queued messages until ctx is cancelled.
func (o *TelegramObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-o.queue:
			if err := o.notifier.SendWithRetry(ctx, text, 3); err != nil {
				log.Printf("[ERROR] send notification: %v", err)
			}
		}
	}
}
