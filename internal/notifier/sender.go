package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LogSender writes reminders to the logger. It never fails.
type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Log.Info("reminder", "recipient", msg.Recipient, "event", msg.EventID, "text", msg.Text)
	return nil
}

// WebhookSender POSTs each reminder as JSON. Any non-2xx answer is a failed
// delivery.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

type webhookPayload struct {
	Recipient  int64  `json:"recipient"`
	EventID    int64  `json:"event_id"`
	Title      string `json:"title"`
	StartAt    string `json:"start_at"`
	LocalStart string `json:"local_start"`
	Zone       string `json:"zone"`
	Text       string `json:"text"`
}

func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Recipient:  msg.Recipient,
		EventID:    msg.EventID,
		Title:      msg.Title,
		StartAt:    msg.StartAt.UTC().Format(time.RFC3339),
		LocalStart: msg.LocalStart.Format(time.RFC3339),
		Zone:       msg.Zone,
		Text:       msg.Text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}
