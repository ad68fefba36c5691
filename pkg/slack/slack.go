// Package slack posts messages to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout    = 15 * time.Second
	maxErrorBodyBytes = 1024
)

// ErrNoWebhook is returned when no webhook URL is configured.
var ErrNoWebhook = errors.New("slack webhook url is not configured")

// PostError is a non-2xx response from the webhook.
type PostError struct {
	StatusCode int
	Body       string
}

func (e *PostError) Error() string {
	return fmt.Sprintf("slack webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Webhook posts to one incoming webhook URL.
type Webhook struct {
	log  logrus.FieldLogger
	url  string
	http *http.Client
}

// NewWebhook creates a Webhook. A nil client uses a default with a timeout.
func NewWebhook(log logrus.FieldLogger, url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &Webhook{
		log:  log.WithField("component", "slack"),
		url:  url,
		http: client,
	}
}

type message struct {
	Text string `json:"text"`
}

// Post sends text as a single message.
func (w *Webhook) Post(ctx context.Context, text string) error {
	if w.url == "" {
		return ErrNoWebhook
	}

	payload, err := json.Marshal(message{Text: text})
	if err != nil {
		return fmt.Errorf("encoding slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating slack request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return &PostError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	w.log.WithField("bytes", len(text)).Debug("Posted message to Slack")

	return nil
}
