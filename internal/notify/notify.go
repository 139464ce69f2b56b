// Package notify sends push notifications via Pushover. Notifications are
// best effort: failures are logged and swallowed, never surfaced to the
// code paths that trigger them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the Pushover message API.
const DefaultEndpoint = "https://api.pushover.net/1/messages.json"

// Notifier delivers a short message to the site owner.
type Notifier interface {
	Push(ctx context.Context, message string)
}

// Pushover sends messages through the Pushover API. Missing credentials
// disable delivery without error.
type Pushover struct {
	user     string
	token    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Pushover notifier.
type Option func(*Pushover)

// WithEndpoint overrides the API endpoint. Test use only.
func WithEndpoint(endpoint string) Option {
	return func(p *Pushover) { p.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pushover) { p.client = client }
}

// NewPushover creates a notifier with a short request timeout so a slow
// notification API cannot stall a tool call.
func NewPushover(user, token string, logger *slog.Logger, opts ...Option) *Pushover {
	p := &Pushover{
		user:     user,
		token:    token,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 2 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push delivers message. Unconfigured credentials skip delivery; any
// transport or API failure is logged and dropped.
func (p *Pushover) Push(ctx context.Context, message string) {
	if p.user == "" || p.token == "" {
		p.logger.Debug("pushover not configured, skipping notification")
		return
	}

	form := url.Values{
		"user":    {p.user},
		"token":   {p.token},
		"message": {message},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		p.logger.Error("building notification request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("push notification failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		p.logger.Error("push notification rejected",
			"status", fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
		return
	}
	p.logger.Debug("push notification sent")
}

// Nop discards all notifications.
type Nop struct{}

// Push implements Notifier.
func (Nop) Push(context.Context, string) {}
