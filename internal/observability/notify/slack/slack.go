// Package slack posts grievance escalations to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/civicconnect/portal/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// PortalURL, when set, turns tracking numbers into links to the public tracking page.
	PortalURL string
}

// Client delivers grievance alerts to a Slack webhook.
type Client struct {
	webhookURL string
	channel    string
	username   string
	retryLimit int
	portalURL  string
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL: webhookURL,
		channel:    strings.TrimSpace(cfg.Channel),
		username:   fallbackString(strings.TrimSpace(cfg.Username), "civic-portal"),
		retryLimit: max(cfg.RetryLimit, 0),
		portalURL:  strings.TrimSpace(cfg.PortalURL),
		client:     hc,
	}, nil
}

// SendGrievanceAlert posts a formatted message to Slack.
func (c *Client) SendGrievanceAlert(ctx context.Context, alert notify.GrievanceAlert) error {
	body, err := json.Marshal(c.formatMessage(alert))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if err = c.post(ctx, body); err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (c *Client) formatMessage(alert notify.GrievanceAlert) map[string]any {
	timestamp := alert.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Grievance escalation*")
	if ref := c.trackingValue(alert.TrackingNumber); ref != "" {
		text.WriteByte(' ')
		text.WriteString(ref)
	}
	text.WriteByte('\n')

	fields := []struct{ label, value string }{
		{"Severity", fallbackString(alert.Severity, notify.SeverityCritical)},
		{"Priority", alert.Priority},
		{"Category", alert.Category},
		{"Title", escapeSlackText(alert.Title)},
		{"Address", escapeSlackText(alert.Address)},
		{"Location", formatCoordinate(alert.Latitude, alert.Longitude)},
		{"Reporter", escapeSlackText(alert.ReporterEmail)},
	}
	for _, f := range fields {
		appendSlackField(&text, f.label, f.value)
	}
	appendSlackMetadata(&text, alert.Metadata)
	text.WriteString("• Filed: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

// trackingValue links the tracking number when a portal URL is configured.
func (c *Client) trackingValue(tracking string) string {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return ""
	}
	id := escapeSlackText(tracking)
	if link := c.trackingLink(tracking); link != "" {
		return fmt.Sprintf("<%s|%s>", link, id)
	}
	return "`" + id + "`"
}

func (c *Client) trackingLink(tracking string) string {
	if c.portalURL == "" {
		return ""
	}
	u, err := url.Parse(c.portalURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), "track", tracking)
	if err != nil {
		return ""
	}
	return link
}

func formatCoordinate(lat, lng float64) string {
	if lat == 0 && lng == 0 {
		return ""
	}
	return strconv.FormatFloat(lat, 'f', 5, 64) + ", " + strconv.FormatFloat(lng, 'f', 5, 64)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain slack response body: %w", err)
	}
	return nil
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(value)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func appendSlackField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendSlackMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(escapeSlackText(metadata[k]))
		text.WriteByte('\n')
	}
}
