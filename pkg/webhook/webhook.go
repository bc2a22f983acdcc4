// Package webhook posts run reports to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ccollicutt/logwarden/pkg/report"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// EventRunCompleted is the event name of every payload.
const EventRunCompleted = "run.completed"

// Payload is the JSON document posted to a webhook.
type Payload struct {
	Event    string         `json:"event"`
	Host     string         `json:"host,omitempty"`
	Findings bool           `json:"findings"`
	Report   *report.Report `json:"report"`
}

// Client sends run reports to webhook endpoints.
type Client struct {
	httpClient *http.Client
	host       string
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	host, _ := os.Hostname()
	return &Client{
		httpClient: &http.Client{},
		host:       host,
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a run report to a webhook endpoint.
func (c *Client) Send(ctx context.Context, rep *report.Report, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := json.Marshal(Payload{
		Event:    EventRunCompleted,
		Host:     c.host,
		Findings: rep.HasFindings(),
		Report:   rep,
	})
	if err != nil {
		resp.Error = fmt.Errorf("failed to marshal report: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "logwarden-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// Trigger determines when a target fires.
type Trigger string

const (
	TriggerOnIssues Trigger = "on_issues"
	TriggerAlways   Trigger = "always"
	TriggerNever    Trigger = "never"
)

// ShouldFire reports whether a target with this trigger fires for a run.
// Unknown triggers behave like on_issues.
func (t Trigger) ShouldFire(hasFindings bool) bool {
	switch t {
	case TriggerAlways:
		return true
	case TriggerNever:
		return false
	default:
		return hasFindings
	}
}

// Target is one configured endpoint.
type Target struct {
	Name    string
	URL     string
	Token   string
	Trigger Trigger
	Timeout time.Duration
}

func (t Target) label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.URL
}

// Notify sends rep to every target whose trigger fires. Failures are
// logged and returned per target; they never stop the other targets.
func (c *Client) Notify(ctx context.Context, rep *report.Report, targets []Target, logger *slog.Logger) map[string]*Response {
	if logger == nil {
		logger = slog.Default()
	}
	results := make(map[string]*Response, len(targets))
	for _, t := range targets {
		if !t.Trigger.ShouldFire(rep.HasFindings()) {
			continue
		}

		resp := c.Send(ctx, rep, SendOptions{URL: t.URL, Token: t.Token, Timeout: t.Timeout})
		results[t.label()] = resp

		if resp.Success() {
			logger.Info("webhook sent", "webhook", t.label(), "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			logger.Warn("webhook failed", "webhook", t.label(), "error", resp.Error)
		}
	}
	return results
}
