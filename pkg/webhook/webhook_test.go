package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ccollicutt/logwarden/pkg/report"
	"github.com/ccollicutt/logwarden/pkg/scanner"
)

func newTestReport() *report.Report {
	r := &report.Report{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Errors: []scanner.Issue{{
			Folder: "/var/log/app",
			File:   "app.log",
			Detail: "2024-01-15 09:59:00 ERROR disk full",
		}},
		Summary: report.Summary{ChecksRun: 2},
	}
	r.Summarize(r.StartedAt.Add(time.Second))
	return r
}

func TestClient_Send_Success(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedAuth string
	var receivedAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedContentType = r.Header.Get("Content-Type")
		receivedAuth = r.Header.Get("Authorization")
		receivedAgent = r.Header.Get("User-Agent")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if resp.Body != `{"status":"ok"}` {
		t.Errorf("unexpected body: %s", resp.Body)
	}

	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}

	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %s", receivedAuth)
	}

	if receivedAgent != "logwarden-webhook" {
		t.Errorf("expected User-Agent logwarden-webhook, got %s", receivedAgent)
	}

	var payload Payload
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("failed to parse received payload: %v", err)
	}

	if payload.Event != EventRunCompleted {
		t.Errorf("Event = %q, want %q", payload.Event, EventRunCompleted)
	}
	if !payload.Findings {
		t.Error("Findings = false, want true")
	}
	if payload.Report == nil || payload.Report.RunID != "run-1" {
		t.Errorf("payload report = %+v", payload.Report)
	}
	if len(payload.Report.Errors) != 1 {
		t.Errorf("payload errors = %d, want 1", len(payload.Report.Errors))
	}
}

func TestClient_Send_WithBearerToken(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:   server.URL,
		Token: "secret-token-123",
	})

	if !resp.Success() {
		t.Errorf("expected success, got error: %v", resp.Error)
	}

	if receivedAuth != "Bearer secret-token-123" {
		t.Errorf("expected Bearer token, got %s", receivedAuth)
	}
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: server.URL,
	})

	if resp.Success() {
		t.Error("expected failure, got success")
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     server.URL,
		Timeout: 50 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure due to timeout")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_InvalidURL(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL: "://invalid-url",
	})

	if resp.Success() {
		t.Error("expected failure for invalid URL")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestClient_Send_ConnectionRefused(t *testing.T) {
	client := NewClient()
	report := newTestReport()

	resp := client.Send(context.Background(), report, SendOptions{
		URL:     "http://127.0.0.1:59999", // Unlikely to be listening
		Timeout: 100 * time.Millisecond,
	})

	if resp.Success() {
		t.Error("expected failure for connection refused")
	}

	if resp.Error == nil {
		t.Error("expected error to be set")
	}
}

func TestResponse_Success(t *testing.T) {
	tests := []struct {
		name        string
		resp        Response
		wantSuccess bool
	}{
		{"200 OK", Response{StatusCode: 200}, true},
		{"201 Created", Response{StatusCode: 201}, true},
		{"204 No Content", Response{StatusCode: 204}, true},
		{"400 Bad Request", Response{StatusCode: 400}, false},
		{"500 Server Error", Response{StatusCode: 500}, false},
		{"With Error", Response{StatusCode: 200, Error: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Success(); got != tt.wantSuccess {
				t.Errorf("Success() = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}

func TestTrigger_ShouldFire(t *testing.T) {
	tests := []struct {
		trigger     Trigger
		hasFindings bool
		want        bool
	}{
		{TriggerAlways, false, true},
		{TriggerAlways, true, true},
		{TriggerNever, true, false},
		{TriggerOnIssues, true, true},
		{TriggerOnIssues, false, false},
		{"", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		if got := tt.trigger.ShouldFire(tt.hasFindings); got != tt.want {
			t.Errorf("Trigger(%q).ShouldFire(%v) = %v, want %v", tt.trigger, tt.hasFindings, got, tt.want)
		}
	}
}

func TestClient_Notify(t *testing.T) {
	var hits []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	targets := []Target{
		{Name: "ops", URL: server.URL + "/ops", Trigger: TriggerOnIssues},
		{Name: "off", URL: server.URL + "/off", Trigger: TriggerNever},
		{URL: server.URL + "/broken", Trigger: TriggerAlways},
		{Name: "audit", URL: server.URL + "/audit", Trigger: TriggerAlways},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	results := NewClient().Notify(context.Background(), newTestReport(), targets, logger)

	if len(hits) != 3 {
		t.Fatalf("hits = %v, want 3 requests", hits)
	}
	if _, ok := results["off"]; ok {
		t.Error("never trigger should not fire")
	}
	if !results["ops"].Success() || !results["audit"].Success() {
		t.Error("ops and audit should succeed")
	}
	if results[server.URL+"/broken"].Success() {
		t.Error("broken endpoint should fail without stopping later targets")
	}
}

func TestClient_Notify_NoFindings(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	results := NewClient().Notify(context.Background(), &report.Report{}, []Target{{URL: server.URL}}, nil)
	if called || len(results) != 0 {
		t.Error("default trigger should not fire without findings")
	}
}
