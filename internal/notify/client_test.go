package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkarpenko/attendance-system/internal/report"
)

func TestSend(t *testing.T) {
	var received report.Message

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/messages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	msg := report.Message{Kind: report.KindDailySummary, Title: "test", Lines: []string{"a"}}
	retryAfter, err := client.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if retryAfter != 0 {
		t.Errorf("retryAfter = %v, want 0", retryAfter)
	}
	if received.Kind != msg.Kind || received.Title != msg.Title {
		t.Errorf("relay received %+v, want %+v", received, msg)
	}
}

func TestSend_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	retryAfter, err := client.Send(context.Background(), report.Message{Kind: report.KindLedger})
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if retryAfter.Seconds() != 3 {
		t.Errorf("retryAfter = %v, want 3s", retryAfter)
	}
}

func TestSend_NotConfigured(t *testing.T) {
	var client *Client
	if _, err := client.Send(context.Background(), report.Message{}); err == nil {
		t.Fatal("expected error for nil client")
	}

	empty := NewClient("")
	if _, err := empty.Send(context.Background(), report.Message{}); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestSend_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	if _, err := client.Send(context.Background(), report.Message{}); err == nil {
		t.Fatal("expected error on 502")
	}
}
