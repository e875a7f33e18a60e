package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harunnryd/vibechat/internal/completion"
	"github.com/harunnryd/vibechat/internal/suggest"
)

func vibeAskServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		var req suggest.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"start\",\"message\":\"Starting...\"}\n\n")
		if strings.Contains(req.Question, "fail") {
			fmt.Fprint(w, "data: {\"type\":\"error\",\"message\":\"Error: upstream down\"}\n\n")
			return
		}
		fmt.Fprintf(w, "data: {\"type\":\"content\",\"text\":\" [%s]\"}\n\n", req.Mode)
		fmt.Fprint(w, "data: {\"type\":\"complete\",\"message\":\"Complete\"}\n\n")
	}))
}

func TestStreamOnce(t *testing.T) {
	server := vibeAskServer(t, nil)
	defer server.Close()

	var out bytes.Buffer
	client := suggest.NewClient(server.URL, nil, 3)
	if err := streamOnce(context.Background(), client, "how do", completion.ModeAnalysis, &out); err != nil {
		t.Fatalf("streamOnce() error: %v", err)
	}
	if out.String() != " [analysis]\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestStreamOnce_ErrorEvent(t *testing.T) {
	server := vibeAskServer(t, nil)
	defer server.Close()

	var out bytes.Buffer
	client := suggest.NewClient(server.URL, nil, 3)
	err := streamOnce(context.Background(), client, "please fail", completion.ModeCompletion, &out)
	if err == nil || err.Error() != "Error: upstream down" {
		t.Fatalf("streamOnce() error = %v", err)
	}
}

func TestWatchSuggestions_OnlyLatestInput(t *testing.T) {
	var requests atomic.Int32
	server := vibeAskServer(t, &requests)
	defer server.Close()

	var out bytes.Buffer
	client := suggest.NewClient(server.URL, nil, 3)
	in := strings.NewReader("wh\nwhat\nwhat is\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := watchSuggestions(ctx, client, 30*time.Millisecond, in, &out); err != nil {
		t.Fatalf("watchSuggestions() error: %v", err)
	}

	if got := requests.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if out.String() != "what is -> what is [completion]\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestWatchSuggestions_ShortLastInput(t *testing.T) {
	var requests atomic.Int32
	server := vibeAskServer(t, &requests)
	defer server.Close()

	var out bytes.Buffer
	client := suggest.NewClient(server.URL, nil, 3)
	if err := watchSuggestions(context.Background(), client, 10*time.Millisecond, strings.NewReader("hello\nhi\n"), &out); err != nil {
		t.Fatalf("watchSuggestions() error: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if got := requests.Load(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}
