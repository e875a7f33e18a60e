package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/vibechat/internal/agent"
	"github.com/harunnryd/vibechat/internal/model/contract"

	"github.com/gofrs/flock"
)

func TestSaveTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "chat.json")
	result := &agent.Result{
		RunID:      "01HZZZ",
		Iterations: 2,
		Duration:   1500 * time.Millisecond,
		Messages: []contract.Message{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello"},
		},
	}

	if err := saveTranscript(path, result); err != nil {
		t.Fatalf("saveTranscript() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	var got transcript
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("transcript is not JSON: %v", err)
	}
	if got.RunID != "01HZZZ" || got.Iterations != 2 || got.Duration != "1.5s" {
		t.Errorf("unexpected transcript header: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Errorf("unexpected transcript messages: %+v", got.Messages)
	}
}

func TestWriteFileLocked_RefusesWhenLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	holder := flock.New(path + ".lock")
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("failed to take lock: %v", err)
	}
	defer holder.Unlock()

	err = writeFileLocked(path, []byte("{}"))
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("writeFileLocked() error = %v, want lock error", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("file must not be written while locked")
	}
}

func TestStatusPrinter(t *testing.T) {
	var buf bytes.Buffer
	obs := statusPrinter(&buf)

	obs.OnStatus(agent.Status{Kind: agent.StatusThinking, Iteration: 1})
	obs.OnStatus(agent.Status{Kind: agent.StatusExecuting, Tool: "get_weather", Iteration: 1})

	want := "[1] thinking\n[1] executing:get_weather\n"
	if buf.String() != want {
		t.Fatalf("status output = %q, want %q", buf.String(), want)
	}
}
