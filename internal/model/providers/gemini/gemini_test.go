package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/vibechat/internal/model/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_StreamYieldsCandidateText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:streamGenerateContent"), r.URL.Path)

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, text := range []string{"Hello", " world"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", text)
			flusher.Flush()
		}
	}))
	defer server.Close()

	p, err := New("test-key", server.URL+"/")
	require.NoError(t, err)

	stream, err := p.Stream(context.Background(), contract.StreamRequest{
		Model:       "gemini-test",
		UserPrompt:  "say hello",
		MaxTokens:   10,
		Temperature: 0.3,
	})
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, delta)
	}

	assert.Equal(t, []string{"Hello", " world"}, got)
}

func TestProvider_CloseBeforeDrainIsSafe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"x\"}]}}]}\n\n")
	}))
	defer server.Close()

	p, err := New("test-key", server.URL+"/")
	require.NoError(t, err)

	stream, err := p.Stream(context.Background(), contract.StreamRequest{Model: "gemini-test", UserPrompt: "x"})
	require.NoError(t, err)
	assert.NoError(t, stream.Close())
}

func TestProvider_GenerateNamesFunctionResponseAfterCall(t *testing.T) {
	var body struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				FunctionResponse *struct {
					Name string `json:"name"`
				} `json:"functionResponse"`
			} `json:"parts"`
		} `json:"contents"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"It is sunny"}]}}]}`)
	}))
	defer server.Close()

	p, err := New("test-key", server.URL+"/")
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), contract.CompletionRequest{
		Model: "gemini-test",
		Messages: []contract.Message{
			{Role: contract.RoleUser, Content: "weather in Paris?"},
			{Role: contract.RoleAssistant, ToolCalls: []*contract.ToolCall{{ID: "call-abc", Name: "get_weather", Input: `{"location":"Paris"}`}}},
			{Role: contract.RoleTool, ToolCallID: "call-abc", Content: `{"success":true,"data":{"temperature":"21"}}`},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "It is sunny", resp.Content)

	var names []string
	for _, c := range body.Contents {
		for _, part := range c.Parts {
			if part.FunctionResponse != nil {
				names = append(names, part.FunctionResponse.Name)
			}
		}
	}
	assert.Equal(t, []string{"get_weather"}, names)
}

func TestProvider_CloseWhileRecvBlocked(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"first\"}]}}]}\n\n")
		w.(http.Flusher).Flush()

		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()

	p, err := New("test-key", server.URL+"/")
	require.NoError(t, err)

	stream, err := p.Stream(context.Background(), contract.StreamRequest{Model: "gemini-test", UserPrompt: "x"})
	require.NoError(t, err)

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "first", delta)

	recvDone := make(chan error, 1)
	go func() {
		_, err := stream.Recv()
		recvDone <- err
	}()

	// Let the reader block on the open response.
	time.Sleep(50 * time.Millisecond)

	closeDone := make(chan error, 1)
	go func() { closeDone <- stream.Close() }()

	select {
	case err := <-closeDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not return while recv was blocked")
	}

	select {
	case err := <-recvDone:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked recv was not released by close")
	}

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}
