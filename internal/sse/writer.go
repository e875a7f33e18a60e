package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

var ErrClosed = errors.New("sse: writer closed")

// Writer frames JSON payloads as server-sent events. It is safe for
// concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func()
	closed bool
}

// NewWriter prepares w for streaming and writes the event-stream headers.
func NewWriter(w http.ResponseWriter, allowedOrigin string) *Writer {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	if allowedOrigin != "" {
		headers.Set("Access-Control-Allow-Origin", allowedOrigin)
		headers.Set("Access-Control-Allow-Headers", "Cache-Control, Content-Type")
	}
	w.WriteHeader(http.StatusOK)

	var flushFn func()
	if f, ok := w.(http.Flusher); ok {
		flushFn = f.Flush
	}
	sw := &Writer{w: w, flush: flushFn}
	sw.doFlush()
	return sw
}

// NewStreamWriter wraps a plain writer, mainly for tests.
func NewStreamWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteJSON writes v as a single "data: <json>\n\n" frame and flushes.
func (s *Writer) WriteJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: marshal payload: %w", err)
	}
	return s.write("data: " + string(body) + "\n\n")
}

// Comment writes an SSE comment line, ignored by readers.
func (s *Writer) Comment(text string) error {
	return s.write(": " + text + "\n\n")
}

// Close marks the writer closed; later writes fail with ErrClosed.
func (s *Writer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Writer) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, err := io.WriteString(s.w, frame); err != nil {
		s.closed = true
		return fmt.Errorf("sse: write frame: %w", err)
	}
	s.doFlush()
	return nil
}

func (s *Writer) doFlush() {
	if s.flush != nil {
		s.flush()
	}
}
