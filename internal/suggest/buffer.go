package suggest

import (
	"strings"
	"sync"

	"github.com/harunnryd/vibechat/internal/completion"
)

// Buffer accumulates the suggestion for the current input. Every Begin or
// Invalidate starts a new generation; events tagged with an older one are
// ignored, so a stale stream can never leak into a newer suggestion.
type Buffer struct {
	mu         sync.Mutex
	generation uint64
	text       strings.Builder
	errMsg     string
	streaming  bool
}

// Begin starts a new suggestion and returns its generation.
func (b *Buffer) Begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	b.streaming = true
	return b.generation
}

// Invalidate marks the current suggestion stale after an input change.
func (b *Buffer) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

// Apply folds ev into the buffer. It reports false for stale generations.
func (b *Buffer) Apply(gen uint64, ev completion.Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return false
	}

	switch ev.Type {
	case completion.EventStart:
		b.text.Reset()
		b.errMsg = ""
	case completion.EventContent:
		b.text.WriteString(ev.Text)
	case completion.EventComplete:
		b.streaming = false
	case completion.EventError:
		b.streaming = false
		b.errMsg = ev.Message
	}
	return true
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.String()
}

// Err returns the error message of a failed stream, if any.
func (b *Buffer) Err() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

func (b *Buffer) Streaming() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaming
}

// Accept appends the suggestion to input and clears the buffer.
func (b *Buffer) Accept(input string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := input + b.text.String()
	b.resetLocked()
	return out
}

// Dismiss clears the suggestion without using it.
func (b *Buffer) Dismiss() {
	b.Invalidate()
}

func (b *Buffer) resetLocked() {
	b.generation++
	b.text.Reset()
	b.errMsg = ""
	b.streaming = false
}
