package suggest

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/harunnryd/vibechat/internal/completion"
	"github.com/harunnryd/vibechat/internal/logger"
)

// Update is delivered after every event that changed the current suggestion.
type Update struct {
	Input string
	Event completion.Event
	Text  string
}

// Suggester ties the client, buffer and debouncer together for an input
// that changes over time.
type Suggester struct {
	client   *Client
	buffer   *Buffer
	debounce *Debouncer
	onUpdate func(Update)
}

func NewSuggester(client *Client, debounce *Debouncer, onUpdate func(Update)) *Suggester {
	if debounce == nil {
		debounce = NewDebouncer(DefaultDebounce)
	}
	return &Suggester{
		client:   client,
		buffer:   &Buffer{},
		debounce: debounce,
		onUpdate: onUpdate,
	}
}

func (s *Suggester) Buffer() *Buffer {
	return s.buffer
}

// Input records a new input value. Any visible suggestion is dropped at once
// and a request for the new value is scheduled after the debounce delay.
func (s *Suggester) Input(ctx context.Context, text string) {
	s.buffer.Invalidate()
	if s.client.TooShort(text) {
		s.debounce.Stop()
		return
	}

	s.debounce.Trigger(func() {
		gen := s.buffer.Begin()
		req := Request{
			Question: text,
			Position: utf8.RuneCountInString(text),
			Mode:     completion.ModeCompletion,
		}
		err := s.client.Stream(ctx, req, func(ev completion.Event) {
			if !s.buffer.Apply(gen, ev) || s.onUpdate == nil {
				return
			}
			s.onUpdate(Update{Input: text, Event: ev, Text: s.buffer.Text()})
		})
		if err != nil && ctx.Err() == nil {
			slog.Warn("Suggestion stream failed", append([]any{"error", err}, logger.Attrs(ctx)...)...)
		}
	})
}

// Accept appends the current suggestion to input.
func (s *Suggester) Accept(input string) string {
	s.debounce.Stop()
	return s.buffer.Accept(input)
}

// Dismiss drops the current suggestion and any pending request.
func (s *Suggester) Dismiss() {
	s.debounce.Stop()
	s.buffer.Dismiss()
}
