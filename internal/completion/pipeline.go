package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/harunnryd/vibechat/internal/concurrency"
	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/logger"
	"github.com/harunnryd/vibechat/internal/model"
	"github.com/harunnryd/vibechat/internal/model/contract"
)

// Pipeline turns a Session into a stream of events: exactly one start,
// any number of content fragments and exactly one terminal event.
type Pipeline struct {
	client   model.Client
	model    string
	profiles map[Mode]Profile
}

func NewPipeline(client model.Client, cfg config.CompletionConfig) *Pipeline {
	return &Pipeline{
		client: client,
		model:  cfg.Model,
		profiles: map[Mode]Profile{
			ModeCompletion: ProfileFromConfig(cfg.Completion),
			ModeAnalysis:   ProfileFromConfig(cfg.Analysis),
		},
	}
}

func (p *Pipeline) Profile(mode Mode) Profile {
	if profile, ok := p.profiles[mode]; ok {
		return profile
	}
	return p.profiles[ModeAnalysis]
}

type recvResult struct {
	text string
	err  error
}

// Run streams one session into sink. The returned error is the reason the
// stream ended early; by then the terminal event has already been emitted
// unless the sink itself failed.
func (p *Pipeline) Run(ctx context.Context, s Session, sink Sink) error {
	start := time.Now()
	em := &emitter{sink: sink}

	if err := em.emit(StartEvent()); err != nil {
		return err
	}

	profile := p.Profile(s.Mode)
	system, user := profile.Render(s)

	stream, err := p.client.Stream(ctx, contract.StreamRequest{
		Model:        p.model,
		SystemPrompt: system,
		UserPrompt:   user,
		MaxTokens:    profile.MaxTokens,
		Temperature:  profile.Temperature,
	})
	if err != nil {
		slog.Error("Completion stream failed to open", append([]any{"mode", s.Mode, "error", err}, logger.Attrs(ctx)...)...)
		return em.fail(err)
	}

	done := make(chan struct{})
	deltas := make(chan recvResult)
	defer func() {
		close(done)
		if closeErr := stream.Close(); closeErr != nil {
			slog.Debug("Completion stream close failed", append([]any{"error", closeErr}, logger.Attrs(ctx)...)...)
		}
	}()

	// A panicking provider stream closes deltas, which surfaces below as an
	// unexpected close.
	concurrency.SafeGo(ctx, "completion-stream", func() {
		defer close(deltas)
		for {
			text, recvErr := stream.Recv()
			select {
			case deltas <- recvResult{text: text, err: recvErr}:
			case <-done:
				return
			}
			if recvErr != nil {
				return
			}
		}
	}, nil)

	fragments := 0
	for {
		if ctx.Err() != nil {
			slog.Info("Completion stream cancelled", append([]any{"mode", s.Mode, "fragments", fragments}, logger.Attrs(ctx)...)...)
			return em.fail(ctx.Err())
		}

		select {
		case <-ctx.Done():
			continue

		case res, ok := <-deltas:
			if !ok {
				return em.fail(errors.New("stream closed unexpectedly"))
			}
			if errors.Is(res.err, io.EOF) {
				slog.Info("Completion stream finished", append([]any{"mode", s.Mode, "fragments", fragments, "duration", time.Since(start)}, logger.Attrs(ctx)...)...)
				return em.emit(CompleteEvent())
			}
			if res.err != nil {
				if ctx.Err() != nil {
					return em.fail(ctx.Err())
				}
				slog.Error("Completion stream failed", append([]any{"mode", s.Mode, "fragments", fragments, "error", res.err}, logger.Attrs(ctx)...)...)
				return em.fail(res.err)
			}
			if res.text == "" {
				continue
			}

			fragments++
			if err := em.emit(ContentEvent(res.text)); err != nil {
				return err
			}
		}
	}
}

// emitter enforces the event ordering of a single stream.
type emitter struct {
	sink       Sink
	started    bool
	terminated bool
}

func (e *emitter) emit(ev Event) error {
	if e.terminated {
		return fmt.Errorf("event %s after terminal event", ev.Type)
	}
	if ev.Type == EventStart {
		if e.started {
			return errors.New("duplicate start event")
		}
		e.started = true
	}
	if ev.Terminal() {
		e.terminated = true
	}
	if err := e.sink.Emit(ev); err != nil {
		e.terminated = true
		return fmt.Errorf("emit %s: %w", ev.Type, err)
	}
	return nil
}

// fail emits the terminal error event and returns cause.
func (e *emitter) fail(cause error) error {
	if err := e.emit(ErrorEvent(cause)); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
