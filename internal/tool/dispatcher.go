package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	vcerrors "github.com/harunnryd/vibechat/internal/errors"
	"github.com/harunnryd/vibechat/internal/logger"
	"github.com/harunnryd/vibechat/internal/model/contract"
)

const DefaultDispatchTimeout = 15 * time.Second

// Outcome is the normalized result of one dispatch. Err is set for
// tool-level failures (invalid arguments, handler errors, success:false)
// and is never fatal.
type Outcome struct {
	ToolCallID string
	Tool       string
	Result     Result
	Content    string
	Duration   time.Duration
	Err        error
}

// Dispatcher resolves model-issued calls against a Registry and executes
// exactly one handler per call.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{registry: registry, timeout: timeout}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch runs call. The only error it returns is ErrUnknownTool (or ctx
// cancellation); every other failure is folded into Outcome.Result.
func (d *Dispatcher) Dispatch(ctx context.Context, call contract.ToolCall, userMessage string) (Outcome, error) {
	name := NormalizeToolName(call.Name)
	outcome := Outcome{ToolCallID: call.ID, Tool: name}

	t, ok := d.registry.Get(name)
	if !ok {
		slog.Error("Model requested unknown tool", append([]any{"tool", name}, logger.Attrs(ctx)...)...)
		return outcome, vcerrors.UnknownTool(name)
	}

	args := json.RawMessage(strings.TrimSpace(call.Input))
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if err := ValidateInput(t.Parameters(), args); err != nil {
		slog.Warn("Tool input validation failed", append([]any{"tool", name, "error", err}, logger.Attrs(ctx)...)...)
		return d.finish(outcome, Failf("invalid arguments: %v", err), vcerrors.InvalidArguments(err.Error())), nil
	}

	start := time.Now()
	slog.Info("Executing tool", append([]any{"tool", name}, logger.Attrs(ctx)...)...)

	result, err := d.execute(ctx, t, Invocation{UserMessage: userMessage, Args: args})
	outcome.Duration = time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		slog.Error("Tool execution failed", append([]any{"tool", name, "error", err, "duration", outcome.Duration}, logger.Attrs(ctx)...)...)
		return d.finish(outcome, Fail(err.Error()), vcerrors.ToolExecution(err.Error())), nil
	}

	if !result.Success {
		slog.Warn("Tool reported failure", append([]any{"tool", name, "error", result.Error, "duration", outcome.Duration}, logger.Attrs(ctx)...)...)
		return d.finish(outcome, result, vcerrors.ToolExecution(result.Error)), nil
	}

	slog.Info("Tool execution success", append([]any{"tool", name, "duration", outcome.Duration}, logger.Attrs(ctx)...)...)
	return d.finish(outcome, result, nil), nil
}

func (d *Dispatcher) finish(outcome Outcome, result Result, err error) Outcome {
	outcome.Result = result
	outcome.Content = result.String()
	outcome.Err = err
	return outcome
}

type execResult struct {
	result Result
	err    error
}

// execute bounds the handler by the dispatch timeout even when the handler
// ignores its context, and converts panics into errors.
func (d *Dispatcher) execute(ctx context.Context, t Tool, inv Invocation) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan execResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Tool handler panicked", "tool", t.Name(), "panic", rec, "stack", string(debug.Stack()))
				done <- execResult{err: fmt.Errorf("tool %s panicked: %v", t.Name(), rec)}
			}
		}()
		result, err := t.Execute(callCtx, inv)
		done <- execResult{result: result, err: err}
	}()

	select {
	case res := <-done:
		return res.result, res.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("tool %s timed out after %s", t.Name(), d.timeout)
	}
}
