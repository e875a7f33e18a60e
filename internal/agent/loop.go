package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/conversation"
	vcerrors "github.com/harunnryd/vibechat/internal/errors"
	"github.com/harunnryd/vibechat/internal/logger"
	"github.com/harunnryd/vibechat/internal/model"
	"github.com/harunnryd/vibechat/internal/model/contract"
	"github.com/harunnryd/vibechat/internal/tool"
)

type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateExecutingTool State = "executing_tool"
	StateDone          State = "done"
)

// Dispatcher executes a single model-issued tool call.
type Dispatcher interface {
	Dispatch(ctx context.Context, call contract.ToolCall, userMessage string) (tool.Outcome, error)
}

// Result is the outcome of one successful run.
type Result struct {
	RunID      string
	Messages   []contract.Message
	Last       contract.Message
	Iterations int
	Duration   time.Duration
}

// Loop alternates model inference and tool execution until the model
// answers with plain content. A Loop holds no per-run state and may serve
// concurrent runs.
type Loop struct {
	client        model.Client
	dispatcher    Dispatcher
	tools         []contract.ToolDef
	model         string
	systemPrompt  string
	maxIterations int
	historyWarn   int
	observer      Observer
}

type Option func(*Loop)

func WithObserver(o Observer) Option {
	return func(l *Loop) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithModel pins the model name sent with every request. Empty uses the
// router default.
func WithModel(name string) Option {
	return func(l *Loop) {
		l.model = name
	}
}

func NewLoop(client model.Client, dispatcher Dispatcher, tools []contract.ToolDef, cfg config.AgentConfig, opts ...Option) *Loop {
	l := &Loop{
		client:        client,
		dispatcher:    dispatcher,
		tools:         tools,
		systemPrompt:  cfg.SystemPrompt,
		maxIterations: cfg.MaxIterations,
		historyWarn:   cfg.HistoryWarnMessages,
		observer:      nopObserver{},
	}
	if l.maxIterations <= 0 {
		l.maxIterations = config.DefaultAgentMaxIterations
	}
	if l.historyWarn <= 0 {
		l.historyWarn = config.DefaultAgentHistoryWarnMessages
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives one conversation from userMessage to a final answer. The
// observer, if any, sees every transition of this run only.
func (l *Loop) Run(ctx context.Context, userMessage string, opts ...RunOption) (*Result, error) {
	ro := runOptions{observer: l.observer}
	for _, opt := range opts {
		opt(&ro)
	}

	runID := ulid.Make().String()
	ctx = logger.WithRunID(ctx, runID)
	start := time.Now()

	store := conversation.NewStore()
	if l.systemPrompt != "" {
		store.Append(contract.Message{Role: contract.RoleSystem, Content: l.systemPrompt})
	}
	store.Append(contract.Message{Role: contract.RoleUser, Content: userMessage})

	r := &run{
		Loop:        l,
		id:          runID,
		userMessage: userMessage,
		store:       store,
		observer:    ro.observer,
	}

	slog.Info("Agent run started", append([]any{"tools", len(l.tools), "max_iterations", l.maxIterations}, logger.Attrs(ctx)...)...)

	iterations, err := r.drive(ctx)
	if err != nil {
		slog.Error("Agent run failed", append([]any{"iterations", iterations, "category", vcerrors.Category(err), "error", err}, logger.Attrs(ctx)...)...)
		return nil, err
	}

	messages := store.ReadAll()
	if err := conversation.ValidateToolLinks(messages); err != nil {
		slog.Warn("Conversation tool links are inconsistent", append([]any{"error", err}, logger.Attrs(ctx)...)...)
	}

	res := &Result{
		RunID:      runID,
		Messages:   messages,
		Last:       messages[len(messages)-1],
		Iterations: iterations,
		Duration:   time.Since(start),
	}
	slog.Info("Agent run finished", append([]any{"iterations", iterations, "messages", len(messages), "duration", res.Duration}, logger.Attrs(ctx)...)...)
	return res, nil
}

type RunOption func(*runOptions)

type runOptions struct {
	observer Observer
}

// WithRunObserver adds o to the loop observer for a single run.
func WithRunObserver(o Observer) RunOption {
	return func(ro *runOptions) {
		if o != nil {
			ro.observer = Observers{ro.observer, o}
		}
	}
}

type run struct {
	*Loop
	id          string
	userMessage string
	store       *conversation.Store
	observer    Observer
	warned      bool
}

func (r *run) emit(kind StatusKind, toolName string, iteration int) {
	r.observer.OnStatus(Status{RunID: r.id, Kind: kind, Tool: toolName, Iteration: iteration})
}

func (r *run) drive(ctx context.Context) (int, error) {
	state := StateAwaitingModel
	var pending *contract.ToolCall
	iteration := 0

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return iteration, err
		}

		switch state {
		case StateAwaitingModel:
			if iteration >= r.maxIterations {
				return iteration, vcerrors.LoopBudgetExceeded(r.maxIterations)
			}
			iteration++

			call, err := r.awaitModel(ctx, iteration)
			if err != nil {
				return iteration, err
			}
			if call == nil {
				state = StateDone
				continue
			}
			pending = call
			state = StateExecutingTool

		case StateExecutingTool:
			if err := r.executeTool(ctx, *pending, iteration); err != nil {
				return iteration, err
			}
			pending = nil
			state = StateAwaitingModel
		}
	}

	return iteration, nil
}

// awaitModel requests the next response and appends it verbatim. It returns
// the call to execute, or nil when the response is final.
func (r *run) awaitModel(ctx context.Context, iteration int) (*contract.ToolCall, error) {
	r.emit(StatusThinking, "", iteration)

	history := r.store.ReadAll()
	if !r.warned && len(history) > r.historyWarn {
		r.warned = true
		slog.Warn("Conversation history is growing large", append([]any{"messages", len(history), "threshold", r.historyWarn}, logger.Attrs(ctx)...)...)
	}

	resp, err := r.client.Complete(ctx, contract.CompletionRequest{
		Model:    r.model,
		Messages: history,
		Tools:    r.tools,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, vcerrors.MapModelError(err)
	}
	if resp == nil {
		resp = &contract.CompletionResponse{}
	}

	r.store.Append(contract.Message{
		Role:      contract.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	if call := firstCall(resp.ToolCalls); call != nil {
		if len(resp.ToolCalls) > 1 {
			slog.Info("Model requested several tools, executing the first only", append([]any{"requested", len(resp.ToolCalls), "tool", call.Name}, logger.Attrs(ctx)...)...)
		}
		return call, nil
	}

	if resp.Content == "" {
		slog.Warn("Model returned neither content nor tool calls", logger.Attrs(ctx)...)
	}
	return nil, nil
}

func (r *run) executeTool(ctx context.Context, call contract.ToolCall, iteration int) error {
	r.emit(StatusExecuting, call.Name, iteration)

	outcome, err := r.dispatcher.Dispatch(ctx, call, r.userMessage)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", call.Name, err)
	}
	if outcome.Err != nil {
		slog.Warn("Tool returned a failure, continuing", append([]any{"tool", call.Name, "category", vcerrors.Category(outcome.Err), "error", outcome.Result.Error}, logger.Attrs(ctx)...)...)
	}

	r.store.Append(contract.Message{
		Role:       contract.RoleTool,
		Content:    outcome.Content,
		ToolCallID: call.ID,
	})

	r.emit(StatusToolDone, call.Name, iteration)
	return nil
}

func firstCall(calls []*contract.ToolCall) *contract.ToolCall {
	for _, call := range calls {
		if call != nil {
			return call
		}
	}
	return nil
}
