package agent

import (
	"log/slog"
)

type StatusKind string

const (
	StatusThinking  StatusKind = "thinking"
	StatusExecuting StatusKind = "executing"
	StatusToolDone  StatusKind = "done"
)

// Status is emitted on every loop transition.
type Status struct {
	RunID     string
	Kind      StatusKind
	Tool      string
	Iteration int
}

// String renders the status the way it is shown to users:
// "thinking", "executing:<tool>" or "done:<tool>".
func (s Status) String() string {
	if s.Tool == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.Tool
}

// Observer receives loop transitions. Implementations must not block.
type Observer interface {
	OnStatus(Status)
}

type ObserverFunc func(Status)

func (f ObserverFunc) OnStatus(s Status) {
	f(s)
}

type nopObserver struct{}

func (nopObserver) OnStatus(Status) {}

// ChannelObserver forwards statuses to a buffered channel and drops them
// when the consumer falls behind.
type ChannelObserver struct {
	ch chan Status
}

func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer <= 0 {
		buffer = 16
	}
	return &ChannelObserver{ch: make(chan Status, buffer)}
}

func (o *ChannelObserver) OnStatus(s Status) {
	select {
	case o.ch <- s:
	default:
		slog.Debug("Dropping agent status, observer is full", "status", s.String(), "run_id", s.RunID)
	}
}

func (o *ChannelObserver) C() <-chan Status {
	return o.ch
}

// LogObserver writes every status as a structured log line.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnStatus(s Status) {
	l := o.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("Agent status", "status", s.String(), "iteration", s.Iteration, "run_id", s.RunID)
}

// Observers fans a status out to several observers in order.
type Observers []Observer

func (m Observers) OnStatus(s Status) {
	for _, o := range m {
		if o != nil {
			o.OnStatus(s)
		}
	}
}
