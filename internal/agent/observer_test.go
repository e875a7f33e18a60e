package agent

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "thinking", Status{Kind: StatusThinking}.String())
	assert.Equal(t, "executing:get_weather", Status{Kind: StatusExecuting, Tool: "get_weather"}.String())
	assert.Equal(t, "done:get_weather", Status{Kind: StatusToolDone, Tool: "get_weather"}.String())
}

func TestChannelObserver_DropsWhenFull(t *testing.T) {
	o := NewChannelObserver(1)
	o.OnStatus(Status{Kind: StatusThinking})
	o.OnStatus(Status{Kind: StatusExecuting, Tool: "x"})

	assert.Len(t, o.C(), 1)
	assert.Equal(t, StatusThinking, (<-o.C()).Kind)
}

func TestLogObserver_WritesStatus(t *testing.T) {
	var buf bytes.Buffer
	o := LogObserver{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	o.OnStatus(Status{RunID: "r1", Kind: StatusExecuting, Tool: "reddit", Iteration: 2})

	assert.Contains(t, buf.String(), "status=executing:reddit")
	assert.Contains(t, buf.String(), "run_id=r1")
}

func TestObservers_FanOut(t *testing.T) {
	var a, b []StatusKind
	Observers{
		ObserverFunc(func(s Status) { a = append(a, s.Kind) }),
		nil,
		ObserverFunc(func(s Status) { b = append(b, s.Kind) }),
	}.OnStatus(Status{Kind: StatusThinking})

	assert.Equal(t, []StatusKind{StatusThinking}, a)
	assert.Equal(t, []StatusKind{StatusThinking}, b)
}
