package completion

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/model/contract"
)

type scriptedStream struct {
	deltas []string
	err    error
	block  chan struct{}

	mu     sync.Mutex
	closed bool
}

func (s *scriptedStream) Recv() (string, error) {
	s.mu.Lock()
	if len(s.deltas) > 0 {
		d := s.deltas[0]
		s.deltas = s.deltas[1:]
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	if s.block != nil {
		<-s.block
		return "", errors.New("stream closed")
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		if s.block != nil {
			close(s.block)
		}
	}
	return nil
}

func (s *scriptedStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type streamClient struct {
	stream  *scriptedStream
	openErr error
	got     contract.StreamRequest
}

func (c *streamClient) Complete(context.Context, contract.CompletionRequest) (*contract.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (c *streamClient) Stream(_ context.Context, req contract.StreamRequest) (contract.DeltaStream, error) {
	c.got = req
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	failAt int
}

func (r *recordingSink) Emit(e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("client gone")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() config.CompletionConfig {
	return config.CompletionConfig{
		Model: "gpt-4o",
		Completion: config.CompletionProfile{
			MaxTokens:    100,
			Temperature:  0.3,
			SystemPrompt: "complete {{question}} at {{position}}",
			UserPrompt:   `Continue: "{{question}}"`,
		},
		Analysis: config.CompletionProfile{
			MaxTokens:    500,
			Temperature:  0.7,
			SystemPrompt: "analyse",
			UserPrompt:   `Analyze: "{{question}}"`,
		},
	}
}

func assertWellFormed(t *testing.T, types []EventType) {
	t.Helper()
	require.NotEmpty(t, types)
	assert.Equal(t, EventStart, types[0])
	terminals := 0
	for i, typ := range types {
		if typ == EventComplete || typ == EventError {
			terminals++
			assert.Equal(t, len(types)-1, i, "terminal event must be last")
		}
		if i > 0 {
			assert.NotEqual(t, EventStart, typ)
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestPipeline_Run_CompletionMode(t *testing.T) {
	stream := &scriptedStream{deltas: []string{" France", "", "?"}}
	client := &streamClient{stream: stream}
	sink := &recordingSink{}

	session := NewSession("What is the capital of", -1, ModeCompletion)
	err := NewPipeline(client, testConfig()).Run(context.Background(), session, sink)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventStart, EventContent, EventContent, EventComplete}, sink.types())
	assertWellFormed(t, sink.types())
	assert.Equal(t, " France", sink.events[1].Text)
	assert.Equal(t, "Complete", sink.events[3].Message)
	assert.True(t, stream.isClosed())

	assert.Equal(t, "gpt-4o", client.got.Model)
	assert.Equal(t, 100, client.got.MaxTokens)
	assert.InDelta(t, 0.3, client.got.Temperature, 1e-6)
	assert.Equal(t, "complete What is the capital of at 22", client.got.SystemPrompt)
	assert.Equal(t, `Continue: "What is the capital of"`, client.got.UserPrompt)
}

func TestPipeline_Run_AnalysisProfile(t *testing.T) {
	client := &streamClient{stream: &scriptedStream{}}
	sink := &recordingSink{}

	err := NewPipeline(client, testConfig()).Run(context.Background(), NewSession("why", 3, ModeAnalysis), sink)
	require.NoError(t, err)
	assert.Equal(t, 500, client.got.MaxTokens)
	assert.InDelta(t, 0.7, client.got.Temperature, 1e-6)
	assert.Equal(t, []EventType{EventStart, EventComplete}, sink.types())
}

func TestPipeline_Run_OpenFailureEmitsSingleError(t *testing.T) {
	client := &streamClient{openErr: errors.New("model unavailable")}
	sink := &recordingSink{}

	err := NewPipeline(client, testConfig()).Run(context.Background(), NewSession("hello", -1, ModeCompletion), sink)
	require.Error(t, err)
	assert.Equal(t, []EventType{EventStart, EventError}, sink.types())
	assert.Equal(t, "Error: model unavailable", sink.events[1].Message)
}

func TestPipeline_Run_MidStreamFailure(t *testing.T) {
	stream := &scriptedStream{deltas: []string{"a", "b"}, err: errors.New("connection reset")}
	sink := &recordingSink{}

	err := NewPipeline(&streamClient{stream: stream}, testConfig()).Run(context.Background(), NewSession("hello", -1, ModeCompletion), sink)
	require.Error(t, err)
	assert.Equal(t, []EventType{EventStart, EventContent, EventContent, EventError}, sink.types())
	assertWellFormed(t, sink.types())
	assert.True(t, stream.isClosed())
}

func TestPipeline_Run_CancellationStopsReading(t *testing.T) {
	stream := &scriptedStream{deltas: []string{"first"}, block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	sink := &recordingSink{}
	sinkWithCancel := SinkFunc(func(e Event) error {
		if err := sink.Emit(e); err != nil {
			return err
		}
		if e.Type == EventContent {
			cancel()
		}
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- NewPipeline(&streamClient{stream: stream}, testConfig()).Run(ctx, NewSession("hello", -1, ModeCompletion), sinkWithCancel)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}

	assert.Equal(t, []EventType{EventStart, EventContent, EventError}, sink.types())
	assert.True(t, stream.isClosed())
}

func TestPipeline_Run_SinkFailureStopsStream(t *testing.T) {
	stream := &scriptedStream{deltas: []string{"a", "b", "c"}}
	sink := &recordingSink{failAt: 2}

	err := NewPipeline(&streamClient{stream: stream}, testConfig()).Run(context.Background(), NewSession("hello", -1, ModeCompletion), sink)
	require.Error(t, err)
	assert.Equal(t, []EventType{EventStart}, sink.types())
	assert.True(t, stream.isClosed())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAnalysis, mode)

	mode, err = ParseMode(" Completion ")
	require.NoError(t, err)
	assert.Equal(t, ModeCompletion, mode)

	_, err = ParseMode("poetry")
	assert.Error(t, err)
}

func TestProfile_Render(t *testing.T) {
	p := Profile{SystemPrompt: "q={{question}} pos={{position}}", UserPrompt: "{{question}}!"}
	system, user := p.Render(Session{PartialText: "héllo", CursorPosition: 2})
	assert.Equal(t, "q=héllo pos=2", system)
	assert.Equal(t, "héllo!", user)

	assert.Equal(t, 5, NewSession("héllo", -1, ModeAnalysis).CursorPosition)
}

type panicStream struct{}

func (panicStream) Recv() (string, error) { panic("provider bug") }
func (panicStream) Close() error          { return nil }

type panicClient struct{ streamClient }

func (c *panicClient) Stream(context.Context, contract.StreamRequest) (contract.DeltaStream, error) {
	return panicStream{}, nil
}

func TestPipeline_StreamPanicBecomesError(t *testing.T) {
	p := NewPipeline(&panicClient{}, testConfig())
	sink := &recordingSink{}

	err := p.Run(context.Background(), NewSession("what is", -1, ModeCompletion), sink)
	require.Error(t, err)
	assert.Equal(t, []EventType{EventStart, EventError}, sink.types())
	assertWellFormed(t, sink.types())
}
