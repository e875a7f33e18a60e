package completion

type EventType string

const (
	EventStart    EventType = "start"
	EventContent  EventType = "content"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

const (
	startMessage    = "Starting..."
	completeMessage = "Complete"
)

// Event is one frame of a completion stream.
type Event struct {
	Type    EventType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

func StartEvent() Event {
	return Event{Type: EventStart, Message: startMessage}
}

func ContentEvent(text string) Event {
	return Event{Type: EventContent, Text: text}
}

func CompleteEvent() Event {
	return Event{Type: EventComplete, Message: completeMessage}
}

func ErrorEvent(err error) Event {
	return Event{Type: EventError, Message: "Error: " + err.Error()}
}

// Sink receives the events of one stream. An Emit error means the consumer
// is gone and the stream must stop.
type Sink interface {
	Emit(Event) error
}

type SinkFunc func(Event) error

func (f SinkFunc) Emit(e Event) error {
	return f(e)
}
