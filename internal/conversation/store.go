package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harunnryd/vibechat/internal/model/contract"
)

// Store is the append-only message log of a single agent run.
// Messages are never mutated or removed once appended.
type Store struct {
	mu       sync.RWMutex
	messages []contract.Message
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{now: time.Now}
}

// Append adds msgs in call order. Missing IDs and timestamps are stamped.
func (s *Store) Append(msgs ...contract.Message) {
	if len(msgs) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = ulid.Make().String()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now().UTC()
		}
		s.messages = append(s.messages, cloneMessage(msg))
	}
}

// ReadAll returns an ordered snapshot. Callers may modify the copy freely.
func (s *Store) ReadAll() []contract.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]contract.Message, len(s.messages))
	for i, msg := range s.messages {
		out[i] = cloneMessage(msg)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the most recent message, or false when the store is empty.
func (s *Store) Last() (contract.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return contract.Message{}, false
	}
	return cloneMessage(s.messages[len(s.messages)-1]), true
}

func cloneMessage(msg contract.Message) contract.Message {
	if msg.ToolCalls == nil {
		return msg
	}
	calls := make([]*contract.ToolCall, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		if call == nil {
			continue
		}
		c := *call
		calls = append(calls, &c)
	}
	msg.ToolCalls = calls
	return msg
}

// ValidateToolLinks checks that every tool message answers a call issued by
// the assistant message directly before it. Consecutive tool messages may
// answer several calls of the same assistant message.
func ValidateToolLinks(msgs []contract.Message) error {
	var issued map[string]bool
	for i, msg := range msgs {
		switch msg.Role {
		case contract.RoleAssistant:
			issued = make(map[string]bool, len(msg.ToolCalls))
			for _, call := range msg.ToolCalls {
				if call != nil {
					issued[call.ID] = true
				}
			}
		case contract.RoleTool:
			if issued == nil {
				return fmt.Errorf("message %d: tool message without preceding assistant message", i)
			}
			if !issued[msg.ToolCallID] {
				return fmt.Errorf("message %d: tool_call_id %q not issued by preceding assistant message", i, msg.ToolCallID)
			}
		default:
			issued = nil
		}
	}
	return nil
}
