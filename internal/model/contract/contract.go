package contract

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a conversation. ToolCalls only appear on assistant
// messages and ToolCallID only on tool messages.
type Message struct {
	ID         string      `json:"id,omitempty"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []*ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string      `json:"toolCallId,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type CompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []ToolDef `json:"tools,omitempty"`
}

type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type CompletionResponse struct {
	Content   string      `json:"content"`
	ToolCalls []*ToolCall `json:"toolCalls,omitempty"`
}

// ToolCall is a model-issued invocation. Input holds the raw JSON arguments.
type ToolCall struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Input string `json:"arguments"`
}

// StreamRequest asks for a single-turn streamed completion.
type StreamRequest struct {
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float32 `json:"temperature"`
}

// DeltaStream yields incremental text fragments. Recv returns io.EOF once the
// model has finished. Close must be called to release the connection.
type DeltaStream interface {
	Recv() (string, error)
	Close() error
}

// WireMessages returns a copy of msgs in which every assistant message only
// keeps the tool calls answered by the tool messages that follow it. The
// agent executes just one call per response, and provider APIs reject
// histories with unanswered calls.
func WireMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)

	for i := range out {
		if out[i].Role != RoleAssistant || len(out[i].ToolCalls) == 0 {
			continue
		}

		answered := make(map[string]bool)
		for j := i + 1; j < len(out) && out[j].Role == RoleTool; j++ {
			answered[out[j].ToolCallID] = true
		}

		kept := make([]*ToolCall, 0, len(out[i].ToolCalls))
		for _, call := range out[i].ToolCalls {
			if call != nil && answered[call.ID] {
				kept = append(kept, call)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		out[i].ToolCalls = kept
	}
	return out
}
