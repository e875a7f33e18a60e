package completion

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/harunnryd/vibechat/internal/config"
	vcerrors "github.com/harunnryd/vibechat/internal/errors"
)

type Mode string

const (
	ModeCompletion Mode = "completion"
	ModeAnalysis   Mode = "analysis"
)

// ParseMode maps a request mode to a Mode. Empty selects analysis.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeAnalysis:
		return ModeAnalysis, nil
	case ModeCompletion:
		return ModeCompletion, nil
	default:
		return "", vcerrors.InvalidInput(fmt.Sprintf("unsupported mode %q", raw))
	}
}

// Session is one ephemeral streaming request. It never joins a conversation.
type Session struct {
	PartialText    string
	CursorPosition int
	Mode           Mode
}

// NewSession builds a session; a negative cursor means "end of text".
func NewSession(text string, cursor int, mode Mode) Session {
	if cursor < 0 {
		cursor = utf8.RuneCountInString(text)
	}
	return Session{PartialText: text, CursorPosition: cursor, Mode: mode}
}

// Profile is the sampling configuration of one mode.
type Profile struct {
	MaxTokens    int
	Temperature  float32
	SystemPrompt string
	UserPrompt   string
}

func ProfileFromConfig(p config.CompletionProfile) Profile {
	return Profile{
		MaxTokens:    p.MaxTokens,
		Temperature:  p.Temperature,
		SystemPrompt: p.SystemPrompt,
		UserPrompt:   p.UserPrompt,
	}
}

// Render fills the {{question}} and {{position}} placeholders.
func (p Profile) Render(s Session) (system, user string) {
	r := strings.NewReplacer(
		"{{question}}", s.PartialText,
		"{{position}}", strconv.Itoa(s.CursorPosition),
	)
	return r.Replace(p.SystemPrompt), r.Replace(p.UserPrompt)
}
