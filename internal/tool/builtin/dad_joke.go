package builtin

import (
	"context"
	"net/http"
	"strings"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

const defaultDadJokeBaseURL = "https://icanhazdadjoke.com/"

func init() {
	toolcore.RegisterBuiltin("dad_joke", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		baseURL := strings.TrimSpace(options.DadJokeBaseURL)
		if baseURL == "" {
			baseURL = defaultDadJokeBaseURL
		}
		return &DadJokeTool{
			Client:  newHTTPClient(options.TimeoutOr(options.DadJokeTimeout)),
			BaseURL: baseURL,
		}, nil
	})
}

// DadJokeTool fetches a random joke from icanhazdadjoke.
type DadJokeTool struct {
	Client  *http.Client
	BaseURL string
}

func (t *DadJokeTool) Name() string { return "dad_joke" }

func (t *DadJokeTool) Description() string {
	return "Get a random dad joke"
}

func (t *DadJokeTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Capabilities: []string{"fun.joke", "http.get"},
		Risk:         toolcore.RiskLow,
		Network:      true,
	}
}

func (t *DadJokeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func (t *DadJokeTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	var payload struct {
		ID   string `json:"id"`
		Joke string `json:"joke"`
	}
	if err := getJSON(ctx, t.Client, t.BaseURL, nil, &payload); err != nil {
		return toolcore.Failf("Dad joke lookup failed: %v", err), nil
	}
	if strings.TrimSpace(payload.Joke) == "" {
		return toolcore.Fail("No joke returned"), nil
	}

	return toolcore.OK(map[string]string{"id": payload.ID, "joke": payload.Joke}), nil
}
