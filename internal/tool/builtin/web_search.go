package builtin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

const (
	defaultWebSearchBaseURL = "https://api.duckduckgo.com/"
	abstractRelatedTopics   = 3
	fallbackRelatedTopics   = 5
	noDirectAnswerAbstract  = "No direct answer found, but here are related topics:"
)

type ddgResponse struct {
	Abstract       string            `json:"Abstract"`
	AbstractSource string            `json:"AbstractSource"`
	AbstractURL    string            `json:"AbstractURL"`
	RelatedTopics  []json.RawMessage `json:"RelatedTopics"`
}

func init() {
	toolcore.RegisterBuiltin("web_search", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		baseURL := strings.TrimSpace(options.SearchBaseURL)
		if baseURL == "" {
			baseURL = defaultWebSearchBaseURL
		}

		return &WebSearchTool{
			Client:  newHTTPClient(options.TimeoutOr(options.SearchTimeout)),
			BaseURL: baseURL,
		}, nil
	})
}

// WebSearchTool queries the DuckDuckGo Instant Answer API.
type WebSearchTool struct {
	Client  *http.Client
	BaseURL string
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Search the web for current information about a topic"
}

func (t *WebSearchTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source: "builtin",
		Capabilities: []string{
			"web.search",
			"research.web",
			"http.get",
		},
		Risk:    toolcore.RiskMedium,
		Network: true,
	}
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query to look up on the web",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(inv.Args, &args); err != nil {
		return toolcore.Result{}, err
	}

	query := strings.TrimSpace(args.Query)
	if query == "" {
		return toolcore.Fail("query is required"), nil
	}

	endpoint, err := buildURL(t.BaseURL, url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	})
	if err != nil {
		return toolcore.Result{}, err
	}

	var payload ddgResponse
	if err := getJSON(ctx, t.Client, endpoint, nil, &payload); err != nil {
		return toolcore.Failf("Search failed: %v", err), nil
	}

	switch {
	case strings.TrimSpace(payload.Abstract) != "":
		return toolcore.OK(map[string]interface{}{
			"abstract":       payload.Abstract,
			"source":         payload.AbstractSource,
			"url":            payload.AbstractURL,
			"related_topics": firstTopics(payload.RelatedTopics, abstractRelatedTopics),
		}), nil
	case len(payload.RelatedTopics) > 0:
		return toolcore.OK(map[string]interface{}{
			"abstract":       noDirectAnswerAbstract,
			"related_topics": firstTopics(payload.RelatedTopics, fallbackRelatedTopics),
		}), nil
	default:
		return toolcore.Fail("No relevant information found for this query"), nil
	}
}

func firstTopics(topics []json.RawMessage, limit int) []json.RawMessage {
	if len(topics) > limit {
		topics = topics[:limit]
	}
	if topics == nil {
		return []json.RawMessage{}
	}
	return topics
}
