package builtin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

const (
	defaultRedditBaseURL   = "https://www.reddit.com"
	defaultRedditSubreddit = "nba"
	defaultRedditLimit     = 10
	maxRedditLimit         = 25
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				Permalink string `json:"permalink"`
				Subreddit string `json:"subreddit_name_prefixed"`
				Author    string `json:"author"`
				Ups       int    `json:"ups"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Subreddit string `json:"subreddit"`
	Author    string `json:"author"`
	Upvotes   int    `json:"upvotes"`
}

func init() {
	toolcore.RegisterBuiltin("reddit", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		baseURL := strings.TrimSpace(options.RedditBaseURL)
		if baseURL == "" {
			baseURL = defaultRedditBaseURL
		}
		subreddit := strings.TrimSpace(options.RedditSubreddit)
		if subreddit == "" {
			subreddit = defaultRedditSubreddit
		}

		return &RedditTool{
			Client:           newHTTPClient(options.TimeoutOr(options.RedditTimeout)),
			BaseURL:          baseURL,
			DefaultSubreddit: subreddit,
		}, nil
	})
}

// RedditTool lists the latest hot posts of a subreddit.
type RedditTool struct {
	Client           *http.Client
	BaseURL          string
	DefaultSubreddit string
}

func (t *RedditTool) Name() string { return "reddit" }

func (t *RedditTool) Description() string {
	return "Get the latest popular posts from a subreddit"
}

func (t *RedditTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source:       "builtin",
		Capabilities: []string{"social.read", "http.get"},
		Risk:         toolcore.RiskLow,
		Network:      true,
	}
}

func (t *RedditTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"subreddit": map[string]interface{}{
				"type":        "string",
				"description": fmt.Sprintf("Subreddit name without the r/ prefix (default %s)", t.DefaultSubreddit),
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Number of posts to return (default %d, max %d)", defaultRedditLimit, maxRedditLimit),
			},
		},
	}
}

func (t *RedditTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	var args struct {
		Subreddit string `json:"subreddit"`
		Limit     int    `json:"limit"`
	}
	if err := decodeArgs(inv.Args, &args); err != nil {
		return toolcore.Result{}, err
	}

	subreddit := strings.TrimPrefix(strings.TrimSpace(args.Subreddit), "r/")
	if subreddit == "" {
		subreddit = t.DefaultSubreddit
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultRedditLimit
	}
	if limit > maxRedditLimit {
		limit = maxRedditLimit
	}

	base := strings.TrimSuffix(t.BaseURL, "/") + "/r/" + url.PathEscape(subreddit) + "/.json"
	endpoint, err := buildURL(base, url.Values{"limit": {fmt.Sprint(limit)}})
	if err != nil {
		return toolcore.Result{}, err
	}

	var listing redditListing
	if err := getJSON(ctx, t.Client, endpoint, nil, &listing); err != nil {
		return toolcore.Failf("Reddit lookup failed for r/%s: %v", subreddit, err), nil
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		posts = append(posts, redditPost{
			Title:     post.Title,
			Link:      "https://reddit.com" + post.Permalink,
			Subreddit: post.Subreddit,
			Author:    post.Author,
			Upvotes:   post.Ups,
		})
	}
	if len(posts) == 0 {
		return toolcore.Failf("No posts found in r/%s", subreddit), nil
	}

	return toolcore.OK(posts), nil
}
