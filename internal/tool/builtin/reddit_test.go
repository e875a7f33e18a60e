package builtin

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redditFixture = `{"data":{"children":[
	{"data":{"title":"Game 7 tonight","permalink":"/r/nba/comments/1/game_7/","subreddit_name_prefixed":"r/nba","author":"hooper","ups":4200}},
	{"data":{"title":"Trade rumors","permalink":"/r/nba/comments/2/trade/","subreddit_name_prefixed":"r/nba","author":"insider","ups":99}}
]}}`

func TestRedditTool_Execute_DefaultSubreddit(t *testing.T) {
	var path, limit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		limit = r.URL.Query().Get("limit")
		_, _ = io.WriteString(w, redditFixture)
	}))
	defer server.Close()

	tool := &RedditTool{Client: server.Client(), BaseURL: server.URL, DefaultSubreddit: "nba"}
	res, err := tool.Execute(context.Background(), invocation(`{}`))
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "/r/nba/.json", path)
	assert.Equal(t, "10", limit)

	posts := res.Data.([]redditPost)
	require.Len(t, posts, 2)
	assert.Equal(t, redditPost{
		Title:     "Game 7 tonight",
		Link:      "https://reddit.com/r/nba/comments/1/game_7/",
		Subreddit: "r/nba",
		Author:    "hooper",
		Upvotes:   4200,
	}, posts[0])
}

func TestRedditTool_Execute_ClampsLimitAndStripsPrefix(t *testing.T) {
	var path, limit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		limit = r.URL.Query().Get("limit")
		_, _ = io.WriteString(w, redditFixture)
	}))
	defer server.Close()

	tool := &RedditTool{Client: server.Client(), BaseURL: server.URL, DefaultSubreddit: "nba"}
	_, err := tool.Execute(context.Background(), invocation(`{"subreddit":"r/golang","limit":500}`))
	require.NoError(t, err)
	assert.Equal(t, "/r/golang/.json", path)
	assert.Equal(t, "25", limit)
}

func TestRedditTool_Execute_EmptyListing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"children":[]}}`)
	}))
	defer server.Close()

	tool := &RedditTool{Client: server.Client(), BaseURL: server.URL, DefaultSubreddit: "nba"}
	res, err := tool.Execute(context.Background(), invocation(`{"subreddit":"empty"}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "No posts found in r/empty", res.Error)
}

func TestRedditTool_Execute_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	tool := &RedditTool{Client: server.Client(), BaseURL: server.URL, DefaultSubreddit: "nba"}
	res, err := tool.Execute(context.Background(), invocation(`{}`))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Reddit lookup failed for r/nba")
}
