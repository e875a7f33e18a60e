package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/harunnryd/vibechat/internal/completion"
	vcerrors "github.com/harunnryd/vibechat/internal/errors"
	"github.com/harunnryd/vibechat/internal/sse"
)

const vibeAskPath = "/api/vibe-ask"

// Request mirrors the /api/vibe-ask body.
type Request struct {
	Question string          `json:"question"`
	Position int             `json:"position"`
	Mode     completion.Mode `json:"mode"`
}

// Client consumes the vibe-ask stream of a running server.
type Client struct {
	baseURL   string
	http      *http.Client
	minLength int
}

func NewClient(baseURL string, httpClient *http.Client, minLength int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:   strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		http:      httpClient,
		minLength: minLength,
	}
}

// TooShort reports whether question is below the minimum length worth
// asking about.
func (c *Client) TooShort(question string) bool {
	return utf8.RuneCountInString(question) < c.minLength
}

// Stream posts req and calls fn for every event until the terminal event or
// end of stream. Malformed frames are skipped by the reader.
func (c *Client) Stream(ctx context.Context, req Request, fn func(completion.Event)) error {
	if c.TooShort(req.Question) {
		return vcerrors.InvalidInput(fmt.Sprintf("question shorter than %d characters", c.minLength))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+vibeAskPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("vibe-ask request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	reader := sse.NewReader(resp.Body)
	for {
		var ev completion.Event
		if err := reader.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("vibe-ask stream ended without a terminal event")
			}
			return err
		}
		fn(ev)
		if ev.Terminal() {
			return nil
		}
	}
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("vibe-ask: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("vibe-ask: unexpected status %d", resp.StatusCode)
}
