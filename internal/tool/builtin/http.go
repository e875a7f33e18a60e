package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	userAgent       = "vibechat/1.0 (+https://github.com/harunnryd/vibechat)"
	maxResponseBody = 2 << 20
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// statusError is returned by getJSON for non-2xx responses; the body is still decoded.
type statusError struct {
	Status string
}

func (e *statusError) Error() string {
	return "unexpected status: " + e.Status
}

// getJSON issues a GET and decodes the JSON body into out. Non-2xx responses
// are decoded too (APIs such as OpenWeatherMap put the reason in the body)
// and reported as *statusError.
func getJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if client == nil {
		client = newHTTPClient(10 * time.Second)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}

	decodeErr := json.Unmarshal(body, out)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &statusError{Status: resp.Status}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}

// buildURL appends query parameters to base, keeping any already present.
func buildURL(base string, params url.Values) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	if strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("invalid endpoint %q", base)
	}

	q := parsed.Query()
	for k, values := range params {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func decodeArgs(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}
	return nil
}
