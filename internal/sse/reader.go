package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	vcerrors "github.com/harunnryd/vibechat/internal/errors"
)

// Reader parses an event stream frame by frame. Comment and event: lines
// are ignored; multi-line data fields are joined with "\n".
type Reader struct {
	scanner *bufio.Scanner
	skipped int
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 8<<20)
	return &Reader{scanner: scanner}
}

// Next returns the data of the next frame, or io.EOF at end of stream.
func (r *Reader) Next() (string, error) {
	var dataLines []string

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payload := strings.TrimPrefix(line, "data:")
			payload = strings.TrimPrefix(payload, " ")
			dataLines = append(dataLines, payload)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse: read stream: %w", err)
	}
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}

// Decode reads frames until one decodes into v. Malformed frames are logged
// and skipped.
func (r *Reader) Decode(v any) error {
	for {
		data, err := r.Next()
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(data), v); err != nil {
			r.skipped++
			slog.Warn("Skipping malformed stream frame", "error", vcerrors.StreamParse(err.Error()), "frame", truncate(data, 120))
			continue
		}
		return nil
	}
}

// Skipped reports how many malformed frames Decode has dropped.
func (r *Reader) Skipped() int {
	return r.skipped
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
