package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	toolcore "github.com/harunnryd/vibechat/internal/tool"
)

func init() {
	toolcore.RegisterBuiltin("current_time", func(options toolcore.BuiltinOptions) (toolcore.Tool, error) {
		return &TimeTool{}, nil
	})
}

// TimeTool returns the current time, optionally shifted to a UTC offset.
type TimeTool struct {
	Now func() time.Time
}

func (t *TimeTool) Name() string {
	return "current_time"
}

func (t *TimeTool) Description() string {
	return "Get the current date and time, optionally for a UTC offset"
}

func (t *TimeTool) ToolMetadata() toolcore.ToolMetadata {
	return toolcore.ToolMetadata{
		Source: "builtin",
		Capabilities: []string{
			"time.query",
			"clock.now",
		},
		Risk: toolcore.RiskLow,
	}
}

func (t *TimeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"utc_offset": map[string]interface{}{
				"type":        "string",
				"description": "UTC offset like +07:00 (optional)",
			},
		},
	}
}

func (t *TimeTool) Execute(ctx context.Context, inv toolcore.Invocation) (toolcore.Result, error) {
	_ = ctx

	var args struct {
		UTCOffset string `json:"utc_offset"`
	}
	if err := decodeArgs(inv.Args, &args); err != nil {
		return toolcore.Result{}, err
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	entry, err := currentTimePayload(now(), args.UTCOffset)
	if err != nil {
		return toolcore.Fail(err.Error()), nil
	}
	return toolcore.OK(entry), nil
}

func currentTimePayload(now time.Time, utcOffset string) (map[string]string, error) {
	now = now.UTC()
	offset := strings.TrimSpace(utcOffset)
	if offset != "" {
		parsedOffset, err := parseUTCOffset(offset)
		if err != nil {
			return nil, err
		}
		now = now.In(time.FixedZone(offset, parsedOffset))
	}

	return map[string]string{
		"time":       now.Format(time.RFC3339),
		"weekday":    now.Weekday().String(),
		"utc_offset": offsetOrUTC(offset),
	}, nil
}

func parseUTCOffset(offset string) (int, error) {
	if len(offset) != 6 {
		return 0, fmt.Errorf("invalid utc_offset format")
	}
	if offset[0] != '+' && offset[0] != '-' {
		return 0, fmt.Errorf("invalid utc_offset sign")
	}
	if offset[3] != ':' {
		return 0, fmt.Errorf("invalid utc_offset format")
	}
	if offset[1] < '0' || offset[1] > '9' ||
		offset[2] < '0' || offset[2] > '9' ||
		offset[4] < '0' || offset[4] > '9' ||
		offset[5] < '0' || offset[5] > '9' {
		return 0, fmt.Errorf("invalid utc_offset format")
	}

	hours := int(offset[1]-'0')*10 + int(offset[2]-'0')
	minutes := int(offset[4]-'0')*10 + int(offset[5]-'0')
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid utc_offset value")
	}

	totalSeconds := hours*3600 + minutes*60
	if offset[0] == '-' {
		totalSeconds = -totalSeconds
	}
	return totalSeconds, nil
}

func offsetOrUTC(in string) string {
	if strings.TrimSpace(in) == "" {
		return "+00:00"
	}
	return in
}
