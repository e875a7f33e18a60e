package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses value, or fallback when value is blank. Every
// caller uses the result as a timeout or interval, so negative values are
// rejected.
func DurationOrDefault(value, fallback string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(fallback)
	}
	if raw == "" {
		return 0, errors.New("duration value is empty")
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", raw)
	}
	return d, nil
}
