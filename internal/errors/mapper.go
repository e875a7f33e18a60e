package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MapModelError classifies a raw provider failure. The result always wraps
// ErrModelClient; timeouts and rate limits additionally wrap ErrTransient.
func MapModelError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, ErrModelClient) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timeout: %w", ErrModelClient, ErrTransient)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "rate limit"), strings.Contains(errStr, "too many requests"), strings.Contains(errStr, "quota"):
		return fmt.Errorf("%w: rate limited: %w", ErrModelClient, ErrTransient)
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf("%w: request timeout: %w", ErrModelClient, ErrTransient)
	case strings.Contains(errStr, "connection"), strings.Contains(errStr, "network"), strings.Contains(errStr, "unreachable"):
		return fmt.Errorf("%w: network error: %w", ErrModelClient, ErrTransient)
	default:
		return fmt.Errorf("%w: %w", ErrModelClient, err)
	}
}

// IsFatal reports whether err must abort an agent run rather than be fed back to the model.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownTool) ||
		errors.Is(err, ErrModelClient) ||
		errors.Is(err, ErrLoopBudgetExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Category returns a stable label for logging.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrInvalidArguments):
		return "ErrInvalidArguments"
	case errors.Is(err, ErrToolExecution):
		return "ErrToolExecution"
	case errors.Is(err, ErrUnknownTool):
		return "ErrUnknownTool"
	case errors.Is(err, ErrLoopBudgetExceeded):
		return "ErrLoopBudgetExceeded"
	case errors.Is(err, ErrModelClient):
		return "ErrModelClient"
	case errors.Is(err, ErrStreamParse):
		return "ErrStreamParse"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrTransient):
		return "ErrTransient"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// WrapWithCategory wraps err under message and category, keeping both in the chain
func WrapWithCategory(err error, message string, category error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w: %w", message, category, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

func InvalidInput(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidInput)
}

func InvalidArguments(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidArguments)
}

func ToolExecution(message string) error {
	return fmt.Errorf("%s: %w", message, ErrToolExecution)
}

// UnknownTool reports a tool name the registry cannot resolve
func UnknownTool(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownTool, name)
}

func LoopBudgetExceeded(limit int) error {
	return fmt.Errorf("%w: no final answer after %d iterations", ErrLoopBudgetExceeded, limit)
}

func StreamParse(message string) error {
	return fmt.Errorf("%s: %w", message, ErrStreamParse)
}

func Transient(message string) error {
	return fmt.Errorf("%s: %w", message, ErrTransient)
}

func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// IsRetryable checks if an error is transient, indicating a fallback or retry may succeed
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransient)
}
