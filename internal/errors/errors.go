package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - a required request field is missing or malformed (400, run never starts)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArguments - tool-call arguments failed to parse or validate (tool-level failure, loop continues)
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrToolExecution - a tool handler failed or reported success:false (tool-level failure, loop continues)
	ErrToolExecution = errors.New("tool execution failed")

	// ErrUnknownTool - the model named a tool missing from the registry (fatal for the run)
	ErrUnknownTool = errors.New("unknown tool")

	// ErrModelClient - inference call failed or timed out (fatal for the run)
	ErrModelClient = errors.New("model client error")

	// ErrLoopBudgetExceeded - the agent loop ran past its iteration guard (fatal for the run)
	ErrLoopBudgetExceeded = errors.New("loop budget exceeded")

	// ErrStreamParse - malformed frame on a server-sent event stream (frame skipped)
	ErrStreamParse = errors.New("stream parse error")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrTransient - transient error, safe to retry or fall back
	ErrTransient = errors.New("transient error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
