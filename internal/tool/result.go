package tool

import (
	"encoding/json"
	"fmt"
)

// Result is the explicit success/failure variant every handler returns.
// Expected failures such as "location not found" are a Result, not an error.
type Result struct {
	Success bool
	Data    any
	Error   string
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

func Fail(message string) Result {
	return Result{Success: false, Error: message}
}

func Failf(format string, args ...any) Result {
	return Fail(fmt.Sprintf(format, args...))
}

type resultJSON struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.Success {
		return json.Marshal(resultJSON{Success: true, Data: r.Data})
	}
	return json.Marshal(resultJSON{Success: false, Error: r.Error})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	r.Success = raw.Success
	r.Error = raw.Error
	r.Data = nil
	if len(raw.Data) > 0 {
		var data any
		if err := json.Unmarshal(raw.Data, &data); err != nil {
			return err
		}
		r.Data = data
	}
	return nil
}

// String is the serialisation stored in tool-role messages.
func (r Result) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Failf("failed to serialize tool result: %v", err))
	}
	return string(b)
}
