package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	vcerrors "github.com/harunnryd/vibechat/internal/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeRunError maps a failed agent run to a single 500 payload. The error
// label distinguishes budget exhaustion and protocol failures.
func writeRunError(w http.ResponseWriter, err error) {
	label := "Internal server error"
	switch {
	case errors.Is(err, vcerrors.ErrLoopBudgetExceeded):
		label = "Agent iteration budget exceeded"
	case errors.Is(err, vcerrors.ErrUnknownTool):
		label = "Model requested an unknown tool"
	case errors.Is(err, vcerrors.ErrModelClient):
		label = "Model request failed"
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: label, Details: err.Error()})
}

// decodeBody reads a JSON body bounded by limit. It writes the 4xx response
// itself and reports false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body", Details: err.Error()})
		return false
	}
	return true
}
