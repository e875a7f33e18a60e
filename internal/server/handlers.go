package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/harunnryd/vibechat/internal/completion"
	vcerrors "github.com/harunnryd/vibechat/internal/errors"
	"github.com/harunnryd/vibechat/internal/logger"
	"github.com/harunnryd/vibechat/internal/model/contract"
	"github.com/harunnryd/vibechat/internal/sse"
)

const healthTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Success     bool               `json:"success"`
	Messages    []contract.Message `json:"messages"`
	LastMessage contract.Message   `json:"lastMessage"`
}

type vibeAskRequest struct {
	Question string `json:"question"`
	Position *int   `json:"position"`
	Mode     string `json:"mode"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, s.maxBodyBytes, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	// An agent run is bounded by its iteration budget and per-call
	// timeouts, not by the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	res, err := s.chat.Run(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			slog.Info("Chat request cancelled by client", logger.Attrs(r.Context())...)
			return
		}
		slog.Error("Chat error", append([]any{"category", vcerrors.Category(err), "error", err}, logger.Attrs(r.Context())...)...)
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:     true,
		Messages:    res.Messages,
		LastMessage: res.Messages[len(res.Messages)-1],
	})
}

func (s *Server) handleVibeAsk(w http.ResponseWriter, r *http.Request) {
	var req vibeAskRequest
	if !decodeBody(w, r, s.maxBodyBytes, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	mode, err := completion.ParseMode(req.Mode)
	if err != nil {
		slog.Warn("Unknown vibe ask mode, using analysis", append([]any{"mode", req.Mode}, logger.Attrs(r.Context())...)...)
		mode = completion.ModeAnalysis
	}

	if !s.limiter.Allow(clientKey(r)) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	cursor := -1
	if req.Position != nil {
		cursor = *req.Position
	}
	session := completion.NewSession(req.Question, cursor, mode)

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	stream := sse.NewWriter(w, s.allowedOrigin)
	defer stream.Close()

	sink := completion.SinkFunc(func(ev completion.Event) error {
		return stream.WriteJSON(ev)
	})
	if err := s.completions.Run(r.Context(), session, sink); err != nil {
		slog.Warn("Vibe ask stream ended with error", append([]any{"mode", mode, "error", err}, logger.Attrs(r.Context())...)...)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(healthTimeFormat),
	}
	if s.health != nil {
		resp.Components = s.health()
	}
	writeJSON(w, http.StatusOK, resp)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
