package server

import (
	"context"
	"net/http"
	"time"

	"github.com/harunnryd/vibechat/internal/agent"
	"github.com/harunnryd/vibechat/internal/completion"
	"github.com/harunnryd/vibechat/internal/config"
)

// Chatter runs one agent conversation per request.
type Chatter interface {
	Run(ctx context.Context, userMessage string, opts ...agent.RunOption) (*agent.Result, error)
}

// Completer streams one completion session into a sink.
type Completer interface {
	Run(ctx context.Context, s completion.Session, sink completion.Sink) error
}

// ComponentHealth is the per-component view surfaced by /api/health.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthReporter returns the current component health keyed by name.
type HealthReporter func() map[string]ComponentHealth

// Server exposes the chat, vibe-ask and health endpoints.
type Server struct {
	chat          Chatter
	completions   Completer
	limiter       *RateLimiter
	health        HealthReporter
	allowedOrigin string
	maxBodyBytes  int64
	now           func() time.Time
}

type Option func(*Server)

func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

func WithHealthReporter(fn HealthReporter) Option {
	return func(s *Server) {
		s.health = fn
	}
}

func New(cfg config.ServerConfig, chat Chatter, completions Completer, opts ...Option) *Server {
	s := &Server{
		chat:          chat,
		completions:   completions,
		allowedOrigin: cfg.AllowedOrigin,
		maxBodyBytes:  cfg.MaxBodyBytes,
		now:           time.Now,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultServerMaxBodyBytes
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/vibe-ask", s.handleVibeAsk)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return chain(mux,
		withTraceID,
		withRecover,
		withRequestLog,
		withCORS(s.allowedOrigin),
	)
}
