package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/vibechat/internal/agent"
	"github.com/harunnryd/vibechat/internal/completion"
	"github.com/harunnryd/vibechat/internal/concurrency"
	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/daemon"
	"github.com/harunnryd/vibechat/internal/server"
)

const HTTPServerName = "HTTPServer"

// HTTPServerComponent serves the chat, vibe-ask and health API.
type HTTPServerComponent struct {
	daemon      *daemon.Daemon
	cfg         *config.Config
	models      *ModelRouterComponent
	tools       *ToolRegistryComponent
	server      *http.Server
	listener    net.Listener
	shutdownTTL time.Duration
	initialized bool
	started     bool
	serveErr    error
	mu          sync.RWMutex
}

func NewHTTPServerComponent(d *daemon.Daemon, cfg *config.Config, models *ModelRouterComponent, tools *ToolRegistryComponent) *HTTPServerComponent {
	return &HTTPServerComponent{
		daemon: d,
		cfg:    cfg,
		models: models,
		tools:  tools,
	}
}

func (h *HTTPServerComponent) Name() string {
	return HTTPServerName
}

func (h *HTTPServerComponent) Dependencies() []string {
	return []string{ModelRouterName, ToolRegistryName}
}

func (h *HTTPServerComponent) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	router := h.models.Router()
	if router == nil {
		return fmt.Errorf("model router not initialized")
	}
	registry := h.tools.Registry()
	dispatcher := h.tools.Dispatcher()
	if registry == nil || dispatcher == nil {
		return fmt.Errorf("tool registry not initialized")
	}

	readTimeout, err := config.DurationOrDefault(h.cfg.Server.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return fmt.Errorf("parse server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.Server.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return fmt.Errorf("parse server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.Server.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return fmt.Errorf("parse server idle timeout: %w", err)
	}
	shutdownTimeout, err := config.DurationOrDefault(h.cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse server shutdown timeout: %w", err)
	}

	loop := agent.NewLoop(router, dispatcher, registry.Descriptors(), h.cfg.Agent, agent.WithObserver(agent.LogObserver{}))
	pipeline := completion.NewPipeline(router, h.cfg.Completion)

	opts := []server.Option{
		server.WithRateLimiter(server.NewRateLimiter(h.cfg.Completion.RateLimitRPM, h.cfg.Completion.RateLimitBurst)),
	}
	if h.daemon != nil {
		opts = append(opts, server.WithHealthReporter(healthReporter(h.daemon)))
	}
	api := server.New(h.cfg.Server, loop, pipeline, opts...)

	h.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", h.cfg.Server.Port),
		Handler:      api.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	h.shutdownTTL = shutdownTimeout

	h.initialized = true
	slog.Info("HTTPServer initialized", "component", h.Name(), "port", h.cfg.Server.Port, "tools", registry.Len())
	return nil
}

// Start binds the listener synchronously so port conflicts fail startup.
func (h *HTTPServerComponent) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return fmt.Errorf("HTTPServer not initialized")
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln

	srv := h.server
	concurrency.SafeGo(ctx, "http-server", func() {
		slog.Info("HTTP server listening", "component", h.Name(), "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "component", h.Name(), "error", err)
			h.setServeErr(err)
		}
	}, func(r any) {
		h.setServeErr(fmt.Errorf("serve panic: %v", r))
	})

	h.started = true
	return nil
}

func (h *HTTPServerComponent) Stop(ctx context.Context) error {
	h.mu.RLock()
	srv, started, ttl := h.server, h.started, h.shutdownTTL
	h.mu.RUnlock()

	if !started {
		return nil
	}

	// In-flight health requests take the read lock, so it is not held here.
	shutdownCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTPServer shutdown error", "component", h.Name(), "error", err)
		return err
	}

	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
	slog.Info("HTTPServer stopped", "component", h.Name())
	return nil
}

func (h *HTTPServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	switch {
	case !h.initialized:
		return &daemon.ComponentHealth{Name: h.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	case h.serveErr != nil:
		return &daemon.ComponentHealth{Name: h.Name(), Healthy: false, Error: h.serveErr}, nil
	case !h.started:
		return &daemon.ComponentHealth{Name: h.Name(), Healthy: false, Error: fmt.Errorf("not started")}, nil
	}
	return &daemon.ComponentHealth{Name: h.Name(), Healthy: true}, nil
}

func (h *HTTPServerComponent) setServeErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.serveErr = err
}

// Addr returns the bound address once started, useful with port 0.
func (h *HTTPServerComponent) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func healthReporter(d *daemon.Daemon) server.HealthReporter {
	return func() map[string]server.ComponentHealth {
		healths := d.ComponentHealth()
		out := make(map[string]server.ComponentHealth, len(healths))
		for name, h := range healths {
			entry := server.ComponentHealth{Healthy: h.Healthy}
			if h.Error != nil {
				entry.Error = h.Error.Error()
			}
			out[name] = entry
		}
		return out
	}
}
