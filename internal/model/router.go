package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/vibechat/internal/config"
	vcerrors "github.com/harunnryd/vibechat/internal/errors"
	"github.com/harunnryd/vibechat/internal/logger"
	"github.com/harunnryd/vibechat/internal/model/contract"
	anthropicProvider "github.com/harunnryd/vibechat/internal/model/providers/anthropic"
	geminiProvider "github.com/harunnryd/vibechat/internal/model/providers/gemini"
	openaiProvider "github.com/harunnryd/vibechat/internal/model/providers/openai"
)

// DefaultModelRouter implements ModelRouter over the configured registry.
type DefaultModelRouter struct {
	cfg            config.ModelsConfig
	providers      map[string]Provider
	requestTimeout time.Duration
	mu             sync.RWMutex
}

// NewModelRouter creates a new model router
func NewModelRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	router, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}

	if err := router.initProviders(); err != nil {
		return nil, err
	}

	return router, nil
}

// NewModelRouterWithProviders builds a router over already constructed providers.
func NewModelRouterWithProviders(cfg config.ModelsConfig, providers ...Provider) (*DefaultModelRouter, error) {
	router, err := newRouter(cfg)
	if err != nil {
		return nil, err
	}

	for _, p := range providers {
		router.providers[p.Name()] = p
	}

	return router, nil
}

func newRouter(cfg config.ModelsConfig) (*DefaultModelRouter, error) {
	timeout, err := config.DurationOrDefault(cfg.RequestTimeout, config.DefaultModelRequestTimeout)
	if err != nil {
		return nil, vcerrors.InvalidInput(fmt.Sprintf("invalid models.request_timeout: %v", err))
	}

	return &DefaultModelRouter{
		cfg:            cfg,
		providers:      make(map[string]Provider),
		requestTimeout: timeout,
	}, nil
}

// Complete routes a non-streaming request. Every failure wraps ErrModelClient.
func (r *DefaultModelRouter) Complete(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	model := r.modelFor(req.Model)
	slog.Debug("Routing completion request", append([]any{"model", model, "messages", len(req.Messages)}, logger.Attrs(ctx)...)...)

	provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, vcerrors.MapModelError(err)
	}

	req.Messages = contract.WireMessages(req.Messages)

	var resp *contract.CompletionResponse
	err = r.executeWithFallback(ctx, model, provider, func(callCtx context.Context, name string, p Provider) error {
		routed := req
		routed.Model = name
		out, callErr := p.Generate(callCtx, routed)
		if callErr != nil {
			return callErr
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, vcerrors.MapModelError(err)
	}

	return resp, nil
}

// Stream opens a streamed completion. The request timeout covers the whole
// stream and is released by Close.
func (r *DefaultModelRouter) Stream(ctx context.Context, req contract.StreamRequest) (contract.DeltaStream, error) {
	model := r.modelFor(req.Model)
	slog.Debug("Routing stream request", append([]any{"model", model}, logger.Attrs(ctx)...)...)

	provider, err := r.resolveProvider(ctx, model)
	if err != nil {
		return nil, vcerrors.MapModelError(err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)

	var stream contract.DeltaStream
	err = r.executeWithFallback(streamCtx, model, provider, func(_ context.Context, name string, p Provider) error {
		routed := req
		routed.Model = name
		s, openErr := p.Stream(streamCtx, routed)
		if openErr != nil {
			return openErr
		}
		stream = s
		return nil
	})
	if err != nil {
		cancel()
		return nil, vcerrors.MapModelError(err)
	}

	return &timedStream{DeltaStream: stream, cancel: cancel}, nil
}

// DefaultModel returns the configured default model name.
func (r *DefaultModelRouter) DefaultModel() string {
	return r.cfg.Default
}

// ListModels returns all registered model names
func (r *DefaultModelRouter) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.providers))
	for name := range r.providers {
		models = append(models, name)
	}
	sort.Strings(models)

	return models
}

// Health checks the health of the router and its providers
func (r *DefaultModelRouter) Health(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, provider := range r.providers {
		if err := provider.Health(ctx); err != nil {
			slog.Warn("Provider unhealthy", "provider", name, "error", err)
			return vcerrors.Transient(fmt.Sprintf("provider %s unhealthy", name))
		}
	}

	return nil
}

func (r *DefaultModelRouter) modelFor(requested string) string {
	if requested != "" {
		return requested
	}
	return r.cfg.Default
}

// initProviders initializes all providers from configuration
func (r *DefaultModelRouter) initProviders() error {
	for _, entry := range r.cfg.Registry {
		provider, err := r.createProvider(entry)
		if err != nil {
			slog.Warn("Failed to create provider", "provider", entry.Provider, "model", entry.Name, "error", err)
			continue
		}

		r.providers[entry.Name] = provider
		slog.Info("Provider initialized", "name", entry.Name, "type", entry.Provider)
	}

	if len(r.providers) == 0 && len(r.cfg.Registry) > 0 {
		return vcerrors.Internal("no providers initialized")
	}

	return nil
}

// resolveProvider resolves a provider by model name with fallback
func (r *DefaultModelRouter) resolveProvider(ctx context.Context, model string) (Provider, error) {
	select {
	case <-ctx.Done():
		return nil, vcerrors.Wrap(ctx.Err(), "provider resolution cancelled")
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if provider, exists := r.providers[model]; exists {
		return provider, nil
	}

	slog.Warn("Model not found", "model", model)

	if r.cfg.Fallback != "" && model != r.cfg.Fallback {
		if fallbackProvider, ok := r.providers[r.cfg.Fallback]; ok {
			slog.Info("Using fallback model", "model", model, "fallback", r.cfg.Fallback)
			return fallbackProvider, nil
		}
	}

	return nil, vcerrors.NotFound(fmt.Sprintf("model %s not found", model))
}

type attemptFunc func(ctx context.Context, model string, p Provider) error

// executeWithFallback runs call against provider, then against the fallback
// model until MaxFallbackAttempts is reached.
func (r *DefaultModelRouter) executeWithFallback(ctx context.Context, model string, provider Provider, call attemptFunc) error {
	maxAttempts := r.cfg.MaxFallbackAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultModelMaxFallbackAttempts
	}

	currentModel := model
	if provider.Name() != model {
		currentModel = provider.Name()
	}
	currentProvider := provider

	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return vcerrors.Wrap(ctx.Err(), "request execution cancelled")
		default:
		}

		callCtx, cancel := context.WithTimeout(ctx, r.requestTimeout)
		err := call(callCtx, currentModel, currentProvider)
		cancel()
		if err == nil {
			slog.Debug("Request completed", append([]any{"model", currentModel, "attempt", attempt + 1}, logger.Attrs(ctx)...)...)
			return nil
		}

		slog.Error("Provider request failed", append([]any{"model", currentModel, "attempt", attempt + 1, "error", err}, logger.Attrs(ctx)...)...)

		if ctx.Err() != nil {
			return err
		}

		if r.cfg.Fallback == "" || currentModel == r.cfg.Fallback {
			return err
		}

		r.mu.RLock()
		fallbackProvider, exists := r.providers[r.cfg.Fallback]
		r.mu.RUnlock()
		if !exists {
			return err
		}

		slog.Info("Attempting fallback", "from", currentModel, "to", r.cfg.Fallback)
		currentModel = r.cfg.Fallback
		currentProvider = fallbackProvider
	}

	return vcerrors.Internal("fallback exhausted")
}

// createProvider creates a provider instance based on registry entry
func (r *DefaultModelRouter) createProvider(entry config.ModelRegistry) (Provider, error) {
	switch entry.Provider {
	case "openai":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOpenAIBaseURL
		}

		if entry.APIKey == "" {
			return nil, vcerrors.InvalidInput("API key required for OpenAI provider")
		}

		return &ProviderAdapter{
			provider:     openaiProvider.New(entry.APIKey, baseURL, entry.Name),
			name:         entry.Name,
			providerType: "openai",
		}, nil

	case "ollama":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultOllamaBaseURL
		}

		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = config.DefaultOllamaAPIKey
		}

		return &ProviderAdapter{
			provider:     openaiProvider.New(apiKey, baseURL, entry.Name),
			name:         entry.Name,
			providerType: "ollama",
		}, nil

	case "zai":
		if entry.APIKey == "" {
			return nil, vcerrors.InvalidInput("API key required for Zai provider")
		}

		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = config.DefaultZaiBaseURL
		}

		return &ProviderAdapter{
			provider:     openaiProvider.New(entry.APIKey, baseURL, entry.Name),
			name:         entry.Name,
			providerType: "zai",
		}, nil

	case "anthropic":
		if entry.APIKey == "" {
			return nil, vcerrors.InvalidInput("API key required for Anthropic provider")
		}

		return &ProviderAdapter{
			provider:     anthropicProvider.New(entry.APIKey),
			name:         entry.Name,
			providerType: "anthropic",
		}, nil

	case "gemini":
		if entry.APIKey == "" {
			return nil, vcerrors.InvalidInput("API key required for Gemini provider")
		}

		provider, err := geminiProvider.New(entry.APIKey, entry.BaseURL)
		if err != nil {
			return nil, vcerrors.WrapWithCategory(err, "failed to create Gemini provider", vcerrors.ErrInternal)
		}

		return &ProviderAdapter{
			provider:     provider,
			name:         entry.Name,
			providerType: "gemini",
		}, nil

	default:
		return nil, vcerrors.InvalidInput(fmt.Sprintf("unknown provider type: %s", entry.Provider))
	}
}

type timedStream struct {
	contract.DeltaStream
	cancel context.CancelFunc
	once   sync.Once
}

func (s *timedStream) Close() error {
	err := s.DeltaStream.Close()
	s.once.Do(s.cancel)
	return err
}
