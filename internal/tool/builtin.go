package tool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harunnryd/vibechat/internal/config"
)

// BuiltinOptions carries runtime dependencies needed by built-in tool factories.
type BuiltinOptions struct {
	HTTPTimeout     time.Duration
	WeatherBaseURL  string
	WeatherAPIKey   string
	WeatherTimeout  time.Duration
	SearchBaseURL   string
	SearchTimeout   time.Duration
	RedditBaseURL   string
	RedditSubreddit string
	RedditTimeout   time.Duration
	DadJokeBaseURL  string
	DadJokeTimeout  time.Duration
	ImageAPIKey     string
	ImageBaseURL    string
	ImageModel      string
	ImageSize       string
	ImageTimeout    time.Duration
}

const DefaultBuiltinHTTPTimeout = 10 * time.Second

// BuiltinOptionsFromConfig resolves durations and endpoints from the tools section.
func BuiltinOptionsFromConfig(cfg config.ToolsConfig) (BuiltinOptions, error) {
	opts := BuiltinOptions{
		HTTPTimeout:     DefaultBuiltinHTTPTimeout,
		WeatherBaseURL:  cfg.Weather.BaseURL,
		WeatherAPIKey:   cfg.Weather.APIKey,
		SearchBaseURL:   cfg.Search.BaseURL,
		RedditBaseURL:   cfg.Reddit.BaseURL,
		RedditSubreddit: cfg.Reddit.Subreddit,
		DadJokeBaseURL:  cfg.DadJoke.BaseURL,
		ImageAPIKey:     cfg.Image.APIKey,
		ImageBaseURL:    cfg.Image.BaseURL,
		ImageModel:      cfg.Image.Model,
		ImageSize:       cfg.Image.Size,
	}

	durations := []struct {
		name  string
		value string
		def   string
		dst   *time.Duration
	}{
		{"weather", cfg.Weather.Timeout, config.DefaultWeatherToolTimeout, &opts.WeatherTimeout},
		{"search", cfg.Search.Timeout, config.DefaultSearchToolTimeout, &opts.SearchTimeout},
		{"reddit", cfg.Reddit.Timeout, config.DefaultRedditToolTimeout, &opts.RedditTimeout},
		{"dad_joke", cfg.DadJoke.Timeout, config.DefaultDadJokeToolTimeout, &opts.DadJokeTimeout},
		{"image", cfg.Image.Timeout, config.DefaultImageToolTimeout, &opts.ImageTimeout},
	}

	for _, d := range durations {
		parsed, err := config.DurationOrDefault(d.value, d.def)
		if err != nil {
			return BuiltinOptions{}, fmt.Errorf("tools.%s.timeout: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return opts, nil
}

// TimeoutOr returns preferred when set, then HTTPTimeout, then the package default.
func (o BuiltinOptions) TimeoutOr(preferred time.Duration) time.Duration {
	if preferred > 0 {
		return preferred
	}
	if o.HTTPTimeout > 0 {
		return o.HTTPTimeout
	}
	return DefaultBuiltinHTTPTimeout
}

type BuiltinFactory func(options BuiltinOptions) (Tool, error)

var builtinCatalog = struct {
	mu        sync.RWMutex
	factories map[string]BuiltinFactory
}{
	factories: map[string]BuiltinFactory{},
}

// RegisterBuiltin registers a built-in tool factory under a tool name.
// Intended to be called in init() from built-in tool files.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	normalized := NormalizeToolName(name)
	if normalized == "" {
		panic("tool: built-in name cannot be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("tool: built-in factory cannot be nil (%s)", normalized))
	}

	builtinCatalog.mu.Lock()
	defer builtinCatalog.mu.Unlock()

	if _, exists := builtinCatalog.factories[normalized]; exists {
		panic(fmt.Sprintf("tool: built-in already registered: %s", normalized))
	}
	builtinCatalog.factories[normalized] = factory
}

// BuiltinNames returns all registered built-in names in deterministic order.
func BuiltinNames() []string {
	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()

	names := make([]string, 0, len(builtinCatalog.factories))
	for name := range builtinCatalog.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltinName reports whether a tool name maps to a registered built-in tool.
func IsBuiltinName(name string) bool {
	normalized := NormalizeToolName(name)
	if normalized == "" {
		return false
	}

	builtinCatalog.mu.RLock()
	defer builtinCatalog.mu.RUnlock()
	_, ok := builtinCatalog.factories[normalized]
	return ok
}

// InstantiateBuiltins constructs all built-in tools using their registered factories.
func InstantiateBuiltins(options BuiltinOptions) ([]Tool, error) {
	builtinCatalog.mu.RLock()
	factories := make(map[string]BuiltinFactory, len(builtinCatalog.factories))
	for name, factory := range builtinCatalog.factories {
		factories[name] = factory
	}
	builtinCatalog.mu.RUnlock()

	tools := make([]Tool, 0, len(factories))
	for _, name := range BuiltinNames() {
		toolFactory, ok := factories[name]
		if !ok {
			continue
		}

		t, err := toolFactory(options)
		if err != nil {
			return nil, fmt.Errorf("instantiate built-in %q: %w", name, err)
		}
		tools = append(tools, t)
	}

	return tools, nil
}

// NewBuiltinRegistry instantiates every registered built-in into a Registry.
func NewBuiltinRegistry(options BuiltinOptions) (*Registry, error) {
	tools, err := InstantiateBuiltins(options)
	if err != nil {
		return nil, err
	}
	return NewRegistry(tools...)
}
