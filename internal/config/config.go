package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server" yaml:"server"`
	Models     ModelsConfig     `koanf:"models" yaml:"models"`
	Agent      AgentConfig      `koanf:"agent" yaml:"agent"`
	Completion CompletionConfig `koanf:"completion" yaml:"completion"`
	Tools      ToolsConfig      `koanf:"tools" yaml:"tools"`
	Daemon     DaemonConfig     `koanf:"daemon" yaml:"daemon"`
	Client     ClientConfig     `koanf:"client" yaml:"client"`
}

type ServerConfig struct {
	Port            int    `koanf:"port" yaml:"port"`
	LogLevel        string `koanf:"log_level" yaml:"log_level"`
	ReadTimeout     string `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigin   string `koanf:"allowed_origin" yaml:"allowed_origin"`
	MaxBodyBytes    int64  `koanf:"max_body_bytes" yaml:"max_body_bytes"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default" yaml:"default"`
	Fallback            string          `koanf:"fallback" yaml:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts" yaml:"max_fallback_attempts"`
	RequestTimeout      string          `koanf:"request_timeout" yaml:"request_timeout"`
	Registry            []ModelRegistry `koanf:"registry" yaml:"registry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name" yaml:"name"`
	Provider string `koanf:"provider" yaml:"provider"`
	BaseURL  string `koanf:"base_url" yaml:"base_url,omitempty"`
	APIKey   string `koanf:"api_key" yaml:"api_key,omitempty"`
}

type AgentConfig struct {
	MaxIterations       int    `koanf:"max_iterations" yaml:"max_iterations"`
	SystemPrompt        string `koanf:"system_prompt" yaml:"system_prompt"`
	HistoryWarnMessages int    `koanf:"history_warn_messages" yaml:"history_warn_messages"`
}

type CompletionConfig struct {
	Model             string            `koanf:"model" yaml:"model"`
	MinQuestionLength int               `koanf:"min_question_length" yaml:"min_question_length"`
	RateLimitRPM      int               `koanf:"rate_limit_rpm" yaml:"rate_limit_rpm"`
	RateLimitBurst    int               `koanf:"rate_limit_burst" yaml:"rate_limit_burst"`
	Completion        CompletionProfile `koanf:"completion" yaml:"completion"`
	Analysis          CompletionProfile `koanf:"analysis" yaml:"analysis"`
}

// CompletionProfile tunes one streaming mode. Prompts accept {{question}} and {{position}}.
type CompletionProfile struct {
	MaxTokens    int     `koanf:"max_tokens" yaml:"max_tokens"`
	Temperature  float32 `koanf:"temperature" yaml:"temperature"`
	SystemPrompt string  `koanf:"system_prompt" yaml:"system_prompt"`
	UserPrompt   string  `koanf:"user_prompt" yaml:"user_prompt"`
}

type ToolsConfig struct {
	Timeout string            `koanf:"timeout" yaml:"timeout"`
	Weather WeatherToolConfig `koanf:"weather" yaml:"weather"`
	Search  WebToolConfig     `koanf:"search" yaml:"search"`
	Reddit  RedditToolConfig  `koanf:"reddit" yaml:"reddit"`
	DadJoke WebToolConfig     `koanf:"dad_joke" yaml:"dad_joke"`
	Image   ImageToolConfig   `koanf:"image" yaml:"image"`
}

type WebToolConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
	Timeout string `koanf:"timeout" yaml:"timeout"`
}

type WeatherToolConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
	APIKey  string `koanf:"api_key" yaml:"api_key,omitempty"`
	Timeout string `koanf:"timeout" yaml:"timeout"`
}

type RedditToolConfig struct {
	BaseURL   string `koanf:"base_url" yaml:"base_url"`
	Subreddit string `koanf:"subreddit" yaml:"subreddit"`
	Timeout   string `koanf:"timeout" yaml:"timeout"`
}

type ImageToolConfig struct {
	Model   string `koanf:"model" yaml:"model"`
	Size    string `koanf:"size" yaml:"size"`
	APIKey  string `koanf:"api_key" yaml:"api_key,omitempty"`
	BaseURL string `koanf:"base_url" yaml:"base_url,omitempty"`
	Timeout string `koanf:"timeout" yaml:"timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval" yaml:"health_check_interval"`
}

type ClientConfig struct {
	BaseURL  string `koanf:"base_url" yaml:"base_url"`
	Debounce string `koanf:"debounce" yaml:"debounce"`
}

const (
	DefaultServerPort                = 3001
	DefaultServerLogLevel            = "info"
	DefaultServerReadTimeout         = "10s"
	DefaultServerWriteTimeout        = "120s"
	DefaultServerIdleTimeout         = "60s"
	DefaultServerShutdownTimeout     = "5s"
	DefaultServerAllowedOrigin       = "*"
	DefaultServerMaxBodyBytes        = 1 << 20
	DefaultModelDefault              = "gpt-4o"
	DefaultModelMaxFallbackAttempts  = 2
	DefaultModelRequestTimeout       = "60s"
	DefaultOpenAIBaseURL             = "https://api.openai.com/v1"
	DefaultOllamaBaseURL             = "http://localhost:11434/v1"
	DefaultOllamaAPIKey              = "ollama"
	DefaultZaiBaseURL                = "https://api.z.ai/api/paas/v4/"
	DefaultAgentMaxIterations        = 10
	DefaultAgentHistoryWarnMessages  = 50
	DefaultCompletionMinQuestionLen  = 3
	DefaultCompletionRateLimitBurst  = 5
	DefaultCompletionMaxTokens       = 100
	DefaultCompletionTemperature     = 0.3
	DefaultAnalysisMaxTokens         = 500
	DefaultAnalysisTemperature       = 0.7
	DefaultToolTimeout               = "15s"
	DefaultWeatherToolBaseURL        = "https://api.openweathermap.org/data/2.5/weather"
	DefaultWeatherToolAPIKey         = "demo"
	DefaultWeatherToolTimeout        = "10s"
	DefaultSearchToolBaseURL         = "https://api.duckduckgo.com/"
	DefaultSearchToolTimeout         = "10s"
	DefaultRedditToolBaseURL         = "https://www.reddit.com"
	DefaultRedditToolSubreddit       = "nba"
	DefaultRedditToolTimeout         = "10s"
	DefaultDadJokeToolBaseURL        = "https://icanhazdadjoke.com/"
	DefaultDadJokeToolTimeout        = "10s"
	DefaultImageToolModel            = "dall-e-3"
	DefaultImageToolSize             = "1024x1024"
	DefaultImageToolTimeout          = "60s"
	DefaultDaemonShutdownTimeout     = "30s"
	DefaultDaemonHealthCheckInterval = "30s"
	DefaultClientBaseURL             = "http://localhost:3001"
	DefaultClientDebounce            = "200ms"

	DefaultCompletionSystemPrompt = `You are an intelligent auto-completion assistant. Your task is to continue the user's question naturally and helpfully.

Rules:
1. Continue the question in a natural, conversational way
2. Keep the completion concise (1-2 sentences max)
3. Maintain the same tone and style as the user's input
4. Don't repeat what the user has already written
5. Focus on completing the thought or question
6. Respond in English only

User's partial question: "{{question}}"
Cursor position: {{position}}

Continue the question naturally:`
	DefaultCompletionUserPrompt = `Continue this question naturally: "{{question}}"`
	DefaultAnalysisSystemPrompt = "You are an intelligent question analysis assistant, helping users refine and optimize their questions. Please answer in English and stream suggestions in real time."
	DefaultAnalysisUserPrompt   = `Analyze this question and provide suggestions for improvement: "{{question}}"`
)

// DefaultConfigPath is where Load looks when no --config flag is given.
func DefaultConfigPath() string {
	path, err := ExpandPath("~/.vibechat/config.yaml")
	if err != nil {
		return filepath.Join(".vibechat", "config.yaml")
	}
	return path
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"server.allowed_origin":        DefaultServerAllowedOrigin,
		"server.max_body_bytes":        DefaultServerMaxBodyBytes,
		"models.default":               DefaultModelDefault,
		"models.fallback":              "",
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.request_timeout":       DefaultModelRequestTimeout,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "openai"},
			{Name: "claude-3-5-haiku-latest", Provider: "anthropic"},
			{Name: "gemini-2.0-flash", Provider: "gemini"},
			{Name: "llama3.1", Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
		},
		"agent.max_iterations":                  DefaultAgentMaxIterations,
		"agent.system_prompt":                   "",
		"agent.history_warn_messages":           DefaultAgentHistoryWarnMessages,
		"completion.model":                      "",
		"completion.min_question_length":        DefaultCompletionMinQuestionLen,
		"completion.rate_limit_rpm":             0,
		"completion.rate_limit_burst":           DefaultCompletionRateLimitBurst,
		"completion.completion.max_tokens":      DefaultCompletionMaxTokens,
		"completion.completion.temperature":     DefaultCompletionTemperature,
		"completion.completion.system_prompt":   DefaultCompletionSystemPrompt,
		"completion.completion.user_prompt":     DefaultCompletionUserPrompt,
		"completion.analysis.max_tokens":        DefaultAnalysisMaxTokens,
		"completion.analysis.temperature":       DefaultAnalysisTemperature,
		"completion.analysis.system_prompt":     DefaultAnalysisSystemPrompt,
		"completion.analysis.user_prompt":       DefaultAnalysisUserPrompt,
		"tools.timeout":                         DefaultToolTimeout,
		"tools.weather.base_url":                DefaultWeatherToolBaseURL,
		"tools.weather.timeout":                 DefaultWeatherToolTimeout,
		"tools.search.base_url":                 DefaultSearchToolBaseURL,
		"tools.search.timeout":                  DefaultSearchToolTimeout,
		"tools.reddit.base_url":                 DefaultRedditToolBaseURL,
		"tools.reddit.subreddit":                DefaultRedditToolSubreddit,
		"tools.reddit.timeout":                  DefaultRedditToolTimeout,
		"tools.dad_joke.base_url":               DefaultDadJokeToolBaseURL,
		"tools.dad_joke.timeout":                DefaultDadJokeToolTimeout,
		"tools.image.model":                     DefaultImageToolModel,
		"tools.image.size":                      DefaultImageToolSize,
		"tools.image.timeout":                   DefaultImageToolTimeout,
		"daemon.shutdown_timeout":               DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":          DefaultDaemonHealthCheckInterval,
		"client.base_url":                       DefaultClientBaseURL,
		"client.debounce":                       DefaultClientDebounce,
	}
}

// Default returns the built-in configuration with no file, environment or
// flag overrides applied.
func Default() (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		k.Set(key, value)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		expanded, err := ExpandPath(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(expanded), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := DefaultConfigPath()
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// Environment Variables
	k.Load(env.Provider("VIBECHAT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VIBECHAT_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	injectEnvKeys(&cfg)

	return &cfg, nil
}

// injectEnvKeys fills empty credentials from the conventional provider env vars.
func injectEnvKeys(cfg *Config) {
	providerKeys := map[string]string{
		"openai":    os.Getenv("OPENAI_API_KEY"),
		"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
		"gemini":    os.Getenv("GEMINI_API_KEY"),
		"zai":       os.Getenv("ZAI_API_KEY"),
	}

	for i, m := range cfg.Models.Registry {
		if m.APIKey != "" {
			continue
		}
		if key := providerKeys[m.Provider]; key != "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}

	if cfg.Tools.Weather.APIKey == "" {
		cfg.Tools.Weather.APIKey = os.Getenv("OPENWEATHER_API_KEY")
	}
	if cfg.Tools.Weather.APIKey == "" {
		cfg.Tools.Weather.APIKey = DefaultWeatherToolAPIKey
	}
	if cfg.Tools.Image.APIKey == "" {
		cfg.Tools.Image.APIKey = providerKeys["openai"]
	}
}

// ProfileFor returns the streaming profile for mode; unknown modes get the analysis profile.
func (c CompletionConfig) ProfileFor(mode string) CompletionProfile {
	if strings.EqualFold(strings.TrimSpace(mode), "completion") {
		return c.Completion
	}
	return c.Analysis
}
