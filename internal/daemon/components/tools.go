package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/daemon"
	"github.com/harunnryd/vibechat/internal/tool"
	_ "github.com/harunnryd/vibechat/internal/tool/builtin"
)

const ToolRegistryName = "ToolRegistry"

// ToolRegistryComponent builds the built-in tool registry and its dispatcher.
type ToolRegistryComponent struct {
	cfg         config.ToolsConfig
	registry    *tool.Registry
	dispatcher  *tool.Dispatcher
	initialized bool
	mu          sync.RWMutex
}

func NewToolRegistryComponent(cfg config.ToolsConfig) *ToolRegistryComponent {
	return &ToolRegistryComponent{cfg: cfg}
}

// NewToolRegistryComponentWithRegistry uses registry instead of the built-ins.
func NewToolRegistryComponentWithRegistry(cfg config.ToolsConfig, registry *tool.Registry) *ToolRegistryComponent {
	return &ToolRegistryComponent{cfg: cfg, registry: registry}
}

func (c *ToolRegistryComponent) Name() string {
	return ToolRegistryName
}

func (c *ToolRegistryComponent) Dependencies() []string {
	return nil
}

func (c *ToolRegistryComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	timeout, err := config.DurationOrDefault(c.cfg.Timeout, config.DefaultToolTimeout)
	if err != nil {
		return fmt.Errorf("parse tools timeout: %w", err)
	}

	if c.registry == nil {
		options, err := tool.BuiltinOptionsFromConfig(c.cfg)
		if err != nil {
			return err
		}
		registry, err := tool.NewBuiltinRegistry(options)
		if err != nil {
			return fmt.Errorf("build tool registry: %w", err)
		}
		c.registry = registry
	}

	c.dispatcher = tool.NewDispatcher(c.registry, timeout)
	c.initialized = true
	slog.Info("ToolRegistry initialized", "component", c.Name(), "tools", c.registry.Names(), "timeout", timeout)
	return nil
}

func (c *ToolRegistryComponent) Start(ctx context.Context) error {
	return nil
}

func (c *ToolRegistryComponent) Stop(ctx context.Context) error {
	return nil
}

func (c *ToolRegistryComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: true}, nil
}

func (c *ToolRegistryComponent) Registry() *tool.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry
}

func (c *ToolRegistryComponent) Dispatcher() *tool.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}
