package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/daemon"
	"github.com/harunnryd/vibechat/internal/model"
)

const ModelRouterName = "ModelRouter"

// ModelRouterComponent owns the provider registry shared by the agent loop
// and the completion pipeline.
type ModelRouterComponent struct {
	cfg         config.ModelsConfig
	router      model.ModelRouter
	initialized bool
	mu          sync.RWMutex
}

func NewModelRouterComponent(cfg config.ModelsConfig) *ModelRouterComponent {
	return &ModelRouterComponent{cfg: cfg}
}

// NewModelRouterComponentWithRouter skips provider construction and uses router as is.
func NewModelRouterComponentWithRouter(router model.ModelRouter) *ModelRouterComponent {
	return &ModelRouterComponent{router: router}
}

func (c *ModelRouterComponent) Name() string {
	return ModelRouterName
}

func (c *ModelRouterComponent) Dependencies() []string {
	return nil
}

func (c *ModelRouterComponent) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.router == nil {
		router, err := model.NewModelRouter(c.cfg)
		if err != nil {
			return fmt.Errorf("create model router: %w", err)
		}
		c.router = router
	}

	c.initialized = true
	slog.Info("ModelRouter initialized", "component", c.Name(), "default", c.router.DefaultModel(), "models", c.router.ListModels())
	return nil
}

func (c *ModelRouterComponent) Start(ctx context.Context) error {
	return nil
}

func (c *ModelRouterComponent) Stop(ctx context.Context) error {
	return nil
}

func (c *ModelRouterComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if err := c.router.Health(ctx); err != nil {
		return &daemon.ComponentHealth{Name: c.Name(), Healthy: false, Error: err}, nil
	}
	return &daemon.ComponentHealth{Name: c.Name(), Healthy: true}, nil
}

// Router is nil until Init has run.
func (c *ModelRouterComponent) Router() model.ModelRouter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.router
}
