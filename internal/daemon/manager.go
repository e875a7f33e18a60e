package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harunnryd/vibechat/internal/config"
)

// Daemon owns the lifecycle of the registered components.
type Daemon struct {
	cfg        *config.Config
	components []Component
	order      []string
	health     HealthStatus
	startedAt  time.Time
	mu         sync.RWMutex
	monitorEnd chan struct{}
}

func NewDaemon(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return &Daemon{
		cfg:        cfg,
		components: make([]Component, 0),
		health:     StatusStarting,
		monitorEnd: make(chan struct{}),
	}, nil
}

func (d *Daemon) AddComponent(comp Component) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.components = append(d.components, comp)
	slog.Info("Component registered", "component", comp.Name(), "total_components", len(d.components))
}

// Start brings every component up and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM, then shuts everything down.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("vibechat daemon starting...", "port", d.cfg.Server.Port)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.validateConfig(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	shutdownTimeout, err := config.DurationOrDefault(d.cfg.Daemon.ShutdownTimeout, config.DefaultDaemonShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse daemon shutdown timeout: %w", err)
	}

	if err := d.initializeComponents(ctx); err != nil {
		d.rollback(context.Background())
		return fmt.Errorf("component initialization failed: %w", err)
	}

	if err := d.startComponents(ctx); err != nil {
		_ = d.gracefulShutdown(context.Background(), shutdownTimeout)
		return fmt.Errorf("component startup failed: %w", err)
	}

	d.mu.Lock()
	d.health = StatusRunning
	d.startedAt = time.Now()
	d.mu.Unlock()
	slog.Info("vibechat daemon is running", "components", len(d.components))

	go d.startHealthMonitor(ctx)

	<-ctx.Done()

	slog.Info("Context cancelled, initiating graceful shutdown", "reason", ctx.Err())
	d.setHealth(StatusStopping)
	close(d.monitorEnd)

	if err := d.gracefulShutdown(context.Background(), shutdownTimeout); err != nil {
		return err
	}

	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	return nil
}

func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.health
}

// Uptime is zero until every component has started.
func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.startedAt.IsZero() {
		return 0
	}
	return time.Since(d.startedAt)
}

// ComponentHealth polls every component. A component that returns no
// report is reported unhealthy.
func (d *Daemon) ComponentHealth() map[string]*ComponentHealth {
	d.mu.RLock()
	components := make([]Component, len(d.components))
	copy(components, d.components)
	d.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(components))
	for _, comp := range components {
		health, err := comp.Health(context.Background())
		if health == nil {
			health = &ComponentHealth{Name: comp.Name(), Healthy: false, Error: errors.New("no health report")}
		}
		if err != nil {
			health.Healthy = false
			health.Error = err
		}
		result[comp.Name()] = health
	}
	return result
}

func (d *Daemon) Component(name string) Component {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.componentLocked(name)
}

func (d *Daemon) setHealth(status HealthStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = status
}

func (d *Daemon) validateConfig() error {
	if d.cfg.Server.Port < 1 || d.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", d.cfg.Server.Port)
	}
	if _, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval); err != nil {
		return fmt.Errorf("parse daemon health check interval: %w", err)
	}
	return nil
}

func (d *Daemon) initializeComponents(ctx context.Context) error {
	d.mu.Lock()
	if err := d.validateDependencies(); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("dependency validation failed: %w", err)
	}

	order, err := d.resolveInitOrder()
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("failed to resolve init order: %w", err)
	}
	d.order = order
	d.mu.Unlock()

	for _, name := range order {
		comp := d.Component(name)
		slog.Info("Initializing component...", "component", name)
		if err := comp.Init(ctx); err != nil {
			slog.Error("Component initialization failed", "component", name, "error", err)
			return fmt.Errorf("component %s init failed: %w", name, err)
		}
	}

	slog.Info("All components initialized", "order", order)
	return nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	for _, name := range d.startOrder() {
		comp := d.Component(name)
		if err := comp.Start(ctx); err != nil {
			slog.Error("Component startup failed", "component", name, "error", err)
			return fmt.Errorf("component %s startup failed: %w", name, err)
		}
		slog.Info("Component started", "component", name)
	}
	return nil
}

// startOrder falls back to registration order when components were never
// initialised through initializeComponents.
func (d *Daemon) startOrder() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.order) == len(d.components) {
		return append([]string(nil), d.order...)
	}
	names := make([]string, 0, len(d.components))
	for _, comp := range d.components {
		names = append(names, comp.Name())
	}
	return names
}

func (d *Daemon) gracefulShutdown(ctx context.Context, timeout time.Duration) error {
	slog.Info("Graceful shutdown initiated", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.shutdownComponents(shutdownCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("Shutdown completed with error", "error", err)
		} else {
			slog.Info("Graceful shutdown completed")
		}
		return err
	case <-shutdownCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("shutdown cancelled: %w", ctx.Err())
		}
		slog.Error("Shutdown timeout exceeded", "timeout", timeout)
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// shutdownComponents stops components in reverse start order. Stop errors
// are collected, not short-circuited.
func (d *Daemon) shutdownComponents(ctx context.Context) error {
	order := d.startOrder()
	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		comp := d.Component(name)
		if comp == nil {
			continue
		}
		if err := comp.Stop(ctx); err != nil {
			slog.Error("Component stop failed", "component", name, "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		slog.Info("Component stopped", "component", name)
	}

	d.setHealth(StatusStopped)
	return errors.Join(errs...)
}

func (d *Daemon) rollback(ctx context.Context) {
	slog.Warn("Rolling back initialized components...")
	if err := d.shutdownComponents(ctx); err != nil {
		slog.Error("Rollback failed", "error", err)
	}
}

func (d *Daemon) componentLocked(name string) Component {
	for _, comp := range d.components {
		if comp.Name() == name {
			return comp
		}
	}
	return nil
}

func (d *Daemon) startHealthMonitor(ctx context.Context) {
	interval, err := config.DurationOrDefault(d.cfg.Daemon.HealthCheckInterval, config.DefaultDaemonHealthCheckInterval)
	if err != nil {
		slog.Error("Failed to parse daemon health check interval", "error", err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.monitorEnd:
			return
		case <-ticker.C:
			d.checkComponentHealth()
		}
	}
}

func (d *Daemon) checkComponentHealth() {
	healths := d.ComponentHealth()
	unhealthy := 0
	for name, health := range healths {
		if !health.Healthy {
			unhealthy++
			slog.Warn("Component unhealthy", "component", name, "error", health.Error)
		}
	}

	if unhealthy > 0 {
		slog.Warn("Daemon has unhealthy components", "count", unhealthy, "total", len(healths))
		return
	}
	slog.Debug("All components healthy", "count", len(healths))
}

func (d *Daemon) validateDependencies() error {
	names := make(map[string]struct{}, len(d.components))
	for _, comp := range d.components {
		if _, dup := names[comp.Name()]; dup {
			return fmt.Errorf("component %s registered twice", comp.Name())
		}
		names[comp.Name()] = struct{}{}
	}

	for _, comp := range d.components {
		for _, dep := range comp.Dependencies() {
			if _, ok := names[dep]; !ok {
				return fmt.Errorf("component %s depends on %s which is not registered", comp.Name(), dep)
			}
		}
	}
	return nil
}

// resolveInitOrder is a depth-first topological sort that keeps
// registration order among independent components.
func (d *Daemon) resolveInitOrder() ([]string, error) {
	visited := make(map[string]bool)
	inProgress := make(map[string]bool)
	order := make([]string, 0, len(d.components))

	var visit func(name string) error
	visit = func(name string) error {
		if inProgress[name] {
			return fmt.Errorf("circular dependency detected involving %s", name)
		}
		if visited[name] {
			return nil
		}

		comp := d.componentLocked(name)
		if comp == nil {
			return fmt.Errorf("component %s not found", name)
		}

		inProgress[name] = true
		for _, dep := range comp.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		inProgress[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, comp := range d.components {
		if err := visit(comp.Name()); err != nil {
			return nil, err
		}
	}
	return order, nil
}
