package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/vibechat/internal/config"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type mockComponent struct {
	name         string
	dependencies []string
	log          *callLog
	initError    error
	startError   error
	stopError    error
	healthError  error
	healthResult *ComponentHealth
}

func newMockComponent(name string, dependencies []string, log *callLog) *mockComponent {
	if log == nil {
		log = &callLog{}
	}
	return &mockComponent{
		name:         name,
		dependencies: dependencies,
		log:          log,
		healthResult: &ComponentHealth{Name: name, Healthy: true},
	}
}

func (m *mockComponent) Name() string           { return m.name }
func (m *mockComponent) Dependencies() []string { return m.dependencies }

func (m *mockComponent) Init(ctx context.Context) error {
	m.log.add("init:" + m.name)
	return m.initError
}

func (m *mockComponent) Start(ctx context.Context) error {
	m.log.add("start:" + m.name)
	return m.startError
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.log.add("stop:" + m.name)
	return m.stopError
}

func (m *mockComponent) Health(ctx context.Context) (*ComponentHealth, error) {
	return m.healthResult, m.healthError
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Daemon: config.DaemonConfig{ShutdownTimeout: "2s", HealthCheckInterval: "1h"},
	}
}

func equalCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestNewDaemon(t *testing.T) {
	if _, err := NewDaemon(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	d, err := NewDaemon(testConfig())
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	if d.Health() != StatusStarting {
		t.Fatalf("Health = %v, want %v", d.Health(), StatusStarting)
	}
	if d.Uptime() != 0 {
		t.Fatalf("Uptime = %v before start, want 0", d.Uptime())
	}
}

func TestValidateConfig_Port(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := testConfig()
		cfg.Server.Port = port
		d, _ := NewDaemon(cfg)
		if err := d.validateConfig(); err == nil {
			t.Errorf("validateConfig() port %d: expected error", port)
		}
	}

	d, _ := NewDaemon(testConfig())
	if err := d.validateConfig(); err != nil {
		t.Fatalf("validateConfig() error = %v", err)
	}
}

func TestInitializeComponents_DependencyOrder(t *testing.T) {
	log := &callLog{}
	d, _ := NewDaemon(testConfig())

	d.AddComponent(newMockComponent("HTTPServer", []string{"ModelRouter", "ToolRegistry"}, log))
	d.AddComponent(newMockComponent("ToolRegistry", nil, log))
	d.AddComponent(newMockComponent("ModelRouter", nil, log))

	if err := d.initializeComponents(context.Background()); err != nil {
		t.Fatalf("initializeComponents() error = %v", err)
	}
	equalCalls(t, log.snapshot(), []string{"init:ModelRouter", "init:ToolRegistry", "init:HTTPServer"})

	if err := d.startComponents(context.Background()); err != nil {
		t.Fatalf("startComponents() error = %v", err)
	}
	if err := d.shutdownComponents(context.Background()); err != nil {
		t.Fatalf("shutdownComponents() error = %v", err)
	}
	equalCalls(t, log.snapshot()[3:], []string{
		"start:ModelRouter", "start:ToolRegistry", "start:HTTPServer",
		"stop:HTTPServer", "stop:ToolRegistry", "stop:ModelRouter",
	})
	if d.Health() != StatusStopped {
		t.Fatalf("Health = %v, want %v", d.Health(), StatusStopped)
	}
}

func TestInitializeComponents_Errors(t *testing.T) {
	tests := []struct {
		name       string
		components []*mockComponent
	}{
		{
			name: "circular dependency",
			components: []*mockComponent{
				newMockComponent("Comp1", []string{"Comp2"}, nil),
				newMockComponent("Comp2", []string{"Comp1"}, nil),
			},
		},
		{
			name:       "missing dependency",
			components: []*mockComponent{newMockComponent("Comp", []string{"NonExistent"}, nil)},
		},
		{
			name: "duplicate name",
			components: []*mockComponent{
				newMockComponent("Comp", nil, nil),
				newMockComponent("Comp", nil, nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := NewDaemon(testConfig())
			for _, c := range tt.components {
				d.AddComponent(c)
			}
			if err := d.initializeComponents(context.Background()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestInitializeComponents_InitFailure(t *testing.T) {
	log := &callLog{}
	d, _ := NewDaemon(testConfig())

	broken := newMockComponent("Broken", []string{"Base"}, log)
	broken.initError = errors.New("boom")
	d.AddComponent(newMockComponent("Base", nil, log))
	d.AddComponent(broken)

	err := d.initializeComponents(context.Background())
	if err == nil || !errors.Is(err, broken.initError) {
		t.Fatalf("initializeComponents() error = %v, want wrapped boom", err)
	}
}

func TestShutdownComponents_CollectsErrors(t *testing.T) {
	d, _ := NewDaemon(testConfig())
	first := newMockComponent("First", nil, nil)
	first.stopError = errors.New("first failed")
	second := newMockComponent("Second", nil, nil)
	d.AddComponent(first)
	d.AddComponent(second)

	err := d.shutdownComponents(context.Background())
	if !errors.Is(err, first.stopError) {
		t.Fatalf("shutdownComponents() error = %v, want first failed", err)
	}
	calls := second.log.snapshot()
	if len(calls) != 1 || calls[0] != "stop:Second" {
		t.Fatalf("Second should still be stopped, got %v", calls)
	}
}

func TestComponentHealth(t *testing.T) {
	d, _ := NewDaemon(testConfig())

	healthy := newMockComponent("Healthy", nil, nil)
	sick := newMockComponent("Sick", nil, nil)
	sick.healthResult = &ComponentHealth{Name: "Sick", Healthy: false, Error: fmt.Errorf("mock error")}
	failing := newMockComponent("Failing", nil, nil)
	failing.healthError = errors.New("probe failed")
	silent := newMockComponent("Silent", nil, nil)
	silent.healthResult = nil

	d.AddComponent(healthy)
	d.AddComponent(sick)
	d.AddComponent(failing)
	d.AddComponent(silent)

	healths := d.ComponentHealth()
	if len(healths) != 4 {
		t.Fatalf("ComponentHealth() returned %d entries, want 4", len(healths))
	}
	if !healths["Healthy"].Healthy {
		t.Error("Healthy should be healthy")
	}
	if healths["Sick"].Healthy || healths["Sick"].Error == nil {
		t.Error("Sick should be unhealthy with an error")
	}
	if healths["Failing"].Healthy || healths["Failing"].Error == nil {
		t.Error("Failing should be unhealthy when the probe errors")
	}
	if healths["Silent"].Healthy {
		t.Error("Silent should be unhealthy without a report")
	}
}

func TestStart_RunsUntilCancelled(t *testing.T) {
	log := &callLog{}
	d, _ := NewDaemon(testConfig())
	d.AddComponent(newMockComponent("A", nil, log))
	d.AddComponent(newMockComponent("B", []string{"A"}, log))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for d.Health() != StatusRunning {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not reach running state")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("daemon did not stop")
	}

	equalCalls(t, log.snapshot(), []string{"init:A", "init:B", "start:A", "start:B", "stop:B", "stop:A"})
	if d.Health() != StatusStopped {
		t.Fatalf("Health = %v, want %v", d.Health(), StatusStopped)
	}
}

func TestStart_StartupFailureShutsDown(t *testing.T) {
	log := &callLog{}
	d, _ := NewDaemon(testConfig())
	broken := newMockComponent("Broken", nil, log)
	broken.startError = errors.New("bind failed")
	d.AddComponent(newMockComponent("Base", nil, log))
	d.AddComponent(broken)

	err := d.Start(context.Background())
	if !errors.Is(err, broken.startError) {
		t.Fatalf("Start() error = %v, want bind failed", err)
	}
	calls := log.snapshot()
	if calls[len(calls)-1] != "stop:Base" {
		t.Fatalf("expected Base to be stopped last, got %v", calls)
	}
}
