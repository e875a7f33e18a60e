package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harunnryd/vibechat/internal/agent"
	"github.com/harunnryd/vibechat/internal/config"
	"github.com/harunnryd/vibechat/internal/model"
	"github.com/harunnryd/vibechat/internal/tool"
	_ "github.com/harunnryd/vibechat/internal/tool/builtin"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

func loadConfigForCommand(cmd *cobra.Command) (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.Load(cmd)
}

func buildToolRegistry(c *config.Config) (*tool.Registry, error) {
	options, err := tool.BuiltinOptionsFromConfig(c.Tools)
	if err != nil {
		return nil, err
	}
	return tool.NewBuiltinRegistry(options)
}

// buildLocalAgent wires an agent loop in-process, without the HTTP server.
func buildLocalAgent(c *config.Config, opts ...agent.Option) (*agent.Loop, error) {
	router, err := model.NewModelRouter(c.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to create model router: %w", err)
	}

	registry, err := buildToolRegistry(c)
	if err != nil {
		return nil, fmt.Errorf("failed to build tool registry: %w", err)
	}

	timeout, err := config.DurationOrDefault(c.Tools.Timeout, config.DefaultToolTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse tools timeout: %w", err)
	}

	dispatcher := tool.NewDispatcher(registry, timeout)
	return agent.NewLoop(router, dispatcher, registry.Descriptors(), c.Agent, opts...), nil
}

// writeFileLocked replaces path atomically while holding path.lock, so two
// vibechat processes never interleave writes to the same file.
func writeFileLocked(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%s is locked by another vibechat process", path)
	}
	defer fileLock.Unlock()

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
