package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/vibechat/internal/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTestCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("force", false, "")
	cmd.SetOut(out)
	cmd.SetErr(out)
	return cmd
}

func TestConfigInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	cfgFile = ""

	var out bytes.Buffer
	if err := configInitCmd.RunE(newTestCommand(&out), nil); err != nil {
		t.Fatalf("Config init failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".vibechat", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}

	var written config.Config
	if err := yaml.Unmarshal(data, &written); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if written.Server.Port != config.DefaultServerPort {
		t.Errorf("written port = %d, want %d", written.Server.Port, config.DefaultServerPort)
	}
	if written.Completion.Completion.SystemPrompt == "" {
		t.Error("written config is missing the completion prompt")
	}

	out.Reset()
	if err := configInitCmd.RunE(newTestCommand(&out), nil); err != nil {
		t.Fatalf("Config init should succeed when config exists: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected existing config notice, got %q", out.String())
	}
}

func TestConfigInitCmd_CustomPathAndForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vibechat.yaml")
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("server:\n  port: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newTestCommand(&out)
	if err := cmd.Flags().Set("force", "true"); err != nil {
		t.Fatal(err)
	}
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config init --force failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "port: 1\n") {
		t.Error("config was not overwritten with --force")
	}
}

func TestConfigViewCmd_RedactsSecrets(t *testing.T) {
	previous := cfg
	t.Cleanup(func() { cfg = previous })
	cfg = &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{{Name: "gpt-4o", Provider: "openai", APIKey: "sk-secret-123456"}},
		},
	}

	var out bytes.Buffer
	if err := configViewCmd.RunE(newTestCommand(&out), nil); err != nil {
		t.Fatalf("Config view failed: %v", err)
	}
	if strings.Contains(out.String(), "sk-secret-123456") {
		t.Fatal("config view leaked an API key")
	}
	if !strings.Contains(out.String(), "sk************56") {
		t.Errorf("expected masked key in output, got:\n%s", out.String())
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abc"},
			},
		},
		Tools: config.ToolsConfig{
			Weather: config.WeatherToolConfig{APIKey: "weather-key"},
			Image:   config.ImageToolConfig{APIKey: "image-key-123"},
		},
	}

	redacted := redactConfigSecrets(original)

	if original.Models.Registry[0].APIKey != "sk-secret-123456" {
		t.Fatal("redaction must not mutate the original config")
	}
	if got := redacted.Models.Registry[0].APIKey; got != "sk************56" {
		t.Errorf("m1 key = %q", got)
	}
	if got := redacted.Models.Registry[1].APIKey; got != "****" {
		t.Errorf("m2 key = %q", got)
	}
	if redacted.Tools.Weather.APIKey == "weather-key" || redacted.Tools.Image.APIKey == "image-key-123" {
		t.Error("tool keys must be masked")
	}
	if redactConfigSecrets(nil) != nil {
		t.Error("nil config should stay nil")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"abcd":     "****",
		"abcdef":   "ab**ef",
		"sk-12345": "sk****45",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
