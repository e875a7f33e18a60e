package config

import (
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("VIBECHAT_PATH_TEST", "/tmp/vibechat-path")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"~", "/home/tester"},
		{"~/.vibechat/config.yaml", "/home/tester/.vibechat/config.yaml"},
		{"$VIBECHAT_PATH_TEST/transcripts/", "/tmp/vibechat-path/transcripts"},
		{"./runs/../out.json", "out.json"},
		{"~other/file", "~other/file"},
	}

	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q) error: %v", tt.in, err)
		}
		if got != filepath.Clean(tt.want) && !(tt.want == "" && got == "") {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandPath_HomeEnvTilde(t *testing.T) {
	t.Setenv("HOME", "~")

	got, err := ExpandPath("~/.vibechat")
	if err != nil {
		t.Skipf("no passwd home available: %v", err)
	}
	if got == "" || got[0] == '~' {
		t.Fatalf("path not expanded: %q", got)
	}
}

func TestDefaultConfigPath_UsesHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := DefaultConfigPath(); got != "/home/tester/.vibechat/config.yaml" {
		t.Fatalf("DefaultConfigPath() = %q", got)
	}
}
