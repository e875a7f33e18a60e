package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandPath resolves environment variables and a leading "~" in path.
// Empty input stays empty.
func ExpandPath(path string) (string, error) {
	p := os.ExpandEnv(strings.TrimSpace(path))
	if p == "" {
		return "", nil
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	return filepath.Clean(p), nil
}

// homeDir prefers $HOME and falls back to the passwd entry. A value that is
// itself still a "~" shortcut is rejected.
func homeDir() (string, error) {
	candidates := []func() string{
		func() string { return os.Getenv("HOME") },
		func() string {
			if u, err := user.Current(); err == nil {
				return u.HomeDir
			}
			return ""
		},
	}

	for _, candidate := range candidates {
		home := strings.TrimSpace(candidate())
		if home != "" && !strings.HasPrefix(home, "~") {
			return home, nil
		}
	}
	return "", fmt.Errorf("no usable home directory")
}
