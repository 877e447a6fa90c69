package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader handles loading the configuration.
type Loader struct {
	Version      string // build version; "dev" enables ./.memeshotrc
	OverridePath string // set at compile time or by -config
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
	}
}

var userHomeDir = os.UserHomeDir

// Load reads the first configuration file found, or returns defaults. The
// environment is applied last.
func (l *Loader) Load() (*Config, error) {
	path := l.GetConfigPath()
	if path == "" {
		cfg := New()
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFile parses one file, choosing YAML by extension.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg *Config
	if isYAML(path) {
		cfg, err = ParseYAML(f)
	} else {
		cfg, err = Parse(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// DefaultPath is where `config save` writes when no path is given.
func DefaultPath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "memeshot", "config.rc"), nil
}

// Save writes cfg in rc format, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(cfg.String()), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	if l.OverridePath != "" {
		if _, err := os.Stat(l.OverridePath); err == nil {
			return l.OverridePath
		}
	}

	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".memeshotrc")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	home, _ := userHomeDir()
	for _, name := range []string{"config.rc", "config.yaml", "config.yml"} {
		path := filepath.Join(home, ".config", "memeshot", name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
