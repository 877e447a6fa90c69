package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/memeshot/internal/theme"
)

// Parse reads rc format configuration from an io.Reader.
func Parse(r io.Reader) (*Config, error) {
	cfg := New()
	scanner := bufio.NewScanner(r)

	var currentSection string
	var currentTheme *theme.Theme

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.TrimSuffix(strings.TrimPrefix(line, "["), "]")
			currentTheme = nil

			if strings.HasPrefix(currentSection, "theme.") {
				currentTheme = cfg.inlineTheme(strings.TrimPrefix(currentSection, "theme."))
			}
			continue
		}

		// Key = Value or Key: Value; '=' wins so colours like #FFF stay intact
		var parts []string
		if strings.Contains(line, "=") {
			parts = strings.SplitN(line, "=", 2)
		} else if strings.Contains(line, ":") {
			parts = strings.SplitN(line, ":", 2)
		} else {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") && len(value) >= 2 {
			value = value[1 : len(value)-1]
		}

		var err error
		switch {
		case currentTheme != nil:
			err = theme.SetField(currentTheme, key, value)
		case currentSection == "":
			err = setRootField(cfg, key, value)
		case currentSection == "text":
			err = setTextField(&cfg.Text, key, value)
		case currentSection == "notify":
			err = setNotifyField(&cfg.Notify, key, value)
		case currentSection == "telegram":
			err = setTelegramField(&cfg.Telegram, key, value)
		}
		if err != nil {
			if currentSection == "" {
				return nil, fmt.Errorf("error in root section: %w", err)
			}
			return nil, fmt.Errorf("error in section [%s]: %w", currentSection, err)
		}
	}

	return cfg, scanner.Err()
}

func (c *Config) inlineTheme(name string) *theme.Theme {
	t := theme.Default()
	t.Name = name
	c.Themes[name] = t
	return t
}

func setRootField(cfg *Config, key, value string) error {
	switch strings.ToLower(key) {
	case "theme":
		cfg.Theme = value
	case "save_dir":
		cfg.SaveDir = value
	case "cache_dir":
		cfg.CacheDir = value
	case "journal":
		cfg.Journal = value
	case "listen":
		cfg.Listen = value
	case "font":
		cfg.Font = value
	}
	return nil
}

func setTextField(t *Text, key, value string) error {
	key = strings.ToLower(key)
	if key == "default_color" {
		if _, err := theme.ParseColor(value); err != nil {
			return fmt.Errorf("invalid color for key %s: %w", key, err)
		}
		t.DefaultColor = value
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid number for key %s: %w", key, err)
	}
	switch key {
	case "min_size":
		t.MinSize = n
	case "max_size":
		t.MaxSize = n
	case "default_size":
		t.DefaultSize = n
	}
	return nil
}

func setNotifyField(n *Notify, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean for key %s: %w", key, err)
	}
	switch strings.ToLower(key) {
	case "save":
		n.Save = b
	case "share":
		n.Share = b
	case "failure":
		n.Failure = b
	}
	return nil
}

func setTelegramField(t *Telegram, key, value string) error {
	switch strings.ToLower(key) {
	case "token":
		t.Token = value
	case "chat_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chat id: %w", err)
		}
		t.ChatID = id
	}
	return nil
}

type yamlConfig struct {
	Theme    string                       `yaml:"theme"`
	SaveDir  string                       `yaml:"save_dir"`
	CacheDir string                       `yaml:"cache_dir"`
	Journal  string                       `yaml:"journal"`
	Listen   string                       `yaml:"listen"`
	Font     string                       `yaml:"font"`
	Text     *Text                        `yaml:"text"`
	Notify   *Notify                      `yaml:"notify"`
	Telegram Telegram                     `yaml:"telegram"`
	Themes   map[string]map[string]string `yaml:"themes"`
}

// ParseYAML reads the same settings from YAML. Themes live under a themes
// mapping keyed by name.
func ParseYAML(r io.Reader) (*Config, error) {
	cfg := New()
	raw := yamlConfig{Text: &cfg.Text, Notify: &cfg.Notify}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse yaml config: %w", err)
	}
	for _, kv := range []struct {
		dst *string
		val string
	}{
		{&cfg.Theme, raw.Theme},
		{&cfg.SaveDir, raw.SaveDir},
		{&cfg.CacheDir, raw.CacheDir},
		{&cfg.Journal, raw.Journal},
		{&cfg.Listen, raw.Listen},
		{&cfg.Font, raw.Font},
	} {
		if kv.val != "" {
			*kv.dst = kv.val
		}
	}
	cfg.Telegram = raw.Telegram
	if cfg.Text.DefaultColor != "" {
		if _, err := theme.ParseColor(cfg.Text.DefaultColor); err != nil {
			return nil, fmt.Errorf("text default_color: %w", err)
		}
	}
	for name, fields := range raw.Themes {
		t := cfg.inlineTheme(name)
		for key, value := range fields {
			if err := theme.SetField(t, key, value); err != nil {
				return nil, fmt.Errorf("theme %s: %w", name, err)
			}
		}
	}
	return cfg, nil
}
