// Package config loads memeshot settings from an rc file or a YAML file.
package config

import (
	"fmt"
	"image/color"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/example/memeshot/internal/overlay"
	"github.com/example/memeshot/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Save    bool `yaml:"save"`
	Share   bool `yaml:"share"`
	Failure bool `yaml:"failure"`
}

// Text holds caption defaults.
type Text struct {
	MinSize      int    `yaml:"min_size"`
	MaxSize      int    `yaml:"max_size"`
	DefaultSize  int    `yaml:"default_size"`
	DefaultColor string `yaml:"default_color"`
}

// Telegram configures the Telegram share target.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// Enabled reports whether both token and chat are set.
func (t Telegram) Enabled() bool { return t.Token != "" && t.ChatID != 0 }

// Config holds the application configuration.
type Config struct {
	Theme    string
	SaveDir  string
	CacheDir string
	Journal  string
	Listen   string
	Font     string
	Text     Text
	Notify   Notify
	Telegram Telegram
	Themes   map[string]*theme.Theme
}

// DefaultListen is the HTTP address used when none is configured.
const DefaultListen = "127.0.0.1:8080"

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme:  "", // empty falls back to MEMESHOT_THEME, then the built-in theme
		Listen: DefaultListen,
		Text: Text{
			MinSize:      overlay.DefaultSizeRange.Min,
			MaxSize:      overlay.DefaultSizeRange.Max,
			DefaultSize:  overlay.DefaultFontSize,
			DefaultColor: theme.Hex(overlay.DefaultColor),
		},
		Notify: Notify{Failure: true},
		Themes: make(map[string]*theme.Theme),
	}
}

// ApplyEnv overrides settings from MEMESHOT_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("MEMESHOT_THEME")); v != "" {
		c.Theme = v
	}
	if v := strings.TrimSpace(os.Getenv("MEMESHOT_TELEGRAM_TOKEN")); v != "" {
		c.Telegram.Token = v
	}
}

// SizeRange returns the configured font size bounds.
func (c *Config) SizeRange() overlay.SizeRange {
	r := overlay.SizeRange{Min: c.Text.MinSize, Max: c.Text.MaxSize}
	if r.Min <= 0 || r.Max < r.Min {
		return overlay.DefaultSizeRange
	}
	return r
}

// StoreOptions turns the [text] section into caption store options.
func (c *Config) StoreOptions() ([]overlay.Option, error) {
	opts := []overlay.Option{overlay.WithSizeRange(c.SizeRange())}
	if c.Text.DefaultSize > 0 {
		opts = append(opts, overlay.WithDefaultSize(c.SizeRange().Clamp(c.Text.DefaultSize)))
	}
	if strings.TrimSpace(c.Text.DefaultColor) != "" {
		col, err := theme.ParseColor(c.Text.DefaultColor)
		if err != nil {
			return nil, fmt.Errorf("text default_color: %w", err)
		}
		opts = append(opts, overlay.WithDefaultColor(col))
	}
	return opts, nil
}

// ResolveTheme returns the named theme from the inline [theme.*] sections,
// falling back to the theme loader.
func (c *Config) ResolveTheme(l *theme.Loader) (*theme.Theme, error) {
	name := strings.TrimSpace(c.Theme)
	if name == "" {
		return theme.Default(), nil
	}
	if t, ok := c.Themes[name]; ok {
		return t, nil
	}
	return l.Load(name)
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	for _, kv := range [][2]string{
		{"theme", c.Theme},
		{"save_dir", c.SaveDir},
		{"cache_dir", c.CacheDir},
		{"journal", c.Journal},
		{"listen", c.Listen},
		{"font", c.Font},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&sb, "%s = %s\n", kv[0], kv[1])
		}
	}
	sb.WriteString("\n")

	sb.WriteString("[text]\n")
	fmt.Fprintf(&sb, "min_size = %d\n", c.Text.MinSize)
	fmt.Fprintf(&sb, "max_size = %d\n", c.Text.MaxSize)
	fmt.Fprintf(&sb, "default_size = %d\n", c.Text.DefaultSize)
	if c.Text.DefaultColor != "" {
		fmt.Fprintf(&sb, "default_color = %s\n", c.Text.DefaultColor)
	}
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "share = %v\n", c.Notify.Share)
	fmt.Fprintf(&sb, "failure = %v\n", c.Notify.Failure)
	sb.WriteString("\n")

	if c.Telegram.Token != "" || c.Telegram.ChatID != 0 {
		sb.WriteString("[telegram]\n")
		if c.Telegram.Token != "" {
			fmt.Fprintf(&sb, "token = %s\n", c.Telegram.Token)
		}
		fmt.Fprintf(&sb, "chat_id = %d\n", c.Telegram.ChatID)
		sb.WriteString("\n")
	}

	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		val := reflect.ValueOf(t).Elem()
		for i := 0; i < val.NumField(); i++ {
			col, ok := val.Field(i).Interface().(color.RGBA)
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "%s: %s\n", val.Type().Field(i).Name, theme.Hex(col))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
