// Package config loads and validates sitemirror configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/site-mirror/internal/renderer"
	"github.com/JakeFAU/site-mirror/internal/scope"
)

// EnvPrefix prefixes every environment override, e.g. SITEMIRROR_OUTPUT_DIR.
const EnvPrefix = "SITEMIRROR"

// Config captures every configuration knob loaded via Viper.
type Config struct {
	SeedURL   string         `mapstructure:"seed_url"`
	OutputDir string         `mapstructure:"output_dir"`
	Logging   LoggingConfig  `mapstructure:"logging"`
	Renderer  RendererConfig `mapstructure:"renderer"`
	Scope     ScopeConfig    `mapstructure:"scope"`
	Journal   JournalConfig  `mapstructure:"journal"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// RendererConfig configures the browser session and readiness waits.
type RendererConfig struct {
	Headless          bool                    `mapstructure:"headless"`
	UserAgent         string                  `mapstructure:"user_agent"`
	ExecPath          string                  `mapstructure:"exec_path"`
	NavigationTimeout time.Duration           `mapstructure:"navigation_timeout"`
	ReadyTimeout      time.Duration           `mapstructure:"ready_timeout"`
	DefaultSelector   string                  `mapstructure:"default_selector"`
	SelectorOverrides []renderer.SelectorRule `mapstructure:"selector_overrides"`
}

// ScopeConfig narrows which in-domain links are followed.
type ScopeConfig struct {
	AllowRules []scope.Rule `mapstructure:"allow_rules"`
}

// JournalConfig enables the SQLite crawl journal when Path is set.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// MetricsConfig enables the operations endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"output":       "output_dir",
	"journal":      "journal.path",
	"metrics-addr": "metrics.addr",
	"dev":          "logging.development",
	"log-level":    "logging.level",
	"headless":     "renderer.headless",
}

// Load builds a Config from defaults, an optional file at path, SITEMIRROR_*
// environment variables and any flags in flags that were set, in increasing
// order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("seed_url", "https://sequence.day")
	v.SetDefault("output_dir", "result")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("renderer.headless", true)
	v.SetDefault("renderer.user_agent", "")
	v.SetDefault("renderer.exec_path", "")
	v.SetDefault("renderer.navigation_timeout", "30s")
	v.SetDefault("renderer.ready_timeout", "10s")
	v.SetDefault("renderer.default_selector", renderer.DefaultReadySelector)
	v.SetDefault("renderer.selector_overrides", []map[string]any{
		{"match": `^https://sequence\.day/blogs$`, "selector": "section#blogs-row-section .grid"},
	})
	v.SetDefault("scope.allow_rules", []map[string]any{})
	v.SetDefault("journal.path", "")
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := ValidateSeed(c.SeedURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return errors.New("output_dir is required")
	}
	if c.Renderer.NavigationTimeout <= 0 {
		return errors.New("renderer.navigation_timeout must be > 0")
	}
	if c.Renderer.ReadyTimeout <= 0 {
		return errors.New("renderer.ready_timeout must be > 0")
	}
	if strings.TrimSpace(c.Renderer.DefaultSelector) == "" {
		return errors.New("renderer.default_selector is required")
	}
	if _, err := c.Selectors(); err != nil {
		return fmt.Errorf("renderer.selector_overrides: %w", err)
	}
	for i, r := range c.Scope.AllowRules {
		if strings.TrimSpace(r.Domain) == "" {
			return fmt.Errorf("scope.allow_rules[%d].domain is required", i)
		}
		if len(r.PathContains) == 0 {
			return fmt.Errorf("scope.allow_rules[%d].path_contains must list at least one segment", i)
		}
	}
	return nil
}

// ValidateSeed checks that raw is an absolute http(s) URL with a host.
func ValidateSeed(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("seed_url is required")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("seed_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("seed_url must be http or https, got %q", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("seed_url %q has no host", raw)
	}
	return nil
}

// Selectors compiles the readiness selector table.
func (c Config) Selectors() (*renderer.Selectors, error) {
	return renderer.NewSelectors(c.Renderer.DefaultSelector, c.Renderer.SelectorOverrides)
}

// AllowRules indexes the scope rules by domain.
func (c Config) AllowRules() scope.Rules {
	return scope.NewRules(c.Scope.AllowRules)
}

// Session returns the chromedp session settings.
func (c RendererConfig) Session() renderer.Config {
	return renderer.Config{
		Headless:          c.Headless,
		UserAgent:         c.UserAgent,
		ExecPath:          c.ExecPath,
		NavigationTimeout: c.NavigationTimeout,
	}
}
