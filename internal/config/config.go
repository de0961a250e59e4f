// Package config loads settings from .plan.yaml, PLAN_* env vars and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/spf13/viper"
)

// Config holds everything the CLI and server need
type Config struct {
	DBPath     string
	Addr       string
	LogLevel   string
	Thresholds hierarchy.Thresholds
}

// Loader wraps a viper instance so the config file can be watched
type Loader struct {
	v *viper.Viper
}

// NewLoader searches $PLAN_CONFIG_PATH and the working directory for .plan.yaml
func NewLoader() *Loader {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("db", filepath.Join(home, ".plan", "plan.db"))
	v.SetDefault("addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("thresholds.nesting", hierarchy.NestingThreshold)
	v.SetDefault("thresholds.promotion", hierarchy.PromotionThreshold)

	v.SetConfigName(".plan") // .yaml is implicit
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("PLAN_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	return &Loader{v: v}
}

// Load reads the config file if there is one. A missing file is not an error.
func (l *Loader) Load() (Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return l.current()
}

func (l *Loader) current() (Config, error) {
	cfg := Config{
		DBPath:   l.v.GetString("db"),
		Addr:     l.v.GetString("addr"),
		LogLevel: l.v.GetString("log.level"),
		Thresholds: hierarchy.Thresholds{
			Nesting:   l.v.GetFloat64("thresholds.nesting"),
			Promotion: l.v.GetFloat64("thresholds.promotion"),
		},
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// File returns the config file in use, "" when running on defaults
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded config each time the file changes.
// Invalid reloads are reported through onError and otherwise ignored.
func (l *Loader) Watch(onChange func(Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.current()
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(cfg)
	})
	l.v.WatchConfig()
}
