// Package config loads host settings from defaults, an optional YAML file
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
	"github.com/hammamikhairi/mysteryhost/internal/engine"
	"github.com/hammamikhairi/mysteryhost/internal/speech"
)

// Env var names.
const (
	EnvProvider = "MYSTERYHOST_PROVIDER"
	EnvVoice    = "MYSTERYHOST_VOICE"
	EnvHTTPAddr = "MYSTERYHOST_HTTP_ADDR"
	EnvDuration = "MYSTERYHOST_DURATION_SECONDS"
	EnvSpeed    = "MYSTERYHOST_SPEED"
)

type Config struct {
	Provider         string        `yaml:"provider"`
	Voice            string        `yaml:"voice"`
	Model            string        `yaml:"model"`
	Tone             string        `yaml:"tone"`
	SynthesisTimeout time.Duration `yaml:"synthesis_timeout"`

	DurationSeconds int     `yaml:"duration_seconds"`
	Speed           float64 `yaml:"speed"`
	PresetMinutes   []int   `yaml:"preset_minutes"`

	CacheDir    string `yaml:"cache_dir"`
	DiskCache   bool   `yaml:"disk_cache"`
	HistorySize int    `yaml:"history_size"`

	HTTPAddr       string   `yaml:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Lines engine.Lines `yaml:"lines"`
}

// Default returns the stock settings.
func Default() Config {
	return Config{
		Provider:         speech.ProviderGemini,
		Tone:             speech.DefaultTone,
		SynthesisTimeout: speech.DefaultSynthesisTimeout,
		DurationSeconds:  engine.DefaultDuration,
		Speed:            domain.DefaultSpeed,
		PresetMinutes:    []int{5, 10, 15, 20, 30, 40},
		CacheDir:         ".mysteryhost-cache",
		DiskCache:        true,
		AllowedOrigins:   []string{"*"},
		Lines:            engine.DefaultLines(),
	}
}

// Load reads path over the defaults (a blank path skips the file) and
// applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.Provider = getEnv(EnvProvider, cfg.Provider)
	cfg.Voice = getEnv(EnvVoice, cfg.Voice)
	cfg.HTTPAddr = getEnv(EnvHTTPAddr, cfg.HTTPAddr)
	cfg.DurationSeconds = getEnvAsInt(EnvDuration, cfg.DurationSeconds)
	cfg.Speed = getEnvAsFloat(EnvSpeed, cfg.Speed)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and names.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Provider) {
	case speech.ProviderGemini, speech.ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, speech.ProviderGemini, speech.ProviderOpenAI))
	}
	if c.DurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("duration_seconds: %w", domain.ErrInvalidDuration))
	}
	if !domain.ValidSpeed(c.Speed) {
		errs = append(errs, fmt.Errorf("speed %.2f: %w", c.Speed, domain.ErrInvalidSpeed))
	}
	for _, m := range c.PresetMinutes {
		if m <= 0 {
			errs = append(errs, fmt.Errorf("preset_minutes: %d is not positive", m))
			break
		}
	}
	if c.SynthesisTimeout < 0 {
		errs = append(errs, errors.New("synthesis_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// PresetSeconds returns the preset durations in seconds.
func (c Config) PresetSeconds() []int {
	out := make([]int, len(c.PresetMinutes))
	for i, m := range c.PresetMinutes {
		out[i] = m * 60
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
