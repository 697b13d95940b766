package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup and passed to the engine components; the
// scoring constants live here rather than in package-level globals.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quizzes struct {
		Dir string `yaml:"dir"`
		TTL string `yaml:"ttl"`
	} `yaml:"quizzes"`
	Scoring Scoring `yaml:"scoring"`
}

// Scoring holds the fixed XP constants the engine depends on.
type Scoring struct {
	XPPerCorrect    int `yaml:"xp_per_correct"`
	DailyLoginBonus int `yaml:"daily_login_bonus"`
}

const (
	defaultXPPerCorrect    = 10
	defaultDailyLoginBonus = 5
)

// Load reads YAML config from path and applies scoring defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Scoring.XPPerCorrect == 0 {
		cfg.Scoring.XPPerCorrect = defaultXPPerCorrect
	}
	if cfg.Scoring.DailyLoginBonus == 0 {
		cfg.Scoring.DailyLoginBonus = defaultDailyLoginBonus
	}
	if cfg.Scoring.XPPerCorrect < 0 || cfg.Scoring.DailyLoginBonus < 0 {
		return cfg, fmt.Errorf("scoring constants must be positive")
	}
	return cfg, nil
}

// DefaultScoring returns the built-in XP constants, for wiring without a file.
func DefaultScoring() Scoring {
	return Scoring{XPPerCorrect: defaultXPPerCorrect, DailyLoginBonus: defaultDailyLoginBonus}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
