package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Recruitment struct {
		BaseURL string `yaml:"base_url"`
		Token   string `yaml:"token"`
		Timeout string `yaml:"timeout"`
	} `yaml:"recruitment"`
	Session struct {
		Timezone           string `yaml:"timezone"`
		TickInterval       string `yaml:"tick_interval"`
		RefreshInterval    string `yaml:"refresh_interval"`
		CheckpointInterval string `yaml:"checkpoint_interval"`
		CheckpointTTL      string `yaml:"checkpoint_ttl"`
		WarningThreshold   string `yaml:"warning_threshold"`
		UrgentThreshold    string `yaml:"urgent_threshold"`
		SubmitTimeout      string `yaml:"submit_timeout"`
	} `yaml:"session"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
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

// Location resolves the session timezone. Empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Session.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Session.Timezone)
}
