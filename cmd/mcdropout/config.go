package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the mcdropout configuration file
// (~/.config/mcdropout/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	// Layer defaults
	Rate *float64 `yaml:"rate"`
	Seed *int64   `yaml:"seed"`

	// Prediction
	Samples *int `yaml:"samples"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mcdropout", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// flagSetter reports whether a flag was given on the command line.
type flagSetter interface {
	IsSet(name string) bool
}

var _ flagSetter = (*cli.Command)(nil)

func applyLoggingConfig(c flagSetter, cfg Config, level, format *string) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		*level = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		*format = cfg.LogFormat
	}
}

// applyLayerConfig fills rate and seed from cfg where the flags were not set,
// and reports whether a seed is in effect.
func applyLayerConfig(c flagSetter, cfg Config, rate *float64, seed *int64) bool {
	if cfg.Rate != nil && !c.IsSet("rate") {
		*rate = *cfg.Rate
	}
	if c.IsSet("seed") {
		return true
	}
	if cfg.Seed != nil {
		*seed = *cfg.Seed
		return true
	}
	return false
}

func applyPredictConfig(c flagSetter, cfg Config, samples *int) {
	if cfg.Samples != nil && !c.IsSet("samples") {
		*samples = *cfg.Samples
	}
}

func applyServeConfig(c flagSetter, cfg Config, addr *string, samples *int) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	applyPredictConfig(c, cfg, samples)
}
