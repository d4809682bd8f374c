package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the defaults a flag can override.
type Config struct {
	LogLevel string
	From     string
	To       string
}

type fileConfig struct {
	LogLevel string `toml:"log_level"`
	From     string `toml:"from"`
	To       string `toml:"to"`
}

func defaultConfig() Config {
	return Config{
		LogLevel: "warn",
		From:     "descriptive",
		To:       "json",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("from") {
		cfg.From = strings.TrimSpace(raw.From)
	}
	if meta.IsDefined("to") {
		cfg.To = strings.TrimSpace(raw.To)
	}
	return cfg, nil
}
