package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the settings shared by every subcommand. Values loaded with
// --config are overridden by flags set on the command line.
type Config struct {
	LogLevel     string `json:"log_level"`
	Debug        string `json:"debug"`
	Seed         uint64 `json:"seed"`
	Case         int    `json:"case"`
	Store        string `json:"store"`
	OTLPEndpoint string `json:"otlp_endpoint"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Case:     -1,
	}
}

// ReadConfig loads a JSON config file on top of DefaultConfig.
func ReadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
