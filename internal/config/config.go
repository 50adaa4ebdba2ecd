package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Influx   *InfluxConfig  `toml:"influx"` // nil when the section is absent
}

type ServerConfig struct {
	Address string `toml:"address"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	File   string `toml:"file"`   // empty disables the debug file sink
}

type InfluxConfig struct {
	URL    string `toml:"url"`
	Org    string `toml:"org"`
	Bucket string `toml:"bucket"`
	Token  string `toml:"token"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "0.0.0.0:14777",
		},
		Database: DatabaseConfig{
			Path: "extrachat.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "extrachat.log",
		},
	}
}
