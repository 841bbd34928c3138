// Package config loads the store configuration the CLI opens stores with.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/litemap/litemap"
)

// FileName is the configuration file looked up in the working directory and its parents
const FileName = "litemap"

// EnvPrefix prefixes the environment variables overriding the file, e.g. LITEMAP_VERSION
const EnvPrefix = "LITEMAP"

// Config is the file layout: the store settings plus CLI-only options
type Config struct {
	litemap.Config `mapstructure:",squash"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads litemap.yml from dir (or the working directory when dir is empty), applying
// a .env file next to it and LITEMAP_* environment variables on top
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	envFile := filepath.Join(dir, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	v := viper.New()

	v.SetDefault("name", "litemap")
	v.SetDefault("version", 1)
	v.SetDefault("storage", "")
	v.SetDefault("cases", "lower")
	v.SetDefault("models", []string{})
	v.SetDefault("wal", false)
	v.SetDefault("log_level", "warn")

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Models = splitModels(cfg.Models)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitModels accepts both a YAML list and a comma-separated environment value
func splitModels(models []string) []string {
	var out []string
	for _, m := range models {
		for _, part := range strings.Split(m, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// FindRoot walks up from the working directory to the first one holding litemap.yml
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			if _, err := os.Stat(filepath.Join(dir, FileName+ext)); err == nil {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}
