package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

type Config struct {
	PoolSize int    `toml:"pool_size"`
	DbFile   string `toml:"db_file"`
	LogLevel string `toml:"log_level"`
}

func Default() Config {
	return Config{
		PoolSize: 64,
		DbFile:   "kasha.db",
		LogLevel: "info",
	}
}

// Load reads a TOML config file on top of the defaults. Keys left out of the
// file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be positive, got %d", c.PoolSize)
	}

	if c.DbFile == "" {
		return fmt.Errorf("db_file must not be empty")
	}

	return nil
}
