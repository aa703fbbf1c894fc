package qalarm

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultShots     = 1024
	DefaultBatchSize = 128
)

type Config struct {
	Shots     int    `mapstructure:"shots"`
	Workers   int    `mapstructure:"workers"`
	BatchSize int    `mapstructure:"batch_size"`
	LogLevel  string `mapstructure:"log_level"`
}

func NewConfig() *Config {
	return &Config{
		Shots:     DefaultShots,
		Workers:   runtime.NumCPU(),
		BatchSize: DefaultBatchSize,
		LogLevel:  "info",
	}
}

/*
LoadConfig reads a Config from v, layering an optional config file and
QALARM_* environment variables over the defaults of NewConfig. Flags bound
to v by the caller take precedence over both.
*/
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	defaults := NewConfig()
	v.SetDefault("shots", defaults.Shots)
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix("QALARM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	config := &Config{
		Shots:     v.GetInt("shots"),
		Workers:   v.GetInt("workers"),
		BatchSize: v.GetInt("batch_size"),
		LogLevel:  v.GetString("log_level"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.Shots <= 0 {
		return fmt.Errorf("%w: shots must be positive, got %d", ErrInvalidArgument, c.Shots)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidArgument, c.Workers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidArgument, c.BatchSize)
	}
	return nil
}
