package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Log       LogConfig       `mapstructure:"log"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

// GatewayConfig holds simulated payment gateway configuration.
type GatewayConfig struct {
	SuccessRate float64       `mapstructure:"success_rate"`
	MinLatency  time.Duration `mapstructure:"min_latency"`
	MaxLatency  time.Duration `mapstructure:"max_latency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	FailureThreshold    uint32        `mapstructure:"failure_threshold"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
	MaxHalfOpenRequests uint32        `mapstructure:"max_half_open_requests"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// SimulatorConfig holds simulator run configuration.
type SimulatorConfig struct {
	Sessions int    `mapstructure:"sessions"`
	Seed     uint64 `mapstructure:"seed"` // 0 derives a seed from the clock
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/ticketing")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("TICKETING")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration bounds.
func (c *Config) Validate() error {
	if c.Gateway.SuccessRate < 0 || c.Gateway.SuccessRate > 1 {
		return fmt.Errorf("gateway.success_rate must be between 0.0 and 1.0, got %v", c.Gateway.SuccessRate)
	}
	if c.Gateway.MinLatency < 0 || c.Gateway.MaxLatency < c.Gateway.MinLatency {
		return fmt.Errorf("invalid gateway latency bounds: min=%s max=%s", c.Gateway.MinLatency, c.Gateway.MaxLatency)
	}
	if c.Simulator.Sessions < 0 {
		return fmt.Errorf("simulator.sessions must be non-negative, got %d", c.Simulator.Sessions)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Gateway defaults
	v.SetDefault("gateway.success_rate", 0.8)
	v.SetDefault("gateway.min_latency", 100*time.Millisecond)
	v.SetDefault("gateway.max_latency", 300*time.Millisecond)
	v.SetDefault("gateway.timeout", 5*time.Second)

	// Breaker defaults
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)
	v.SetDefault("breaker.max_half_open_requests", 1)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Simulator defaults
	v.SetDefault("simulator.sessions", 5)
	v.SetDefault("simulator.seed", 0)
}
