package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

// Global configuration structure.
type Global struct {
	// HTTP service
	ListenAddr      string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins     []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxBodyBytes    int64    `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	ReadTimeoutSec  int      `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`
	IdleTimeoutSec  int      `mapstructure:"idle_timeout_sec" yaml:"idle_timeout_sec"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Engine
	MinPeriods    int  `mapstructure:"min_periods" yaml:"min_periods"`
	BoolAsNumeric bool `mapstructure:"bool_as_numeric" yaml:"bool_as_numeric"`
}

// AnalysisOptions maps the engine keys onto analysis.Options.
func (c *Global) AnalysisOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	if c.MinPeriods > 0 {
		opt.MinPeriods = c.MinPeriods
	}
	opt.BoolAsNumeric = c.BoolAsNumeric
	return opt
}

// Timeouts returns read, write and idle timeouts.
func (c *Global) Timeouts() (read, write, idle time.Duration) {
	return time.Duration(c.ReadTimeoutSec) * time.Second,
		time.Duration(c.WriteTimeoutSec) * time.Second,
		time.Duration(c.IdleTimeoutSec) * time.Second
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.corrmatrix/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CORRMATRIX")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("listen_addr", ":8081")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("max_body_bytes", 10<<20)
	v.SetDefault("read_timeout_sec", 30)
	v.SetDefault("write_timeout_sec", 60)
	v.SetDefault("idle_timeout_sec", 120)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("min_periods", 2)
	v.SetDefault("bool_as_numeric", false)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".corrmatrix"), nil
}
