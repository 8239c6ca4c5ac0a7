// Package config loads engine settings from hdrblit.yaml and HDRBLIT_*
// environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

type Config struct {
	Backend             string  `mapstructure:"backend"`
	AcquireTimeoutMs    int     `mapstructure:"acquire_timeout_ms"`
	RetryBackoffMs      int     `mapstructure:"retry_backoff_ms"`
	MaxAcquireAttempts  int     `mapstructure:"max_acquire_attempts"`
	MaxStreamRebuilds   int     `mapstructure:"max_stream_rebuilds"`
	CycleBudgetMs       int     `mapstructure:"cycle_budget_ms"`
	FramePolicy         string  `mapstructure:"frame_policy"`
	DefaultWhiteLevel   float64 `mapstructure:"default_white_level"`
	ReferenceWhiteLevel float64 `mapstructure:"reference_white_level"`
	ScaleSDR            bool    `mapstructure:"scale_sdr"`
	ShaderPath          string  `mapstructure:"shader_path"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	d := capture.DefaultOptions()
	return &Config{
		Backend:             "d3d11",
		AcquireTimeoutMs:    int(d.AcquireTimeout / time.Millisecond),
		RetryBackoffMs:      int(d.RetryBackoff / time.Millisecond),
		MaxAcquireAttempts:  d.MaxAcquireAttempts,
		MaxStreamRebuilds:   d.MaxStreamRebuilds,
		CycleBudgetMs:       int(d.CycleBudget / time.Millisecond),
		FramePolicy:         d.FramePolicy.String(),
		DefaultWhiteLevel:   d.DefaultWhiteLevel,
		ReferenceWhiteLevel: d.ReferenceWhite,
		LogLevel:            "info",
		LogFormat:           "text",
		LogMaxSizeMB:        10,
		LogMaxBackups:       3,
	}
}

// Load reads cfgFile, or hdrblit.yaml from the config directory or the
// working directory when cfgFile is empty. A missing default file is not an
// error. Environment variables override file values.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hdrblit")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HDRBLIT")
	v.AutomaticEnv()
	// Unmarshal only sees env values for keys viper already knows about.
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var keys = []string{
	"backend", "acquire_timeout_ms", "retry_backoff_ms", "max_acquire_attempts",
	"max_stream_rebuilds", "cycle_budget_ms", "frame_policy", "default_white_level",
	"reference_white_level", "scale_sdr", "shader_path",
	"log_level", "log_format", "log_file", "log_max_size_mb", "log_max_backups",
}

// EngineOptions converts the validated settings.
func (c *Config) EngineOptions() capture.Options {
	policy, err := capture.ParseFramePolicy(c.FramePolicy)
	if err != nil {
		policy = capture.AcceptFirst
	}
	rebuilds := c.MaxStreamRebuilds
	if rebuilds == 0 {
		rebuilds = capture.NoStreamRebuilds
	}
	return capture.Options{
		AcquireTimeout:     time.Duration(c.AcquireTimeoutMs) * time.Millisecond,
		RetryBackoff:       time.Duration(c.RetryBackoffMs) * time.Millisecond,
		MaxAcquireAttempts: c.MaxAcquireAttempts,
		MaxStreamRebuilds:  rebuilds,
		CycleBudget:        time.Duration(c.CycleBudgetMs) * time.Millisecond,
		FramePolicy:        policy,
		DefaultWhiteLevel:  c.DefaultWhiteLevel,
		ReferenceWhite:     c.ReferenceWhiteLevel,
		ScaleSDR:           c.ScaleSDR,
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "HDRBlit")
	case "darwin":
		return "/Library/Application Support/HDRBlit"
	default:
		return "/etc/hdrblit"
	}
}
