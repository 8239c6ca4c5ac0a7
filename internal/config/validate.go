package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

var validBackends = map[string]bool{
	"d3d11": true,
	"soft":  true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult separates errors that must stop startup from values that
// were clamped into range.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// ValidateTiered checks the config. Out-of-range numbers are clamped and
// reported as warnings; unknown names and unreadable paths are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult
	fatal := func(format string, args ...any) { r.Fatals = append(r.Fatals, fmt.Errorf(format, args...)) }
	warn := func(format string, args ...any) { r.Warnings = append(r.Warnings, fmt.Errorf(format, args...)) }

	if !validBackends[strings.ToLower(c.Backend)] {
		fatal("backend %q is not valid (use d3d11 or soft)", c.Backend)
	}

	if _, err := capture.ParseFramePolicy(c.FramePolicy); err != nil {
		fatal("frame_policy: %v", err)
	}

	if c.ShaderPath != "" {
		if _, err := os.Stat(c.ShaderPath); err != nil {
			fatal("shader_path %q: %v", c.ShaderPath, err)
		}
	}

	clampInt := func(name string, v *int, lo, hi int) {
		if *v < lo {
			warn("%s %d is below minimum %d, clamping", name, *v, lo)
			*v = lo
		} else if *v > hi {
			warn("%s %d exceeds maximum %d, clamping", name, *v, hi)
			*v = hi
		}
	}
	clampFloat := func(name string, v *float64, lo, hi float64) {
		if *v < lo {
			warn("%s %g is below minimum %g, clamping", name, *v, lo)
			*v = lo
		} else if *v > hi {
			warn("%s %g exceeds maximum %g, clamping", name, *v, hi)
			*v = hi
		}
	}

	clampInt("acquire_timeout_ms", &c.AcquireTimeoutMs, 0, 500)
	clampInt("retry_backoff_ms", &c.RetryBackoffMs, 1, 1000)
	clampInt("max_acquire_attempts", &c.MaxAcquireAttempts, 1, 1000)
	clampInt("max_stream_rebuilds", &c.MaxStreamRebuilds, 0, 10)
	clampInt("cycle_budget_ms", &c.CycleBudgetMs, 50, 10000)
	clampFloat("default_white_level", &c.DefaultWhiteLevel, 80, 1000)
	clampFloat("reference_white_level", &c.ReferenceWhiteLevel, 1, 1000)

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		warn("log_level %q is not valid (use debug, info, warn, error), using info", c.LogLevel)
		c.LogLevel = "info"
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		warn("log_format %q is not valid (use text or json), using text", c.LogFormat)
		c.LogFormat = "text"
	}
	clampInt("log_max_size_mb", &c.LogMaxSizeMB, 1, 1024)
	clampInt("log_max_backups", &c.LogMaxBackups, 0, 100)

	for _, err := range r.Warnings {
		slog.Warn("config validation", "error", err)
	}
	return r
}
