package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/config"
	"github.com/vinhtt98/bitblt-hdr/internal/displayconfig"
	"github.com/vinhtt98/bitblt-hdr/internal/gpu/d3d11"
	"github.com/vinhtt98/bitblt-hdr/internal/gpu/soft"
	"github.com/vinhtt98/bitblt-hdr/internal/health"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var log = logging.L("main")

// session is a configured engine plus whatever must be closed with it.
type session struct {
	cfg     *config.Config
	engine  *capture.Engine
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Shutdown())
	}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openSession loads and validates config, sets up logging and builds the
// engine. Fatal config problems abort; clamped values are logged.
func openSession() (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(result.Fatals...))
	}

	s := &session{cfg: cfg}
	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.closers = append(s.closers, rw)
		out = logging.Tee(os.Stderr, rw)
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	var backend capture.Backend
	var white capture.WhiteLevelSource
	switch strings.ToLower(cfg.Backend) {
	case "soft":
		backend = soft.New(soft.DemoLayout()...)
	default:
		if err := enableDPIAwareness(); err != nil {
			log.Warn("per-monitor DPI awareness unavailable", logging.KeyError, err.Error())
		}
		backend = d3d11.New(cfg.ShaderPath)
		white = displayconfig.New()
	}

	s.engine = capture.New(backend, cfg.EngineOptions(), white, health.NewTracker())
	log.Debug("engine configured", "backend", backend.Name(), "framePolicy", cfg.FramePolicy)
	return s, nil
}
