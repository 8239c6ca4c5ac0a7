package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var (
	watchInterval time.Duration
	watchCount    int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Capture repeatedly and report engine health",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return runWatch(s.engine)
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Second, "time between captures")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "stop after this many captures (0 runs until interrupted)")
}

func runWatch(engine *capture.Engine) error {
	descs, err := engine.Monitors()
	if err != nil {
		return err
	}
	region := desktopBounds(descs)
	if region.Empty() {
		return errors.New("no displays attached to the desktop")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for n := 0; watchCount == 0 || n < watchCount; n++ {
		img, err := engine.CaptureRegion(region)
		if err != nil {
			log.Warn("capture unavailable", logging.KeyError, err.Error())
		} else {
			engine.Recycle(img)
		}
		fmt.Printf("cycle %d: %v, %.1f ms\n", n+1, engine.Health().Overall(), engine.Stats().LastCycleMs)

		select {
		case <-sigChan:
			fmt.Println()
			return printReport(engine)
		case <-ticker.C:
		}
	}
	return printReport(engine)
}

func printReport(engine *capture.Engine) error {
	report := map[string]any{
		"stats":  engine.Stats(),
		"health": engine.Health().All(),
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}
