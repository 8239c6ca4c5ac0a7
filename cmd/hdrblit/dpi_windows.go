//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var procSetProcessDpiAwarenessContext = windows.NewLazySystemDLL("user32.dll").NewProc("SetProcessDpiAwarenessContext")

// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2
const dpiAwarenessPerMonitorV2 = ^uintptr(3)

// enableDPIAwareness opts the process into per-monitor DPI awareness, which
// DuplicateOutput1 requires.
func enableDPIAwareness() error {
	if err := procSetProcessDpiAwarenessContext.Find(); err != nil {
		return err
	}
	ok, _, callErr := procSetProcessDpiAwarenessContext.Call(dpiAwarenessPerMonitorV2)
	if ok == 0 {
		// ERROR_ACCESS_DENIED means a manifest already set it.
		if callErr == windows.ERROR_ACCESS_DENIED {
			return nil
		}
		return fmt.Errorf("SetProcessDpiAwarenessContext: %w", callErr)
	}
	return nil
}
