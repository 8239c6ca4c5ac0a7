package main

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

// legacyCapture is the uncomposited GDI path an intercepted call falls back
// to when the engine is unavailable. HDR displays come out washed out here.
var legacyCapture = func(region image.Rectangle) (image.Image, error) {
	return screenshot.CaptureRect(region)
}

// legacyBounds is the union of display bounds as GDI reports them.
func legacyBounds() image.Rectangle {
	var r image.Rectangle
	for i := 0; i < screenshot.NumActiveDisplays(); i++ {
		r = r.Union(screenshot.GetDisplayBounds(i))
	}
	return r
}

// captureOrFallback runs the engine and, when allowed, falls back to the
// legacy path on ErrUnavailable. fellBack reports which path produced img.
func captureOrFallback(engine *capture.Engine, region image.Rectangle, allowFallback bool) (img image.Image, fellBack bool, err error) {
	if !region.Empty() {
		out, err := engine.CaptureRegion(region)
		if err == nil {
			defer engine.Recycle(out)
			return toRGBA(out), false, nil
		}
		if !allowFallback || !errors.Is(err, capture.ErrUnavailable) {
			return nil, false, err
		}
		log.Warn("engine unavailable, using legacy capture", logging.KeyError, err.Error())
	} else if !allowFallback {
		return nil, false, errors.New("no displays attached to the desktop")
	}

	if region.Empty() {
		region = legacyBounds()
	}
	if region.Empty() {
		return nil, true, errors.New("no displays attached to the desktop")
	}
	img, err = legacyCapture(region)
	if err != nil {
		return nil, true, fmt.Errorf("legacy capture: %w", err)
	}
	return img, true, nil
}
