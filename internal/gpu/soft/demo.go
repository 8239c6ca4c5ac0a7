package soft

import (
	"image"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// DemoLayout returns two displays: an SDR landscape panel at the origin and
// an HDR portrait panel rotated 90° to its right. The HDR panel's pattern
// ramps past 1.0 so the tone curve is visible.
func DemoLayout() []*Display {
	return []*Display{
		{
			Name:       `\\.\DISPLAY1`,
			Bounds:     image.Rect(0, 0, 1920, 1080),
			Rotation:   capture.Rotate0,
			ColorSpace: capture.ColorSpaceSRGB,
			Pattern:    gradient(1920, 1080, 1.0),
		},
		{
			Name:       `\\.\DISPLAY2`,
			Bounds:     image.Rect(1920, 0, 3000, 1920),
			Rotation:   capture.Rotate90,
			ColorSpace: capture.ColorSpaceHDR10,
			Pattern:    gradient(1920, 1080, 4.0),
		},
	}
}

// gradient ramps red along x and green along y up to peak, blue fixed.
func gradient(w, h int, peak float64) Pattern {
	return func(x, y int) (float64, float64, float64) {
		return peak * float64(x) / float64(w-1), peak * float64(y) / float64(h-1), 0.25 * peak
	}
}
