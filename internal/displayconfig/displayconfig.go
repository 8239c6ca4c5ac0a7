// Package displayconfig reads per-display SDR white levels from the Windows
// display configuration database.
package displayconfig

import "github.com/vinhtt98/bitblt-hdr/internal/capture"

// Source implements capture.WhiteLevelSource. Display names are GDI device
// names as reported by DXGI, for example \\.\DISPLAY1.
type Source struct{}

var _ capture.WhiteLevelSource = (*Source)(nil)

func New() *Source { return &Source{} }

// rawToNits converts DISPLAYCONFIG_SDR_WHITE_LEVEL.SDRWhiteLevel, which is
// a multiplier of 80 nits scaled by 1000.
func rawToNits(v uint32) float64 {
	return float64(v) * 80 / 1000
}
