//go:build !windows

package displayconfig

import "github.com/vinhtt98/bitblt-hdr/internal/capture"

func (s *Source) SDRWhiteLevel(display string) (float64, error) {
	return 0, capture.ErrNotSupported
}
