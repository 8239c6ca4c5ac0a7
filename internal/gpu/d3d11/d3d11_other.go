//go:build !windows

package d3d11

import "github.com/vinhtt98/bitblt-hdr/internal/capture"

// Open fails outside Windows; DXGI Desktop Duplication is Windows-only.
func (b *Backend) Open() (capture.Device, error) {
	return nil, capture.ErrNotSupported
}
