//go:build windows

package d3d11

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

type output struct {
	dev  *device
	out6 *comObject
}

func (o *output) Describe() (capture.Descriptor, error) {
	var desc dxgiOutputDesc1
	if err := o.out6.call("IDXGIOutput6::GetDesc1", dxgiOutput6GetDesc1, uintptr(unsafe.Pointer(&desc))); err != nil {
		return capture.Descriptor{}, err
	}
	r := desc.DesktopCoordinates
	return capture.Descriptor{
		Name:       windows.UTF16ToString(desc.DeviceName[:]),
		Bounds:     image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom)),
		Rotation:   capture.RotationFromDXGI(desc.Rotation),
		ColorSpace: capture.ColorSpace(desc.ColorSpace),
	}, nil
}

// Duplicate calls DuplicateOutput1 with the accepted formats in preference
// order. The process must be per-monitor DPI aware or the call fails.
func (o *output) Duplicate(formats []capture.PixelFormat) (capture.Stream, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no duplication formats")
	}
	fmts := make([]uint32, len(formats))
	for i, f := range formats {
		fmts[i] = uint32(f)
	}
	var ptr uintptr
	if err := o.out6.call("DuplicateOutput1", dxgiOutput5DuplicateOut1,
		o.dev.dev.ptr,
		0,
		uintptr(len(fmts)),
		uintptr(unsafe.Pointer(&fmts[0])),
		uintptr(unsafe.Pointer(&ptr)),
	); err != nil {
		return nil, err
	}
	return &stream{dev: o.dev, dupl: &comObject{ptr: ptr}}, nil
}

func (o *output) Close() error {
	o.out6.release()
	return nil
}
