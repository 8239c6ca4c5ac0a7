//go:build windows

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// canvas is the compositing target plus a staging copy for readback.
type canvas struct {
	dev     *device
	tex     *comObject
	uav     *comObject
	staging *comObject
	width   int
	height  int
}

func (d *device) newCanvas(width, height int) (*canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size %dx%d", width, height)
	}
	desc := d3d11Texture2DDesc{
		Width:       uint32(width),
		Height:      uint32(height),
		MipLevels:   1,
		ArraySize:   1,
		Format:      dxgiFormatR8G8B8A8UNorm,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   d3d11BindUnorderedAccess,
	}
	tex, err := d.createTexture2D(&desc)
	if err != nil {
		return nil, err
	}

	var uavPtr uintptr
	if err := d.dev.call("CreateUnorderedAccessView", d3d11DeviceCreateUnorderedAccessView,
		tex.ptr, 0, uintptr(unsafe.Pointer(&uavPtr))); err != nil {
		tex.release()
		return nil, err
	}
	uav := &comObject{ptr: uavPtr}

	desc.Usage = d3d11UsageStaging
	desc.BindFlags = 0
	desc.CPUAccessFlags = d3d11CPUAccessRead
	staging, err := d.createTexture2D(&desc)
	if err != nil {
		releaseAll(uav, tex)
		return nil, err
	}
	return &canvas{dev: d, tex: tex, uav: uav, staging: staging, width: width, height: height}, nil
}

func (c *canvas) Size() (int, int) { return c.width, c.height }

// Clear fills the canvas with capture.Background. Storage channel order
// matches the readback byte order.
func (c *canvas) Clear() error {
	var color [4]float32
	for i, v := range capture.Background {
		color[i] = float32(v) / 255
	}
	c.dev.ctx.raw(d3d11CtxClearUnorderedAccessViewFloat, c.uav.ptr, uintptr(unsafe.Pointer(&color)))
	return nil
}

// Readback copies into staging and maps it. Map waits for the copy and every
// dispatch queued before it.
func (c *canvas) Readback(dst []byte) error {
	c.dev.ctx.raw(d3d11CtxCopyResource, c.staging.ptr, c.tex.ptr)
	mapped, err := c.dev.mapResource(c.staging, d3d11MapRead)
	if err != nil {
		return err
	}
	defer c.dev.unmap(c.staging)

	pitch := int(mapped.RowPitch)
	size := pitch*(c.height-1) + c.width*4
	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), size)
	return capture.CopyRows(dst, src, pitch, c.width, c.height)
}

func (c *canvas) Release() error {
	releaseAll(c.staging, c.uav, c.tex)
	return nil
}
