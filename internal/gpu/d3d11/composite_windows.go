//go:build windows

package d3d11

import (
	"fmt"
	"unsafe"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// compositor holds the compiled compute shader and its constant buffer.
type compositor struct {
	dev    *device
	shader *comObject
	cb     *comObject
}

func (d *device) newCompositor() (*compositor, error) {
	src, name, err := d.backend.shaderSource()
	if err != nil {
		return nil, err
	}
	blob, err := compileShader(src, name)
	if err != nil {
		return nil, err
	}
	defer blob.release()

	code := blobBytes(blob)
	if len(code) == 0 {
		return nil, fmt.Errorf("compile %s: empty bytecode", name)
	}
	var csPtr uintptr
	if err := d.dev.call("CreateComputeShader", d3d11DeviceCreateComputeShader,
		uintptr(unsafe.Pointer(&code[0])), uintptr(len(code)), 0, uintptr(unsafe.Pointer(&csPtr))); err != nil {
		return nil, err
	}
	shader := &comObject{ptr: csPtr}

	desc := d3d11BufferDesc{
		ByteWidth:      capture.ParamsSize,
		Usage:          d3d11UsageDynamic,
		BindFlags:      d3d11BindConstantBuffer,
		CPUAccessFlags: d3d11CPUAccessWrite,
	}
	var cbPtr uintptr
	if err := d.dev.call("CreateBuffer", d3d11DeviceCreateBuffer,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&cbPtr))); err != nil {
		shader.release()
		return nil, err
	}
	return &compositor{dev: d, shader: shader, cb: &comObject{ptr: cbPtr}}, nil
}

// Composite uploads params, binds src and the canvas, and dispatches one
// thread per source texel.
func (c *compositor) Composite(src capture.Frame, params capture.Params, dst capture.Canvas) error {
	f, ok := src.(*frame)
	if !ok {
		return fmt.Errorf("frame %T not from this backend", src)
	}
	cv, ok := dst.(*canvas)
	if !ok {
		return fmt.Errorf("canvas %T not from this backend", dst)
	}
	if !f.tex.valid() {
		return fmt.Errorf("frame texture released")
	}

	data, err := params.MarshalBinary()
	if err != nil {
		return err
	}
	mapped, err := c.dev.mapResource(c.cb, d3d11MapWriteDiscard)
	if err != nil {
		return err
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), capture.ParamsSize), data)
	c.dev.unmap(c.cb)

	var srvPtr uintptr
	if err := c.dev.dev.call("CreateShaderResourceView", d3d11DeviceCreateShaderResourceView,
		f.tex.ptr, 0, uintptr(unsafe.Pointer(&srvPtr))); err != nil {
		return err
	}
	srv := &comObject{ptr: srvPtr}
	defer srv.release()

	ctx := c.dev.ctx
	ctx.raw(d3d11CtxCSSetShader, c.shader.ptr, 0, 0)
	ctx.raw(d3d11CtxCSSetConstantBuffers, 0, 1, uintptr(unsafe.Pointer(&c.cb.ptr)))
	ctx.raw(d3d11CtxCSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&srv.ptr)))
	ctx.raw(d3d11CtxCSSetUnorderedAccessViews, 0, 1, uintptr(unsafe.Pointer(&cv.uav.ptr)), 0)

	gx, gy := params.Groups()
	ctx.raw(d3d11CtxDispatch, uintptr(gx), uintptr(gy), 1)

	// Unbind so the frame texture can be overwritten by the next copy and
	// the canvas copied for readback.
	var null uintptr
	ctx.raw(d3d11CtxCSSetShaderResources, 0, 1, uintptr(unsafe.Pointer(&null)))
	ctx.raw(d3d11CtxCSSetUnorderedAccessViews, 0, 1, uintptr(unsafe.Pointer(&null)), 0)

	return c.dev.removed()
}

func (c *compositor) Release() error {
	releaseAll(c.cb, c.shader)
	return nil
}
