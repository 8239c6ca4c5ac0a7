//go:build windows

package d3d11

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var log = logging.L("d3d11")

// device owns the D3D11 device, its immediate context and the adapter whose
// outputs it duplicates. All calls come from the engine's capture goroutine.
type device struct {
	backend *Backend
	adapter *comObject
	dev     *comObject
	ctx     *comObject
	level   uint32
}

// Open creates a hardware device on the first adapter that drives a desktop
// output. Feature level 11_0 is the minimum for compute shaders with typed
// UAV stores.
func (b *Backend) Open() (capture.Device, error) {
	if err := procCreateDXGIFactory1.Find(); err != nil {
		return nil, fmt.Errorf("dxgi.dll: %w", err)
	}
	if err := procD3D11CreateDevice.Find(); err != nil {
		return nil, fmt.Errorf("d3d11.dll: %w", err)
	}

	var factoryPtr uintptr
	hr, _, _ := procCreateDXGIFactory1.Call(
		uintptr(unsafe.Pointer(&iidIDXGIFactory1)),
		uintptr(unsafe.Pointer(&factoryPtr)),
	)
	if err := hresult("CreateDXGIFactory1", hr); err != nil {
		return nil, err
	}
	factory := &comObject{ptr: factoryPtr}
	defer factory.release()

	adapter, err := firstDesktopAdapter(factory)
	if err != nil {
		return nil, err
	}

	d := &device{backend: b, adapter: adapter}
	if err := d.create(); err != nil {
		adapter.release()
		return nil, err
	}
	log.Info("D3D11 device created", "featureLevel", fmt.Sprintf("0x%x", d.level))
	return d, nil
}

// firstDesktopAdapter walks EnumAdapters1 and returns the first adapter with
// at least one output attached to the desktop.
func firstDesktopAdapter(factory *comObject) (*comObject, error) {
	for i := 0; ; i++ {
		var ptr uintptr
		hr := factory.raw(dxgiFactory1EnumAdapters1, uintptr(i), uintptr(unsafe.Pointer(&ptr)))
		if uint32(hr) == dxgiErrNotFound {
			return nil, errors.New("no adapter drives a desktop output")
		}
		if err := hresult("EnumAdapters1", hr); err != nil {
			return nil, err
		}
		adapter := &comObject{ptr: ptr}
		outs, err := desktopOutputs(adapter)
		releaseAll(outs...)
		if err == nil && len(outs) > 0 {
			return adapter, nil
		}
		adapter.release()
	}
}

// desktopOutputs enumerates the adapter's outputs attached to the desktop,
// each as an IDXGIOutput reference.
func desktopOutputs(adapter *comObject) ([]*comObject, error) {
	var outs []*comObject
	for i := 0; ; i++ {
		var ptr uintptr
		hr := adapter.raw(dxgiAdapterEnumOutputs, uintptr(i), uintptr(unsafe.Pointer(&ptr)))
		if uint32(hr) == dxgiErrNotFound {
			return outs, nil
		}
		if err := hresult("EnumOutputs", hr); err != nil {
			releaseAll(outs...)
			return nil, err
		}
		out := &comObject{ptr: ptr}
		var desc dxgiOutputDesc
		if err := out.call("IDXGIOutput::GetDesc", dxgiOutputGetDesc, uintptr(unsafe.Pointer(&desc))); err != nil || desc.AttachedToDesktop == 0 {
			out.release()
			continue
		}
		outs = append(outs, out)
	}
}

func (d *device) create() error {
	levels := []uint32{d3dFeatureLevel11_1, d3dFeatureLevel11_0}
	var devPtr, ctxPtr uintptr
	var level uint32
	create := func(levels []uint32) uintptr {
		hr, _, _ := procD3D11CreateDevice.Call(
			d.adapter.ptr,
			d3dDriverTypeUnknown,
			0,
			d3d11CreateDeviceBGRASupport,
			uintptr(unsafe.Pointer(&levels[0])),
			uintptr(len(levels)),
			d3d11SDKVersion,
			uintptr(unsafe.Pointer(&devPtr)),
			uintptr(unsafe.Pointer(&level)),
			uintptr(unsafe.Pointer(&ctxPtr)),
		)
		return hr
	}
	hr := create(levels)
	if failed(hr) {
		// Runtimes without 11_1 reject the whole list.
		hr = create(levels[1:])
	}
	if err := hresult("D3D11CreateDevice", hr); err != nil {
		return err
	}
	d.dev = &comObject{ptr: devPtr}
	d.ctx = &comObject{ptr: ctxPtr}
	d.level = level
	if level < d3dFeatureLevel11_0 {
		releaseAll(d.ctx, d.dev)
		return fmt.Errorf("feature level 0x%x below 11_0", level)
	}
	return nil
}

// Outputs re-enumerates the adapter. Each output is upgraded to IDXGIOutput6
// for DuplicateOutput1 and GetDesc1.
func (d *device) Outputs() ([]capture.Output, error) {
	if err := d.removed(); err != nil {
		return nil, err
	}
	outs, err := desktopOutputs(d.adapter)
	if err != nil {
		return nil, err
	}
	defer releaseAll(outs...)

	result := make([]capture.Output, 0, len(outs))
	for _, o := range outs {
		o6, err := o.queryInterface("QueryInterface IDXGIOutput6", &iidIDXGIOutput6)
		if err != nil {
			for _, r := range result {
				r.Close()
			}
			return nil, fmt.Errorf("IDXGIOutput6 unavailable (Windows 10 1803 or later required): %w", err)
		}
		result = append(result, &output{dev: d, out6: o6})
	}
	return result, nil
}

func (d *device) NewCanvas(width, height int) (capture.Canvas, error) {
	return d.newCanvas(width, height)
}

func (d *device) NewCompositor() (capture.Compositor, error) {
	return d.newCompositor()
}

// removed reports the device-removed reason, nil while the device is healthy.
func (d *device) removed() error {
	return hresult("GetDeviceRemovedReason", d.dev.raw(d3d11DeviceGetDeviceRemovedReason))
}

func (d *device) Close() error {
	if d.ctx.valid() {
		d.ctx.raw(d3d11CtxFlush)
	}
	releaseAll(d.ctx, d.dev, d.adapter)
	return nil
}

// createTexture2D creates an uninitialized texture.
func (d *device) createTexture2D(desc *d3d11Texture2DDesc) (*comObject, error) {
	var ptr uintptr
	if err := d.dev.call("CreateTexture2D", d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(desc)), 0, uintptr(unsafe.Pointer(&ptr))); err != nil {
		return nil, err
	}
	return &comObject{ptr: ptr}, nil
}

// mapResource maps subresource 0 of res for CPU access.
func (d *device) mapResource(res *comObject, mapType uint32) (d3d11MappedSubresource, error) {
	var mapped d3d11MappedSubresource
	err := d.ctx.call("Map", d3d11CtxMap, res.ptr, 0, uintptr(mapType), 0, uintptr(unsafe.Pointer(&mapped)))
	return mapped, err
}

func (d *device) unmap(res *comObject) {
	d.ctx.raw(d3d11CtxUnmap, res.ptr, 0)
}
