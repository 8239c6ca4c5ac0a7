//go:build windows

package d3d11

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modD3D11       = windows.NewLazySystemDLL("d3d11.dll")
	modDXGI        = windows.NewLazySystemDLL("dxgi.dll")
	modD3DCompiler = windows.NewLazySystemDLL("d3dcompiler_47.dll")

	procD3D11CreateDevice  = modD3D11.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory1 = modDXGI.NewProc("CreateDXGIFactory1")
	procD3DCompile         = modD3DCompiler.NewProc("D3DCompile")
)

var (
	iidIDXGIFactory1   = mustGUID("{770aae78-f26f-4dba-a829-253c83d1b387}")
	iidIDXGIOutput6    = mustGUID("{068346e8-aaec-4b84-add7-137f513f77a1}")
	iidID3D11Texture2D = mustGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
)

func mustGUID(s string) windows.GUID {
	g, err := windows.GUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return g
}

// COM vtable indices, fixed by the ABI.
// IUnknown: 0=QueryInterface, 1=AddRef, 2=Release.
// IDXGIObject adds 4 methods, so DXGI interfaces start at 7.
// ID3D11DeviceChild adds 4 methods, so the device context starts at 7.
const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease        = 2

	dxgiFactory1EnumAdapters1 = 12
	dxgiAdapterEnumOutputs    = 7
	dxgiOutputGetDesc         = 7
	dxgiOutput5DuplicateOut1  = 26
	dxgiOutput6GetDesc1       = 27
	dxgiDuplGetDesc           = 7
	dxgiDuplAcquireNextFrame  = 8
	dxgiDuplReleaseFrame      = 14

	texture2DGetDesc = 10

	d3d11DeviceCreateBuffer              = 3
	d3d11DeviceCreateTexture2D           = 5
	d3d11DeviceCreateShaderResourceView  = 7
	d3d11DeviceCreateUnorderedAccessView = 8
	d3d11DeviceCreateComputeShader       = 18
	d3d11DeviceGetFeatureLevel           = 37
	d3d11DeviceGetDeviceRemovedReason    = 39

	d3d11CtxMap                           = 14
	d3d11CtxUnmap                         = 15
	d3d11CtxDispatch                      = 41
	d3d11CtxCopyResource                  = 47
	d3d11CtxClearUnorderedAccessViewFloat = 52
	d3d11CtxCSSetShaderResources          = 67
	d3d11CtxCSSetUnorderedAccessViews     = 68
	d3d11CtxCSSetShader                   = 69
	d3d11CtxCSSetConstantBuffers          = 71
	d3d11CtxFlush                         = 111

	d3dBlobGetBufferPointer = 3
	d3dBlobGetBufferSize    = 4
)

// comObject owns one reference to a COM interface. The zero value is empty;
// release is idempotent.
type comObject struct {
	ptr uintptr
}

func (o *comObject) valid() bool { return o != nil && o.ptr != 0 }

// vtbl resolves a vtable function pointer by index.
func (o *comObject) vtbl(idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(o.ptr))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// call invokes a vtable method returning an HRESULT.
func (o *comObject) call(op string, idx int, args ...uintptr) error {
	hr := o.raw(idx, args...)
	return hresult(op, hr)
}

// raw invokes a vtable method and returns its result without interpretation,
// for void and non-HRESULT methods.
func (o *comObject) raw(idx int, args ...uintptr) uintptr {
	all := make([]uintptr, 0, 1+len(args))
	all = append(all, o.ptr)
	all = append(all, args...)
	ret, _, _ := syscall.SyscallN(o.vtbl(idx), all...)
	return ret
}

// queryInterface returns a new reference for iid.
func (o *comObject) queryInterface(op string, iid *windows.GUID) (*comObject, error) {
	var out uintptr
	if err := o.call(op, vtblQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	return &comObject{ptr: out}, nil
}

// share returns a second owned reference to the same interface.
func (o *comObject) share() *comObject {
	o.raw(vtblAddRef)
	return &comObject{ptr: o.ptr}
}

func (o *comObject) release() {
	if o == nil || o.ptr == 0 {
		return
	}
	o.raw(vtblRelease)
	o.ptr = 0
}

func releaseAll(objs ...*comObject) {
	for _, o := range objs {
		o.release()
	}
}
