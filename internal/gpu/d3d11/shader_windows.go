//go:build windows

package d3d11

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	shaderEntry  = "main"
	shaderTarget = "cs_5_0"
)

// compileShader runs D3DCompile and returns the bytecode blob. Compiler
// diagnostics are folded into the error.
func compileShader(src []byte, name string) (*comObject, error) {
	if err := procD3DCompile.Find(); err != nil {
		return nil, fmt.Errorf("d3dcompiler_47.dll: %w", err)
	}
	if len(src) == 0 {
		return nil, fmt.Errorf("compile %s: empty source", name)
	}
	namePtr, err := windows.BytePtrFromString(name)
	if err != nil {
		return nil, err
	}
	entryPtr, _ := windows.BytePtrFromString(shaderEntry)
	targetPtr, _ := windows.BytePtrFromString(shaderTarget)

	var code, errs uintptr
	hr, _, _ := procD3DCompile.Call(
		uintptr(unsafe.Pointer(&src[0])),
		uintptr(len(src)),
		uintptr(unsafe.Pointer(namePtr)),
		0,
		0,
		uintptr(unsafe.Pointer(entryPtr)),
		uintptr(unsafe.Pointer(targetPtr)),
		d3dCompileOptimizationLevel3,
		0,
		uintptr(unsafe.Pointer(&code)),
		uintptr(unsafe.Pointer(&errs)),
	)
	diag := &comObject{ptr: errs}
	defer diag.release()
	if err := hresult("D3DCompile "+name, hr); err != nil {
		(&comObject{ptr: code}).release()
		if diag.valid() {
			msg := strings.TrimRight(string(blobBytes(diag)), "\x00\r\n ")
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return &comObject{ptr: code}, nil
}

// blobBytes views an ID3DBlob's buffer. The slice is valid while the blob
// is alive.
func blobBytes(blob *comObject) []byte {
	ptr := blob.raw(d3dBlobGetBufferPointer)
	size := blob.raw(d3dBlobGetBufferSize)
	if ptr == 0 || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(size))
}
