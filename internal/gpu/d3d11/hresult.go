// Package d3d11 implements the capture backend on Direct3D 11 and DXGI
// Desktop Duplication through raw COM vtable calls, without cgo.
package d3d11

import (
	"fmt"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// HRESULT codes the backend distinguishes.
const (
	dxgiErrInvalidCall   = 0x887A0001
	dxgiErrNotFound      = 0x887A0002
	dxgiErrDeviceRemoved = 0x887A0005
	dxgiErrDeviceReset   = 0x887A0007
	dxgiErrAccessLost    = 0x887A0026
	dxgiErrWaitTimeout   = 0x887A0027
	d3dErrDeviceRemoved  = 0x887C0005
	eNoInterface         = 0x80004002
)

// hresultError is a failed COM call.
type hresultError struct {
	op string
	hr uint32
}

func (e *hresultError) Error() string {
	return fmt.Sprintf("%s: HRESULT 0x%08X", e.op, e.hr)
}

// Unwrap maps the HRESULTs the engine reacts to onto its sentinels.
func (e *hresultError) Unwrap() error {
	switch e.hr {
	case dxgiErrWaitTimeout:
		return capture.ErrWaitTimeout
	case dxgiErrAccessLost:
		return capture.ErrAccessLost
	case dxgiErrDeviceRemoved, dxgiErrDeviceReset, d3dErrDeviceRemoved:
		return capture.ErrDeviceRemoved
	}
	return nil
}

// failed reports whether hr is a failure code.
func failed(hr uintptr) bool { return int32(hr) < 0 }

func hresult(op string, hr uintptr) error {
	if !failed(hr) {
		return nil
	}
	return &hresultError{op: op, hr: uint32(hr)}
}
