//go:build windows

package d3d11

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

// stream wraps an IDXGIOutputDuplication. Acquired images are copied into a
// stream-owned texture and the duplication frame is released immediately, so
// the OS can keep producing while the engine holds the last image.
type stream struct {
	dev  *device
	dupl *comObject

	copy     *comObject
	copyDesc d3d11Texture2DDesc
}

func (s *stream) AcquireNextFrame(timeout time.Duration) (capture.Frame, capture.FrameInfo, error) {
	var info dxgiOutDuplFrameInfo
	var resPtr uintptr
	hr := s.dupl.raw(dxgiDuplAcquireNextFrame,
		uintptr(uint32(timeout.Milliseconds())),
		uintptr(unsafe.Pointer(&info)),
		uintptr(unsafe.Pointer(&resPtr)),
	)
	if uint32(hr) == dxgiErrInvalidCall {
		// A frame from an earlier acquisition is still held.
		rhr := s.dupl.raw(dxgiDuplReleaseFrame)
		if err := hresult("ReleaseFrame", rhr); err != nil {
			return nil, capture.FrameInfo{}, err
		}
		return nil, capture.FrameInfo{}, fmt.Errorf("released stale frame: %w", capture.ErrWaitTimeout)
	}
	if err := hresult("AcquireNextFrame", hr); err != nil {
		return nil, capture.FrameInfo{}, err
	}

	res := &comObject{ptr: resPtr}
	defer s.dupl.raw(dxgiDuplReleaseFrame)
	defer res.release()

	tex, err := res.queryInterface("QueryInterface ID3D11Texture2D", &iidID3D11Texture2D)
	if err != nil {
		return nil, capture.FrameInfo{}, err
	}
	defer tex.release()

	var desc d3d11Texture2DDesc
	tex.raw(texture2DGetDesc, uintptr(unsafe.Pointer(&desc)))
	if err := s.ensureCopy(desc); err != nil {
		return nil, capture.FrameInfo{}, err
	}
	s.dev.ctx.raw(d3d11CtxCopyResource, s.copy.ptr, tex.ptr)

	f := &frame{
		tex:    s.copy,
		width:  int(desc.Width),
		height: int(desc.Height),
		format: capture.PixelFormat(desc.Format),
	}
	return f, capture.FrameInfo{
		Presented:         info.LastPresentTime != 0,
		AccumulatedFrames: info.AccumulatedFrames,
	}, nil
}

// ensureCopy (re)creates the stream texture when the duplicated surface size
// or format changed.
func (s *stream) ensureCopy(src d3d11Texture2DDesc) error {
	if s.copy.valid() && s.copyDesc.Width == src.Width && s.copyDesc.Height == src.Height && s.copyDesc.Format == src.Format {
		return nil
	}
	s.copy.release()
	desc := d3d11Texture2DDesc{
		Width:       src.Width,
		Height:      src.Height,
		MipLevels:   1,
		ArraySize:   1,
		Format:      src.Format,
		SampleCount: 1,
		Usage:       d3d11UsageDefault,
		BindFlags:   d3d11BindShaderResource,
	}
	tex, err := s.dev.createTexture2D(&desc)
	if err != nil {
		return err
	}
	s.copy = tex
	s.copyDesc = desc
	return nil
}

func (s *stream) Close() error {
	releaseAll(s.copy, s.dupl)
	return nil
}

// frame is a view of the stream texture. It stays valid until the next
// acquisition on the same stream or until the stream closes.
type frame struct {
	tex    *comObject
	width  int
	height int
	format capture.PixelFormat
}

func (f *frame) Size() (int, int)            { return f.width, f.height }
func (f *frame) Format() capture.PixelFormat { return f.format }
func (f *frame) Release() error              { return nil }
