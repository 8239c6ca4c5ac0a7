//go:build windows

package displayconfig

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32 = windows.NewLazySystemDLL("user32.dll")

	procGetDisplayConfigBufferSizes = modUser32.NewProc("GetDisplayConfigBufferSizes")
	procQueryDisplayConfig          = modUser32.NewProc("QueryDisplayConfig")
	procDisplayConfigGetDeviceInfo  = modUser32.NewProc("DisplayConfigGetDeviceInfo")
)

const (
	qdcOnlyActivePaths = 0x2

	deviceInfoGetSourceName    = 1
	deviceInfoGetSDRWhiteLevel = 11

	maxQueryAttempts = 4
)

type luid struct {
	LowPart  uint32
	HighPart int32
}

// pathInfo matches DISPLAYCONFIG_PATH_INFO (72 bytes).
type pathInfo struct {
	SourceAdapter     luid
	SourceID          uint32
	SourceModeIdx     uint32
	SourceStatusFlags uint32

	TargetAdapter     luid
	TargetID          uint32
	TargetModeIdx     uint32
	OutputTechnology  uint32
	Rotation          uint32
	Scaling           uint32
	RefreshNumerator  uint32
	RefreshDenom      uint32
	ScanLineOrdering  uint32
	TargetAvailable   int32
	TargetStatusFlags uint32

	Flags uint32
}

// modeInfo is DISPLAYCONFIG_MODE_INFO; only its size matters here.
type modeInfo [64]byte

// deviceInfoHeader matches DISPLAYCONFIG_DEVICE_INFO_HEADER.
type deviceInfoHeader struct {
	Type    uint32
	Size    uint32
	Adapter luid
	ID      uint32
}

type sourceDeviceName struct {
	Header            deviceInfoHeader
	ViewGDIDeviceName [32]uint16
}

type sdrWhiteLevel struct {
	Header     deviceInfoHeader
	WhiteLevel uint32
}

// SDRWhiteLevel finds the active path whose source is display and reads the
// white level of its target.
func (s *Source) SDRWhiteLevel(display string) (float64, error) {
	paths, err := activePaths()
	if err != nil {
		return 0, err
	}
	for _, p := range paths {
		name := sourceDeviceName{Header: deviceInfoHeader{
			Type:    deviceInfoGetSourceName,
			Size:    uint32(unsafe.Sizeof(sourceDeviceName{})),
			Adapter: p.SourceAdapter,
			ID:      p.SourceID,
		}}
		if deviceInfo(&name.Header) != nil {
			continue
		}
		if windows.UTF16ToString(name.ViewGDIDeviceName[:]) != display {
			continue
		}
		level := sdrWhiteLevel{Header: deviceInfoHeader{
			Type:    deviceInfoGetSDRWhiteLevel,
			Size:    uint32(unsafe.Sizeof(sdrWhiteLevel{})),
			Adapter: p.TargetAdapter,
			ID:      p.TargetID,
		}}
		if err := deviceInfo(&level.Header); err != nil {
			return 0, fmt.Errorf("SDR white level of %s: %w", display, err)
		}
		return rawToNits(level.WhiteLevel), nil
	}
	return 0, fmt.Errorf("no active display path for %s", display)
}

// activePaths queries the active paths, retrying while the topology changes
// between the size query and the fetch.
func activePaths() ([]pathInfo, error) {
	if err := procQueryDisplayConfig.Find(); err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxQueryAttempts; attempt++ {
		var numPaths, numModes uint32
		r, _, _ := procGetDisplayConfigBufferSizes.Call(
			qdcOnlyActivePaths,
			uintptr(unsafe.Pointer(&numPaths)),
			uintptr(unsafe.Pointer(&numModes)),
		)
		if r != 0 {
			return nil, fmt.Errorf("GetDisplayConfigBufferSizes: %w", windows.Errno(r))
		}
		if numPaths == 0 {
			return nil, nil
		}
		paths := make([]pathInfo, numPaths)
		modes := make([]modeInfo, max(numModes, 1))
		r, _, _ = procQueryDisplayConfig.Call(
			qdcOnlyActivePaths,
			uintptr(unsafe.Pointer(&numPaths)),
			uintptr(unsafe.Pointer(&paths[0])),
			uintptr(unsafe.Pointer(&numModes)),
			uintptr(unsafe.Pointer(&modes[0])),
			0,
		)
		if windows.Errno(r) == windows.ERROR_INSUFFICIENT_BUFFER {
			continue
		}
		if r != 0 {
			return nil, fmt.Errorf("QueryDisplayConfig: %w", windows.Errno(r))
		}
		return paths[:numPaths], nil
	}
	return nil, errors.New("QueryDisplayConfig: topology kept changing")
}

func deviceInfo(h *deviceInfoHeader) error {
	r, _, _ := procDisplayConfigGetDeviceInfo.Call(uintptr(unsafe.Pointer(h)))
	if r != 0 {
		return fmt.Errorf("DisplayConfigGetDeviceInfo type %d: %w", h.Type, windows.Errno(r))
	}
	return nil
}
