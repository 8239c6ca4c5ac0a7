//go:build windows

package d3d11

// D3D11/DXGI constants
const (
	d3dDriverTypeUnknown = 0
	d3dFeatureLevel11_0  = 0xb000
	d3dFeatureLevel11_1  = 0xb100
	d3d11SDKVersion      = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageDefault = 0
	d3d11UsageDynamic = 2
	d3d11UsageStaging = 3

	d3d11BindConstantBuffer  = 0x4
	d3d11BindShaderResource  = 0x8
	d3d11BindUnorderedAccess = 0x80

	d3d11CPUAccessWrite = 0x10000
	d3d11CPUAccessRead  = 0x20000

	d3d11MapRead         = 1
	d3d11MapWriteDiscard = 4

	// Canvas storage. Typed UAV stores to RGBA8 are required at feature
	// level 11_0, BGRA8 is not; the shader swizzles instead.
	dxgiFormatR8G8B8A8UNorm = 28

	d3dCompileOptimizationLevel3 = 1 << 15
)

// d3d11Texture2DDesc matches D3D11_TEXTURE2D_DESC (44 bytes).
type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32 // DXGI_SAMPLE_DESC.Count
	SampleQuality  uint32 // DXGI_SAMPLE_DESC.Quality
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

// d3d11BufferDesc matches D3D11_BUFFER_DESC.
type d3d11BufferDesc struct {
	ByteWidth           uint32
	Usage               uint32
	BindFlags           uint32
	CPUAccessFlags      uint32
	MiscFlags           uint32
	StructureByteStride uint32
}

// d3d11MappedSubresource matches D3D11_MAPPED_SUBRESOURCE.
type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

type rect struct {
	Left, Top, Right, Bottom int32
}

// dxgiOutputDesc matches DXGI_OUTPUT_DESC.
type dxgiOutputDesc struct {
	DeviceName         [32]uint16
	DesktopCoordinates rect
	AttachedToDesktop  int32 // BOOL
	Rotation           uint32
	Monitor            uintptr
}

// dxgiOutputDesc1 matches DXGI_OUTPUT_DESC1.
type dxgiOutputDesc1 struct {
	DeviceName            [32]uint16
	DesktopCoordinates    rect
	AttachedToDesktop     int32 // BOOL
	Rotation              uint32
	Monitor               uintptr
	BitsPerColor          uint32
	ColorSpace            uint32
	RedPrimary            [2]float32
	GreenPrimary          [2]float32
	BluePrimary           [2]float32
	WhitePoint            [2]float32
	MinLuminance          float32
	MaxLuminance          float32
	MaxFullFrameLuminance float32
}

// dxgiOutDuplFrameInfo matches DXGI_OUTDUPL_FRAME_INFO.
type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPositionX          int32
	PointerPositionY          int32
	PointerVisible            int32
	TotalMetadataBufferSize   uint32
	PointerShapeBufferSize    uint32
}
