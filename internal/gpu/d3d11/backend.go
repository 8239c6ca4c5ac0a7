package d3d11

import (
	_ "embed"
	"fmt"
	"os"
)

// compositeHLSL is the compositing program, compiled per compositor.
//
//go:embed composite.hlsl
var compositeHLSL []byte

// Backend opens D3D11 devices on the first adapter driving a desktop
// output.
type Backend struct {
	// ShaderPath, when set, replaces the embedded HLSL source.
	ShaderPath string
}

// New creates a backend. shaderPath may be empty.
func New(shaderPath string) *Backend {
	return &Backend{ShaderPath: shaderPath}
}

func (b *Backend) Name() string { return "d3d11" }

func (b *Backend) shaderSource() ([]byte, string, error) {
	if b.ShaderPath == "" {
		return compositeHLSL, "composite.hlsl", nil
	}
	src, err := os.ReadFile(b.ShaderPath)
	if err != nil {
		return nil, "", fmt.Errorf("read shader %s: %w", b.ShaderPath, err)
	}
	return src, b.ShaderPath, nil
}
