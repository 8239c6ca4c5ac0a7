package main

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/gpu/soft"
)

func demoDescriptors() []capture.Descriptor {
	var descs []capture.Descriptor
	for _, d := range soft.DemoLayout() {
		descs = append(descs, capture.Descriptor{Name: d.Name, Bounds: d.Bounds, Rotation: d.Rotation, ColorSpace: d.ColorSpace})
	}
	return descs
}

func TestDesktopBounds(t *testing.T) {
	got := desktopBounds(demoDescriptors())
	if want := image.Rect(0, 0, 3000, 1920); got != want {
		t.Fatalf("desktopBounds = %v, want %v", got, want)
	}
	if got := desktopBounds(nil); !got.Empty() {
		t.Fatalf("desktopBounds(nil) = %v, want empty", got)
	}
}

func TestToRGBASwizzles(t *testing.T) {
	img := &capture.Image{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 255, 10, 20, 30, 255}}
	rgba := toRGBA(img)
	if got := rgba.Pix[:8]; !bytes.Equal(got, []byte{3, 2, 1, 255, 30, 20, 10, 255}) {
		t.Fatalf("Pix = %v", got)
	}
}

func TestScaleImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 40))
	for _, filter := range []string{"nearest", "bilinear", "catmullrom"} {
		out, err := scaleImage(src, 0.5, filter)
		if err != nil {
			t.Fatalf("%s: %v", filter, err)
		}
		if b := out.Bounds(); b.Dx() != 50 || b.Dy() != 20 {
			t.Fatalf("%s: bounds = %v", filter, b)
		}
	}
	if _, err := scaleImage(src, 0, "bilinear"); err == nil {
		t.Fatal("expected error for zero scale")
	}
	if _, err := scaleImage(src, 2, "lanczos"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}

func TestPrintMonitorsText(t *testing.T) {
	var buf bytes.Buffer
	if err := printMonitors(&buf, demoDescriptors(), "text"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], `\\.\DISPLAY2`) || !strings.Contains(lines[1], "rot  90") {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestPrintMonitorsYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := printMonitors(&buf, demoDescriptors(), "yaml"); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Monitors []monitorView `yaml:"monitors"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("yaml: %v\n%s", err, buf.String())
	}
	if len(doc.Monitors) != 2 {
		t.Fatalf("monitors = %d", len(doc.Monitors))
	}
	m := doc.Monitors[1]
	if m.X != 1920 || m.Width != 1080 || m.Height != 1920 || !m.HDR || m.Rotation != 90 {
		t.Fatalf("unexpected monitor %+v", m)
	}
}

func TestPrintMonitorsUnknownFormat(t *testing.T) {
	if err := printMonitors(&bytes.Buffer{}, nil, "json"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCaptureOrFallbackUsesEngine(t *testing.T) {
	backend := soft.New(soft.DemoLayout()...)
	engine := capture.New(backend, capture.DefaultOptions(), nil, nil)
	defer engine.Shutdown()

	legacyCalled := false
	restore := legacyCapture
	legacyCapture = func(image.Rectangle) (image.Image, error) {
		legacyCalled = true
		return nil, nil
	}
	defer func() { legacyCapture = restore }()

	img, fellBack, err := captureOrFallback(engine, image.Rect(0, 0, 64, 64), true)
	if err != nil || fellBack || legacyCalled {
		t.Fatalf("fellBack=%v legacy=%v err=%v", fellBack, legacyCalled, err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestCaptureOrFallbackFallsBack(t *testing.T) {
	backend := soft.New(soft.DemoLayout()...)
	backend.OpenErr = capture.ErrNotSupported
	engine := capture.New(backend, capture.DefaultOptions(), nil, nil)
	defer engine.Shutdown()

	restore := legacyCapture
	legacyCapture = func(r image.Rectangle) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}
	defer func() { legacyCapture = restore }()

	img, fellBack, err := captureOrFallback(engine, image.Rect(0, 0, 32, 16), true)
	if err != nil || !fellBack {
		t.Fatalf("fellBack=%v err=%v", fellBack, err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Fatalf("bounds = %v", b)
	}

	if _, _, err := captureOrFallback(engine, image.Rect(0, 0, 32, 16), false); err == nil {
		t.Fatal("expected error with fallback disabled")
	}
}
