package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/draw"
	"golang.org/x/term"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
	"github.com/vinhtt98/bitblt-hdr/internal/logging"
)

var (
	captureOut    string
	captureRegion []int
	captureScale  float64
	captureFilter string
	noFallback    bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the desktop once and write a PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return runCapture(s.engine)
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "desktop.png", "output PNG path, - for stdout")
	captureCmd.Flags().IntSliceVar(&captureRegion, "region", nil, "virtual-desktop region x,y,width,height (default is all displays)")
	captureCmd.Flags().Float64Var(&captureScale, "scale", 1, "scale factor applied before encoding")
	captureCmd.Flags().StringVar(&captureFilter, "filter", "bilinear", "scaling filter: nearest, bilinear or catmullrom")
	captureCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of using the legacy GDI capture when the engine is unavailable")
}

func runCapture(engine *capture.Engine) error {
	if captureOut == "-" && term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("refusing to write PNG data to a terminal")
	}

	if len(captureRegion) > 0 && len(captureRegion) != 4 {
		return fmt.Errorf("--region takes x,y,width,height")
	}
	region, err := captureTarget(engine)
	if err != nil {
		if noFallback {
			return err
		}
		log.Warn("display enumeration failed", logging.KeyError, err.Error())
	}

	out, fellBack, err := captureOrFallback(engine, region, !noFallback)
	if err != nil {
		return err
	}
	if captureScale != 1 {
		out, err = scaleImage(out, captureScale, captureFilter)
		if err != nil {
			return err
		}
	}

	if captureOut == "-" {
		return encodePNG(os.Stdout, out)
	}
	if err := writePNG(captureOut, out); err != nil {
		return err
	}

	path := "engine"
	if fellBack {
		path = "legacy"
	}
	fmt.Printf("Wrote %s (%dx%d, %s) in %.1f ms\n", captureOut, out.Bounds().Dx(), out.Bounds().Dy(), path, engine.Stats().LastCycleMs)
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func encodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}

// captureTarget is --region, or the union of all display bounds.
func captureTarget(engine *capture.Engine) (image.Rectangle, error) {
	if len(captureRegion) > 0 {
		if len(captureRegion) != 4 {
			return image.Rectangle{}, fmt.Errorf("--region takes x,y,width,height")
		}
		x, y, w, h := captureRegion[0], captureRegion[1], captureRegion[2], captureRegion[3]
		return image.Rect(x, y, x+w, y+h), nil
	}
	descs, err := engine.Monitors()
	if err != nil {
		return image.Rectangle{}, err
	}
	return desktopBounds(descs), nil
}

func desktopBounds(descs []capture.Descriptor) image.Rectangle {
	var r image.Rectangle
	for _, d := range descs {
		r = r.Union(d.Bounds)
	}
	return r
}

// toRGBA swizzles the engine's BGRA rows into an image.RGBA.
func toRGBA(img *capture.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i := 0; i+3 < len(img.Pix) && i+3 < len(dst.Pix); i += 4 {
		dst.Pix[i+0] = img.Pix[i+2]
		dst.Pix[i+1] = img.Pix[i+1]
		dst.Pix[i+2] = img.Pix[i+0]
		dst.Pix[i+3] = img.Pix[i+3]
	}
	return dst
}

func scaleImage(src image.Image, factor float64, filter string) (image.Image, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("--scale must be positive")
	}
	var interp draw.Interpolator
	switch filter {
	case "nearest":
		interp = draw.NearestNeighbor
	case "bilinear", "":
		interp = draw.ApproxBiLinear
	case "catmullrom":
		interp = draw.CatmullRom
	default:
		return nil, fmt.Errorf("unknown filter %q", filter)
	}
	b := src.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	interp.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}
