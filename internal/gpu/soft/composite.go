package soft

import (
	"errors"
	"fmt"

	"github.com/vinhtt98/bitblt-hdr/internal/capture"
)

type canvas struct {
	tex      *texture
	released bool
}

func (c *canvas) Size() (int, int) { return c.tex.w, c.tex.h }

func (c *canvas) Clear() error {
	if c.released {
		return errors.New("canvas released")
	}
	c.tex.fill(capture.Background)
	return nil
}

func (c *canvas) Readback(dst []byte) error {
	if c.released {
		return errors.New("canvas released")
	}
	return capture.CopyRows(dst, c.tex.data, c.tex.pitch, c.tex.w, c.tex.h)
}

func (c *canvas) Release() error {
	c.released = true
	return nil
}

type compositor struct {
	backend  *Backend
	released bool
}

// Composite runs the compositing program on the CPU: one invocation per
// thread of a ceil(w/16) x ceil(h/16) grid of 16x16 groups.
func (c *compositor) Composite(src capture.Frame, params capture.Params, dst capture.Canvas) error {
	if c.released {
		return errors.New("compositor released")
	}
	f, ok := src.(*frame)
	if !ok || f.released {
		return fmt.Errorf("source is not a live soft frame")
	}
	cv, ok := dst.(*canvas)
	if !ok || cv.released {
		return fmt.Errorf("destination is not a live soft canvas")
	}
	c.backend.mu.Lock()
	injected := c.backend.CompositeErr[f.display]
	c.backend.mu.Unlock()
	if injected != nil {
		return injected
	}

	gx, gy := params.Groups()
	for ty := 0; ty < int(gy)*16; ty++ {
		for tx := 0; tx < int(gx)*16; tx++ {
			if tx >= int(params.SrcWidth) || ty >= int(params.SrcHeight) {
				continue
			}
			dx, dy, inside := params.Map(tx, ty)
			if !inside {
				continue
			}
			r, g, b := params.Shade(f.tex.load(tx, ty))
			cv.tex.store(dx, dy, r, g, b)
		}
	}
	return nil
}

func (c *compositor) Release() error {
	c.released = true
	return nil
}
