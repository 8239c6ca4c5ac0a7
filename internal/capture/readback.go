package capture

import (
	"fmt"
	"sync"
)

// CopyRows copies height rows of width BGRA pixels from a GPU mapping with
// the given row pitch into a tightly packed dst. Only the valid prefix of each
// source row is copied.
func CopyRows(dst, src []byte, rowPitch, width, height int) error {
	rowBytes := width * 4
	if rowPitch < rowBytes {
		return fmt.Errorf("row pitch %d smaller than row %d", rowPitch, rowBytes)
	}
	if len(dst) < rowBytes*height {
		return fmt.Errorf("destination holds %d bytes, need %d", len(dst), rowBytes*height)
	}
	if height > 0 && len(src) < rowPitch*(height-1)+rowBytes {
		return fmt.Errorf("source holds %d bytes, need %d", len(src), rowPitch*(height-1)+rowBytes)
	}
	if rowPitch == rowBytes {
		copy(dst, src[:rowBytes*height])
		return nil
	}
	for y := 0; y < height; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*rowPitch:y*rowPitch+rowBytes])
	}
	return nil
}

// pixelPool pools readback buffers for a fixed resolution. Captures repeat at
// a consistent size, so a pool keyed on the last size is enough.
type pixelPool struct {
	pool sync.Pool
	w, h int
	mu   sync.Mutex
}

func (p *pixelPool) Get(w, h int) []byte {
	p.mu.Lock()
	if p.w == w && p.h == h {
		p.mu.Unlock()
		if v := p.pool.Get(); v != nil {
			return *(v.(*[]byte))
		}
		return make([]byte, w*h*4)
	}
	// Resolution changed, drop everything pooled for the old size.
	p.w = w
	p.h = h
	p.pool = sync.Pool{}
	p.mu.Unlock()
	return make([]byte, w*h*4)
}

func (p *pixelPool) Put(buf []byte) {
	p.mu.Lock()
	match := len(buf) == p.w*p.h*4
	p.mu.Unlock()
	if match {
		p.pool.Put(&buf)
	}
}
