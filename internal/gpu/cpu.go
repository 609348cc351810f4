package gpu

import (
	"fmt"
	"sync/atomic"
)

// KernelDepthExtract splits a two-plane source texture into per-eye depth
// buffers, flipping rows so buffer row 0 is the bottom of the plane (the
// convention the device compositor emits; the visual encoder flips back).
const KernelDepthExtract = "depth_extract"

// CPUDevice is a reference Device that executes kernels on the host. It is
// deterministic and used by tests and the capture simulator.
type CPUDevice struct {
	// FailReads forces every ReadAsync to complete with an error,
	// emulating a device-lost transfer.
	FailReads bool

	allocs atomic.Int64
}

// NewCPUDevice returns an empty CPU device.
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{}
}

// Allocations returns the number of buffers created so far.
func (d *CPUDevice) Allocations() int64 {
	return d.allocs.Load()
}

type cpuTexture struct {
	width  int
	height int
	planes [][]float32 // row-major, row 0 = top
}

func (t *cpuTexture) Width() int  { return t.width }
func (t *cpuTexture) Height() int { return t.height }
func (t *cpuTexture) Planes() int { return len(t.planes) }

func (t *cpuTexture) Valid() bool {
	if t == nil || t.width <= 0 || t.height <= 0 || len(t.planes) == 0 {
		return false
	}
	for _, p := range t.planes {
		if len(p) != t.width*t.height {
			return false
		}
	}
	return true
}

// NewTexture wraps per-plane float32 data as a texture. Data is not copied.
func (d *CPUDevice) NewTexture(width, height int, planes ...[]float32) Texture {
	return &cpuTexture{width: width, height: height, planes: planes}
}

type cpuBuffer struct {
	data      []float32
	destroyed bool
}

func (b *cpuBuffer) Cap() int { return len(b.data) }

func (b *cpuBuffer) Destroy() {
	b.destroyed = true
	b.data = nil
}

func (d *CPUDevice) NewBuffer(elems int) Buffer {
	d.allocs.Add(1)
	return &cpuBuffer{data: make([]float32, elems)}
}

func (d *CPUDevice) Dispatch(kernel string, src Texture, dst []Buffer, width, height int) error {
	tex, ok := src.(*cpuTexture)
	if !ok || !tex.Valid() {
		return fmt.Errorf("gpu: dispatch %s: invalid source texture", kernel)
	}
	switch kernel {
	case KernelDepthExtract:
		return d.depthExtract(tex, dst, width, height)
	default:
		return fmt.Errorf("gpu: unknown kernel %q", kernel)
	}
}

// depthExtract iterates in 8×8 groups like the device kernel it mirrors, so
// edge handling matches the real dispatch exactly.
func (d *CPUDevice) depthExtract(tex *cpuTexture, dst []Buffer, width, height int) error {
	if len(dst) != len(tex.planes) {
		return fmt.Errorf("gpu: %s: %d output buffers for %d planes", KernelDepthExtract, len(dst), len(tex.planes))
	}
	for plane, out := range dst {
		buf, ok := out.(*cpuBuffer)
		if !ok || buf.destroyed {
			return fmt.Errorf("gpu: %s: destroyed output buffer for plane %d", KernelDepthExtract, plane)
		}
		src := tex.planes[plane]
		for gy := 0; gy < GroupCount(height); gy++ {
			for gx := 0; gx < GroupCount(width); gx++ {
				for ty := 0; ty < GroupSize; ty++ {
					y := gy*GroupSize + ty
					if y >= height {
						break
					}
					for tx := 0; tx < GroupSize; tx++ {
						x := gx*GroupSize + tx
						if x >= width {
							break
						}
						if i := (height-1-y)*width + x; i < len(buf.data) {
							buf.data[i] = src[y*width+x]
						}
					}
				}
			}
		}
	}
	return nil
}

func (d *CPUDevice) ReadAsync(b Buffer, loop *RunLoop, fn ReadFunc) {
	buf, ok := b.(*cpuBuffer)
	fail := d.FailReads
	loop.Post(func() {
		if !ok || buf.destroyed {
			fn(nil, fmt.Errorf("gpu: readback of destroyed buffer"))
			return
		}
		if fail {
			fn(nil, fmt.Errorf("gpu: transfer failed (device lost)"))
			return
		}
		fn(buf.data, nil)
	})
}
