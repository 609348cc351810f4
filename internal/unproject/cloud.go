package unproject

import (
	"sync"

	"depthrig/internal/frame"
	"depthrig/internal/mathutil"
)

// Cloud accumulates a downsampled world-space point cloud from live frames
// for coverage feedback. It is a frame bus subscriber: attach OnFrame on
// activation and detach on deactivation.
type Cloud struct {
	// Stride samples every Nth pixel on both axes. Zero means 8.
	Stride int
	// Gate filters unreliable reconstructions.
	Gate Gate

	mu  sync.Mutex
	pts []mathutil.Vec3
}

// OnFrame unprojects a decoded frame into the cloud. Intrinsics are derived
// once per frame, not per pixel.
func (c *Cloud) OnFrame(f frame.Decoded) {
	stride := c.Stride
	if stride <= 0 {
		stride = 8
	}
	in := FromDescriptor(f.Desc)

	var batch []mathutil.Vec3
	for y := 0; y < f.Desc.Height; y += stride {
		row := y * f.Desc.Width
		for x := 0; x < f.Desc.Width; x += stride {
			i := row + x
			if i >= len(f.Values) {
				break
			}
			p := World(f.Desc.Pose, in.Local(x, y, f.Values[i]))
			if c.Gate.Accept(p, f.Desc.Pose.Position) {
				batch = append(batch, p)
			}
		}
	}

	c.mu.Lock()
	c.pts = append(c.pts, batch...)
	c.mu.Unlock()
}

// Points returns a snapshot of the accumulated cloud.
func (c *Cloud) Points() []mathutil.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]mathutil.Vec3, len(c.pts))
	copy(out, c.pts)
	return out
}

// Reset clears the cloud, typically at session start.
func (c *Cloud) Reset() {
	c.mu.Lock()
	c.pts = c.pts[:0]
	c.mu.Unlock()
}

// Len returns the number of accumulated points.
func (c *Cloud) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pts)
}
