package main

import (
	"time"

	"github.com/chewxy/math32"

	"depthrig/internal/frame"
	"depthrig/internal/gpu"
	"depthrig/internal/mathutil"
)

// scene is a stand-in for the device compositor: it synthesizes per-eye
// NDC depth planes of a rippled wall and a slowly orbiting head pose, so
// the whole pipeline can run without sensor hardware.
type scene struct {
	near   float32
	width  int
	height int
}

// ipd is the simulated inter-pupillary distance in meters.
const ipd = 0.063

func newScene(near float32, width, height int) *scene {
	return &scene{near: near, width: width, height: height}
}

func (s *scene) descriptors(devTime float64, wall time.Time, near, far float32) [2]frame.Descriptor {
	// Slow yaw sweep around the room.
	yaw := float32(devTime) * 0.2
	orient := mathutil.EulerToQuat(0, yaw, 0)
	center := mathutil.Vec3{0, 1.6, 0}
	offset := orient.Rotate(mathutil.Vec3{ipd / 2, 0, 0})

	base := frame.Descriptor{
		Fov: frame.Fov{
			TanLeft:  1.05,
			TanRight: 0.95,
			TanUp:    1.0,
			TanDown:  1.0,
		},
		Near:       near,
		Far:        far,
		Width:      s.width,
		Height:     s.height,
		DeviceTime: devTime,
		WallClock:  wall,
	}

	left := base
	left.Pose = frame.Pose{Position: center.Sub(offset), Orientation: orient}
	right := base
	right.Pose = frame.Pose{Position: center.Add(offset), Orientation: orient}
	return [2]frame.Descriptor{left, right}
}

// texture builds the two-plane source texture for one tick. Plane rows are
// top-down, matching what the compositor hands the extraction kernel.
func (s *scene) texture(dev *gpu.CPUDevice, descs [2]frame.Descriptor) gpu.Texture {
	planes := make([][]float32, 2)
	for eye := range planes {
		plane := make([]float32, s.width*s.height)
		phase := float32(descs[eye].DeviceTime)
		for y := 0; y < s.height; y++ {
			fy := float32(y) / float32(s.height)
			for x := 0; x < s.width; x++ {
				fx := float32(x) / float32(s.width)
				// Rippled wall roughly 1–2.4 m out, with a band of
				// dropout samples near the top edge.
				lin := 1.7 + 0.7*math32.Sin(fx*6+phase)*math32.Cos(fy*4)
				ndc := float32(1) - s.near/lin
				if y < s.height/32 {
					ndc = 1 // degenerate: decodes to +Inf
				}
				plane[y*s.width+x] = ndc
			}
		}
		planes[eye] = plane
	}
	return dev.NewTexture(s.width, s.height, planes...)
}
