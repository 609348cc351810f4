// Package unproject reconstructs sensor-local and world-space 3D points
// from depth planes and their capture descriptors.
package unproject

import (
	"depthrig/internal/frame"
	"depthrig/internal/mathutil"
)

// Intrinsics is a pinhole model derived from a descriptor's field-of-view
// tangents. Derive it once per frame; per-pixel work is then two
// multiply-adds per axis.
type Intrinsics struct {
	Fx, Fy float32
	Cx, Cy float32

	width  int
	height int
}

// FromDescriptor derives intrinsics from the frustum half tangents.
func FromDescriptor(d frame.Descriptor) Intrinsics {
	w := float32(d.Width)
	h := float32(d.Height)
	horiz := d.Fov.TanRight + d.Fov.TanLeft
	vert := d.Fov.TanUp + d.Fov.TanDown
	return Intrinsics{
		Fx:     w / horiz,
		Fy:     h / vert,
		Cx:     w * d.Fov.TanRight / horiz,
		Cy:     h * d.Fov.TanUp / vert,
		width:  d.Width,
		height: d.Height,
	}
}

// Local reconstructs the sensor-local point for pixel (x, y) of a readback
// buffer at the given linear depth. Pixel centers are sampled, and the
// vertical flip applied during extraction is undone here.
func (in Intrinsics) Local(x, y int, depth float32) mathutil.Vec3 {
	px := float32(x) + 0.5
	py := float32(in.height) - (float32(y) + 0.5)
	tanX := (px - in.Cx) / in.Fx
	tanY := (py - in.Cy) / in.Fy
	return mathutil.Vec3{tanX * depth, tanY * depth, depth}
}

// World transforms a sensor-local point into world space using the capture
// pose.
func World(pose frame.Pose, local mathutil.Vec3) mathutil.Vec3 {
	return pose.Position.Add(pose.Orientation.Rotate(local))
}

// Gate rejects reconstructed points whose distance from the capture pose
// falls outside [Min, Max]. Rejection is a no-hit, not an error: near-field
// points are dominated by sensor noise and far points by quantization.
type Gate struct {
	Min float32
	Max float32
}

// DefaultGate matches the visual codec's trusted range.
func DefaultGate() Gate {
	return Gate{Min: 0.1, Max: 3.0}
}

// Accept reports whether world point p is reliable relative to origin.
func (g Gate) Accept(p, origin mathutil.Vec3) bool {
	if !p.IsFinite() {
		return false
	}
	d := p.Sub(origin).Len()
	return d >= g.Min && d <= g.Max
}
