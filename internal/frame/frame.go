// Package frame defines the immutable per-capture metadata shared by the
// codec, the event bus and the unprojector.
package frame

import (
	"time"

	"depthrig/internal/mathutil"
)

// Eye identifies one of the two stereo viewpoints.
type Eye int

const (
	Left Eye = iota
	Right
)

// String returns "left" or "right", matching the on-disk directory prefix.
func (e Eye) String() string {
	if e == Right {
		return "right"
	}
	return "left"
}

// Pose is a rigid transform from sensor-local to world space.
type Pose struct {
	Position    mathutil.Vec3
	Orientation mathutil.Quat
}

// Fov holds the per-eye field-of-view half tangents. Asymmetric frusta are
// the normal case on a head-mounted display.
type Fov struct {
	TanLeft  float32
	TanRight float32
	TanUp    float32
	TanDown  float32
}

// Descriptor describes one captured instant: the pose the plane was taken
// from, the projection that produced it, and when. Created once per dispatch
// and never mutated; it is a value type shared by every consumer of the
// frame.
type Descriptor struct {
	Pose Pose
	Fov  Fov

	Near float32
	Far  float32

	Width  int
	Height int

	// DeviceTime is the device-relative capture timestamp in seconds.
	DeviceTime float64
	// WallClock is the host wall-clock time at capture.
	WallClock time.Time
}

// Decoded pairs one eye's host-memory depth values with the descriptor that
// produced them. It is transient: the values slice aliases the readback view
// and is only valid for the duration of one completion callback.
type Decoded struct {
	Values []float32
	Eye    Eye
	Desc   Descriptor
}
