package unproject

import (
	"math"
	"testing"

	"depthrig/internal/frame"
	"depthrig/internal/mathutil"
)

func symmetricDescriptor(w, h int) frame.Descriptor {
	return frame.Descriptor{
		Pose: frame.Pose{Orientation: mathutil.QuatIdentity()},
		Fov:  frame.Fov{TanLeft: 1, TanRight: 1, TanUp: 1, TanDown: 1},
		Near: 0.1, Far: 3,
		Width: w, Height: h,
	}
}

func TestIntrinsicsDerivation(t *testing.T) {
	// Tangents are picked exactly representable in binary so the derived
	// intrinsics compare exactly.
	d := frame.Descriptor{
		Fov:   frame.Fov{TanLeft: 1.5, TanRight: 0.5, TanUp: 1.25, TanDown: 0.75},
		Width: 200, Height: 100,
	}
	in := FromDescriptor(d)
	if in.Fx != 100 || in.Fy != 50 {
		t.Errorf("focal = (%v, %v), want (100, 50)", in.Fx, in.Fy)
	}
	if in.Cx != 50 || in.Cy != 62.5 {
		t.Errorf("principal = (%v, %v), want (50, 62.5)", in.Cx, in.Cy)
	}
}

func TestLocalIdempotent(t *testing.T) {
	in := FromDescriptor(symmetricDescriptor(64, 48))
	a := in.Local(13, 29, 1.75)
	b := in.Local(13, 29, 1.75)
	for i := 0; i < 3; i++ {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("component %d differs bitwise: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPrincipalPointRoundTrip(t *testing.T) {
	// Constant-depth plane: unprojecting at the principal point must land
	// z0 along the pose's forward axis.
	const w, h = 64, 64
	const z0 = 2.0
	d := symmetricDescriptor(w, h)
	in := FromDescriptor(d)

	x := int(in.Cx)
	y := h - int(in.Cy)
	p := World(d.Pose, in.Local(x, y, z0))

	dist := p.Sub(d.Pose.Position).Len()
	if math.Abs(float64(dist-z0)) > 0.05 {
		t.Errorf("distance %v, want %v", dist, z0)
	}
	if math.Abs(float64(p[0])) > 0.05 || math.Abs(float64(p[1])) > 0.05 {
		t.Errorf("point %v not on the forward axis", p)
	}
	if p[2] < z0-0.05 || p[2] > z0+0.05 {
		t.Errorf("forward component %v, want %v", p[2], z0)
	}
}

func TestWorldAppliesPose(t *testing.T) {
	pose := frame.Pose{
		Position:    mathutil.Vec3{10, 0, 0},
		Orientation: mathutil.EulerToQuat(0, math.Pi/2, 0), // +90° yaw
	}
	// A point straight ahead (local +Z) swings onto +X after a 90° yaw.
	p := World(pose, mathutil.Vec3{0, 0, 2})
	if math.Abs(float64(p[0]-12)) > 1e-3 || math.Abs(float64(p[1])) > 1e-3 || math.Abs(float64(p[2])) > 1e-3 {
		t.Errorf("world point %v, want (12, 0, 0)", p)
	}
}

func TestGate(t *testing.T) {
	g := Gate{Min: 0.1, Max: 3}
	origin := mathutil.Vec3{}
	cases := []struct {
		p    mathutil.Vec3
		want bool
	}{
		{mathutil.Vec3{0, 0, 1}, true},
		{mathutil.Vec3{0, 0, 0.05}, false}, // near-field noise
		{mathutil.Vec3{0, 0, 4}, false},    // beyond max range
		{mathutil.Vec3{0, 0, float32(math.Inf(1))}, false},
		{mathutil.Vec3{float32(math.NaN()), 0, 1}, false},
	}
	for i, c := range cases {
		if got := g.Accept(c.p, origin); got != c.want {
			t.Errorf("case %d: Accept(%v) = %v, want %v", i, c.p, got, c.want)
		}
	}
}

func TestCloudAccumulates(t *testing.T) {
	const w, h = 16, 16
	d := symmetricDescriptor(w, h)
	values := make([]float32, w*h)
	for i := range values {
		values[i] = 1.5 // linear depth, already decoded
	}
	// Poison one sampled pixel; it must be gated out, not crash.
	values[0] = float32(math.Inf(1))

	c := &Cloud{Stride: 4, Gate: DefaultGate()}
	c.OnFrame(frame.Decoded{Values: values, Eye: frame.Left, Desc: d})

	want := (w/4)*(h/4) - 1
	if c.Len() != want {
		t.Errorf("cloud has %d points, want %d", c.Len(), want)
	}

	c.Reset()
	if c.Len() != 0 {
		t.Error("Reset did not clear the cloud")
	}
}
