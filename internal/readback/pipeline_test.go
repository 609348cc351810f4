package readback

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"depthrig/internal/bus"
	"depthrig/internal/depth"
	"depthrig/internal/frame"
	"depthrig/internal/gpu"
	"depthrig/internal/pool"
)

type rig struct {
	dev  *gpu.CPUDevice
	loop *gpu.RunLoop
	pool *pool.Pool
	raw  *depth.Writer
	bus  *bus.Bus
	pipe *Pipeline
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		dev:  gpu.NewCPUDevice(),
		loop: gpu.NewRunLoop(),
		bus:  bus.New(),
		raw:  depth.NewWriter(8),
	}
	r.pool = pool.New(r.dev)
	r.pipe = New(r.dev, r.loop, r.pool, r.raw, r.bus, depth.DefaultVisualOptions())
	t.Cleanup(func() {
		r.loop.Stop()
		r.raw.Close()
		r.pool.Teardown()
	})
	return r
}

func testDescs(w, h int) [2]frame.Descriptor {
	d := frame.Descriptor{
		Pose:      frame.Pose{Orientation: [4]float32{0, 0, 0, 1}},
		Fov:       frame.Fov{TanLeft: 1, TanRight: 1, TanUp: 1, TanDown: 1},
		Near:      0.1,
		Far:       3,
		Width:     w,
		Height:    h,
		WallClock: time.Now(),
	}
	return [2]frame.Descriptor{d, d}
}

// ndcFor is the NDC sample that decodes to linear distance lin.
func ndcFor(lin, near float32) float32 {
	return 1 - near/lin
}

func TestExportFramePersistsAndPublishes(t *testing.T) {
	const w, h = 16, 8
	r := newRig(t)
	dir := t.TempDir()

	left := make([]float32, w*h)
	right := make([]float32, w*h)
	for i := range left {
		left[i] = ndcFor(1.0, 0.1)
		right[i] = ndcFor(2.0, 0.1)
	}
	tex := r.dev.NewTexture(w, h, left, right)

	var published []frame.Decoded
	r.bus.Subscribe("sink", func(f frame.Decoded) {
		// The values view dies with the callback; keep a copy.
		cp := make([]float32, len(f.Values))
		copy(cp, f.Values)
		f.Values = cp
		published = append(published, f)
	})

	outs := [2]Output{
		{Raw: filepath.Join(dir, "l.raw"), Visual: filepath.Join(dir, "l.png")},
		{Raw: filepath.Join(dir, "r.raw"), Visual: filepath.Join(dir, "r.png")},
	}
	descs := testDescs(w, h)
	r.loop.Post(func() { r.pipe.ExportFrame(tex, outs, descs) })
	r.loop.Sync()
	r.raw.Close()

	// Both eyes published, in dispatch order, with linear values.
	if len(published) != 2 {
		t.Fatalf("published %d frames, want 2", len(published))
	}
	if published[0].Eye != frame.Left || published[1].Eye != frame.Right {
		t.Errorf("eye order %v %v", published[0].Eye, published[1].Eye)
	}
	if v := published[0].Values[0]; math.Abs(float64(v-1.0)) > 1e-4 {
		t.Errorf("left decoded value %v, want 1.0", v)
	}
	if v := published[1].Values[0]; math.Abs(float64(v-2.0)) > 1e-4 {
		t.Errorf("right decoded value %v, want 2.0", v)
	}

	// Raw artifacts hold the undecoded NDC plane.
	rawVals, err := depth.ReadRaw(outs[0].Raw)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if len(rawVals) != w*h {
		t.Fatalf("raw plane has %d values, want %d", len(rawVals), w*h)
	}
	if got, want := rawVals[0], ndcFor(1.0, 0.1); got != want {
		t.Errorf("raw value %v, want NDC %v", got, want)
	}

	for _, p := range []string{outs[0].Visual, outs[1].Visual} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Errorf("missing visual artifact %s", p)
		}
	}
}

func TestExportFrameInvalidTexture(t *testing.T) {
	r := newRig(t)
	descs := testDescs(4, 4)

	before, _ := r.pool.Stats()
	r.loop.Post(func() { r.pipe.ExportFrame(nil, [2]Output{}, descs) })
	r.loop.Post(func() { r.pipe.ExportFrame(r.dev.NewTexture(0, 0), [2]Output{}, descs) })
	r.loop.Sync()
	after, _ := r.pool.Stats()

	if after != before {
		t.Errorf("no-op export allocated %d buffers", after-before)
	}
}

func TestExportFrameTransferFailure(t *testing.T) {
	const w, h = 8, 8
	r := newRig(t)
	r.dev.FailReads = true
	dir := t.TempDir()

	plane := make([]float32, w*h)
	tex := r.dev.NewTexture(w, h, plane, plane)

	published := 0
	r.bus.Subscribe("sink", func(frame.Decoded) { published++ })

	outs := [2]Output{
		{Raw: filepath.Join(dir, "l.raw"), Visual: filepath.Join(dir, "l.png")},
		{Raw: filepath.Join(dir, "r.raw"), Visual: filepath.Join(dir, "r.png")},
	}
	r.loop.Post(func() { r.pipe.ExportFrame(tex, outs, testDescs(w, h)) })
	r.loop.Sync()
	r.raw.Close()

	if published != 0 {
		t.Errorf("failed transfers published %d frames", published)
	}
	if _, err := os.Stat(outs[0].Raw); !os.IsNotExist(err) {
		t.Error("failed transfer persisted a raw artifact")
	}

	// Both buffers went back to the pool: the next frame reuses them.
	_, reusedBefore := r.pool.Stats()
	r.dev.FailReads = false
	r.loop.Post(func() { r.pipe.ExportFrame(tex, [2]Output{}, testDescs(w, h)) })
	r.loop.Sync()
	_, reusedAfter := r.pool.Stats()
	if reusedAfter-reusedBefore != 2 {
		t.Errorf("reused %d buffers after failure, want 2", reusedAfter-reusedBefore)
	}
}

func TestExportFrameBufferReuseAcrossFrames(t *testing.T) {
	const w, h = 8, 4
	r := newRig(t)
	plane := make([]float32, w*h)
	tex := r.dev.NewTexture(w, h, plane, plane)

	for i := 0; i < 5; i++ {
		r.loop.Post(func() { r.pipe.ExportFrame(tex, [2]Output{}, testDescs(w, h)) })
		// Let this frame's completions land before the next dispatch, as
		// the capture tick does.
		r.loop.Sync()
	}

	allocated, reused := r.pool.Stats()
	if allocated != 2 {
		t.Errorf("allocated %d buffers over 5 frames, want 2", allocated)
	}
	if reused != 8 {
		t.Errorf("reused %d buffers, want 8", reused)
	}
}
