package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"depthrig/internal/frame"
)

func TestCreateLayout(t *testing.T) {
	store := Store{Root: t.TempDir()}
	sess, err := store.Create(time.Date(2026, 8, 31, 10, 30, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer sess.Close()

	if sess.Name != "20260831_103005" {
		t.Errorf("session name %q", sess.Name)
	}
	for _, sub := range []string{"left_depth", "right_depth"} {
		if fi, err := os.Stat(filepath.Join(sess.Dir, sub)); err != nil || !fi.IsDir() {
			t.Errorf("missing eye directory %s", sub)
		}
	}

	raw, visual := sess.FramePaths(frame.Right, 12345, "png")
	if filepath.Base(raw) != "12345.raw" || filepath.Base(visual) != "12345.png" {
		t.Errorf("frame paths %q %q", raw, visual)
	}
	if filepath.Base(filepath.Dir(raw)) != "right_depth" {
		t.Errorf("raw path not under eye dir: %q", raw)
	}
}

func TestDescriptorLogRoundTrip(t *testing.T) {
	store := Store{Root: t.TempDir()}
	sess, err := store.Create(time.Now())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	d := frame.Descriptor{
		Pose:      frame.Pose{Orientation: [4]float32{0, 0, 0, 1}},
		Fov:       frame.Fov{TanLeft: 1, TanRight: 1, TanUp: 1, TanDown: 1},
		Near:      0.1, Far: 3, Width: 4, Height: 4,
		WallClock: time.Now().UTC(),
	}
	for i := 0; i < 3; i++ {
		d.DeviceTime = float64(i)
		if err := sess.AppendDescriptor(frame.Left, d); err != nil {
			t.Fatalf("AppendDescriptor: %v", err)
		}
		if err := sess.AppendDescriptor(frame.Right, d); err != nil {
			t.Fatalf("AppendDescriptor: %v", err)
		}
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	eyes, descs, err := ReadDescriptors(sess.Dir)
	if err != nil {
		t.Fatalf("ReadDescriptors: %v", err)
	}
	if len(descs) != 6 {
		t.Fatalf("read %d rows, want 6", len(descs))
	}
	if eyes[0] != frame.Left || eyes[1] != frame.Right {
		t.Errorf("eye order %v %v", eyes[0], eyes[1])
	}
	if descs[4].DeviceTime != 2 {
		t.Errorf("row 4 device time %v, want 2", descs[4].DeviceTime)
	}

	// Appending after close is an error, not a crash.
	if err := sess.AppendDescriptor(frame.Left, d); err == nil {
		t.Error("append after close succeeded")
	}
}

func TestListAndDelete(t *testing.T) {
	store := Store{Root: t.TempDir()}

	s1, err := store.Create(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	s1.Close()
	s2, err := store.Create(time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
	// Foreign entries are ignored.
	os.Mkdir(filepath.Join(store.Root, "not-a-session"), 0755)

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != s1.Name || names[1] != s2.Name {
		t.Errorf("List = %v", names)
	}

	if err := store.Delete(s1.Name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(s1.Dir); !os.IsNotExist(err) {
		t.Error("session directory survived Delete")
	}

	if err := store.Delete("../escape"); err == nil {
		t.Error("Delete accepted a path-traversing name")
	}
}

func TestListMissingRoot(t *testing.T) {
	store := Store{Root: filepath.Join(t.TempDir(), "nope")}
	names, err := store.List()
	if err != nil || names != nil {
		t.Errorf("List on missing root: %v, %v", names, err)
	}
}
