// Package gpu defines the compute-device boundary the capture pipeline runs
// against: float32 textures and buffers, named kernel dispatch, and
// asynchronous host readback. A deterministic CPU backend implements the
// boundary for tests and the session simulator; a real driver binding slots
// in behind the same interfaces.
package gpu

// Texture is a device-resident multi-plane float32 image. Plane 0 is the
// left eye, plane 1 the right eye.
type Texture interface {
	Width() int
	Height() int
	Planes() int
	// Valid reports whether the texture backing store is initialized.
	// Dispatching against an invalid texture is a caller error.
	Valid() bool
}

// Buffer is a device-resident float32 array.
type Buffer interface {
	// Cap returns the element count the buffer was allocated with.
	Cap() int
	// Destroy releases the device allocation. The buffer must not be
	// used afterwards.
	Destroy()
}

// ReadFunc receives the transferred host view of a buffer. The view is only
// valid for the duration of the call; callers must copy anything they keep.
type ReadFunc func(view []float32, err error)

// Device creates resources and dispatches compute kernels.
type Device interface {
	NewBuffer(elems int) Buffer

	// Dispatch runs the named kernel over a width×height plane, reading
	// from src and writing into dst (one buffer per plane). Thread groups
	// are 8×8; partial edge groups are the kernel's problem.
	Dispatch(kernel string, src Texture, dst []Buffer, width, height int) error

	// ReadAsync requests a transfer of b to host memory. The completion
	// runs exactly once, posted onto loop, never inline.
	ReadAsync(b Buffer, loop *RunLoop, fn ReadFunc)
}

// GroupSize is the thread-group edge length of every plane kernel.
const GroupSize = 8

// GroupCount returns the number of 8×8 thread groups covering a plane axis.
func GroupCount(extent int) int {
	return (extent + GroupSize - 1) / GroupSize
}
