// Package export archives completed session directories in the background,
// with polled progress, cooperative cancellation, and an atomic
// rename-on-completion so a half-written archive is never visible.
package export

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle position of an export job.
type State int32

const (
	StateIdle State = iota
	StateListing
	StateArchiving
	StateMoving
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListing:
		return "listing"
	case StateArchiving:
		return "archiving"
	case StateMoving:
		return "moving"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ErrPermissionDenied marks a storage-permission refusal, reported to the
// user distinctly from ordinary I/O failure.
var ErrPermissionDenied = errors.New("export: storage write permission denied")

// Job is one in-flight archival. The processed counter is incremented
// atomically by the worker and read lock-free by pollers; exact completion
// is signaled by Done, not by counter equality.
type Job struct {
	ID     uuid.UUID
	Source string

	state     atomic.Int32
	total     atomic.Int64
	processed atomic.Int64
	cancelled atomic.Bool
	done      chan struct{}

	mu      sync.Mutex
	err     error
	archive string
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Progress reports fractional progress in [0, 1]. It is eventually
// consistent and monotonic; it reads the worker's counter without locking.
func (j *Job) Progress() float64 {
	t := j.total.Load()
	if t <= 0 {
		if j.State() == StateDone {
			return 1
		}
		return 0
	}
	p := j.processed.Load()
	if p > t {
		p = t
	}
	return float64(p) / float64(t)
}

// Done returns a channel closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the terminal error, nil while running, on success, and on
// cancellation (cancellation is not a failure).
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Cancel requests cooperative cancellation. The worker observes it between
// archive entries; the call never blocks or forcibly stops anything.
func (j *Job) Cancel() {
	j.cancelled.Store(true)
}

// Cancelled reports whether cancellation was requested.
func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// ArchivePath returns the final artifact path, empty until one exists.
func (j *Job) ArchivePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.archive
}

func (j *Job) setArchive(path string) {
	j.mu.Lock()
	j.archive = path
	j.mu.Unlock()
}

func (j *Job) fail(err error) {
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()
	j.state.Store(int32(StateFailed))
}
