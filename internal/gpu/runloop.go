package gpu

import "sync"

// RunLoop is the single-threaded capture context. Kernel dispatch, transfer
// requests and transfer completions all execute on it, which gives every
// readback a single ordering point: two completions of the same buffer can
// never overlap, and no lock is needed on the capture path itself.
type RunLoop struct {
	tasks chan func()

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewRunLoop creates a loop and starts draining it on its own goroutine.
func NewRunLoop() *RunLoop {
	l := &RunLoop{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *RunLoop) run() {
	for fn := range l.tasks {
		fn()
	}
	close(l.done)
}

// Post enqueues fn for execution on the loop. Tasks posted after Stop are
// dropped.
func (l *RunLoop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.tasks <- fn
}

// Sync blocks until the loop is idle, including tasks that running tasks
// posted (a dispatch's transfer completions land behind it in the queue).
// Useful as an explicit ordering point in tests and at session shutdown.
func (l *RunLoop) Sync() {
	for {
		barrier := make(chan struct{})
		l.Post(func() { close(barrier) })

		l.mu.Lock()
		stopped := l.stopped
		l.mu.Unlock()
		if stopped {
			return
		}
		<-barrier

		if len(l.tasks) == 0 {
			return
		}
	}
}

// Stop drains pending tasks and shuts the loop down. Blocks until the last
// task has run.
func (l *RunLoop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	close(l.tasks)
	l.mu.Unlock()
	<-l.done
}
