package export

// KeepAwake grants a background-execution allowance for the duration of a
// job. Acquire returns the release that restores the prior state; the job
// calls it on every exit path.
type KeepAwake interface {
	Acquire() (release func())
}

// NopKeepAwake is the default on platforms without an execution-mode knob.
type NopKeepAwake struct{}

func (NopKeepAwake) Acquire() func() { return func() {} }

// Indexer is notified with the final artifact path after the Moving stage
// so the archive shows up in external file browsers. Notification failure
// is logged, never fatal.
type Indexer interface {
	Notify(path string) error
}

// NopIndexer ignores notifications.
type NopIndexer struct{}

func (NopIndexer) Notify(string) error { return nil }
