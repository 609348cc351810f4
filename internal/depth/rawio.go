package depth

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
)

// Writer persists raw depth planes as flat little-endian float32 blobs on a
// dedicated background goroutine, so capture cadence never waits on disk.
// Write failures are soft: logged and dropped, never escalated.
type Writer struct {
	queue chan rawJob

	closeOnce sync.Once
	done      chan struct{}
}

type rawJob struct {
	path   string
	values []float32
}

// NewWriter starts the background writer. queueDepth bounds how many frames
// may be waiting on disk before further frames are dropped.
func NewWriter(queueDepth int) *Writer {
	if queueDepth <= 0 {
		queueDepth = 16
	}
	w := &Writer{
		queue: make(chan rawJob, queueDepth),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	for job := range w.queue {
		if err := WriteRaw(job.path, job.values); err != nil {
			slog.Warn("depth: raw persist failed", "path", job.path, "err", err)
		}
	}
	close(w.done)
}

// Enqueue copies values and schedules them for persistence. The caller's
// slice may be invalidated as soon as Enqueue returns. A full queue drops
// the frame with a warning rather than blocking the capture thread.
func (w *Writer) Enqueue(path string, values []float32) {
	owned := make([]float32, len(values))
	copy(owned, values)
	select {
	case w.queue <- rawJob{path: path, values: owned}:
	default:
		slog.Warn("depth: raw queue full, dropping frame", "path", path)
	}
}

// Close drains pending writes and stops the worker.
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.queue) })
	<-w.done
}

// WriteRaw writes values as a flat little-endian float32 blob.
func WriteRaw(path string, values []float32) error {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("depth: write %s: %w", path, err)
	}
	return nil
}

// ReadRaw reads a flat little-endian float32 blob back into memory.
func ReadRaw(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("depth: read %s: %w", path, err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("depth: %s: truncated float32 blob (%d bytes)", path, len(raw))
	}
	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, nil
}
