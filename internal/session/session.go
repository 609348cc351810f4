// Package session owns the on-disk layout of one recording: a
// timestamp-named directory with per-eye depth artifacts and a row-oriented
// descriptor log.
package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"depthrig/internal/frame"
)

// nameLayout is the session directory naming scheme.
const nameLayout = "20060102_150405"

// descriptorFile is the per-session descriptor log.
const descriptorFile = "descriptors.csv"

// Store manages session directories under one root.
type Store struct {
	Root string
}

// Session is one open recording. Artifact writes append to it during
// capture; after Close it is read-only.
type Session struct {
	Dir  string
	Name string

	mu   sync.Mutex
	f    *os.File
	csvw *csv.Writer
}

// Create makes a new session directory named for t, with both eye
// subdirectories and an empty descriptor log.
func (s *Store) Create(t time.Time) (*Session, error) {
	name := t.Format(nameLayout)
	dir := filepath.Join(s.Root, name)
	for _, sub := range []string{
		filepath.Join(dir, frame.Left.String()+"_depth"),
		filepath.Join(dir, frame.Right.String()+"_depth"),
	} {
		if err := os.MkdirAll(sub, 0755); err != nil {
			return nil, fmt.Errorf("session: create %s: %w", sub, err)
		}
	}

	f, err := os.Create(filepath.Join(dir, descriptorFile))
	if err != nil {
		return nil, fmt.Errorf("session: create descriptor log: %w", err)
	}
	sess := &Session{Dir: dir, Name: name, f: f, csvw: csv.NewWriter(f)}
	if err := sess.csvw.Write(frame.RecordHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("session: write descriptor header: %w", err)
	}
	return sess, nil
}

// FramePaths returns the raw and visual artifact paths for one eye at one
// capture timestamp. visualExt is "png", "webp" or "tga".
func (sess *Session) FramePaths(eye frame.Eye, ts int64, visualExt string) (raw, visual string) {
	dir := filepath.Join(sess.Dir, eye.String()+"_depth")
	base := strconv.FormatInt(ts, 10)
	return filepath.Join(dir, base+".raw"), filepath.Join(dir, base+"."+visualExt)
}

// AppendDescriptor logs one captured frame's descriptor. Safe for
// concurrent use.
func (sess *Session) AppendDescriptor(eye frame.Eye, d frame.Descriptor) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.csvw == nil {
		return fmt.Errorf("session: %s is closed", sess.Name)
	}
	if err := sess.csvw.Write(frame.Record(eye, d)); err != nil {
		return fmt.Errorf("session: append descriptor: %w", err)
	}
	return nil
}

// Close flushes and closes the descriptor log.
func (sess *Session) Close() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.csvw == nil {
		return nil
	}
	sess.csvw.Flush()
	err := sess.csvw.Error()
	if cerr := sess.f.Close(); err == nil {
		err = cerr
	}
	sess.csvw = nil
	sess.f = nil
	if err != nil {
		return fmt.Errorf("session: close %s: %w", sess.Name, err)
	}
	return nil
}

// ReadDescriptors loads every (eye, descriptor) row of a recorded session.
func ReadDescriptors(dir string) ([]frame.Eye, []frame.Descriptor, error) {
	f, err := os.Open(filepath.Join(dir, descriptorFile))
	if err != nil {
		return nil, nil, fmt.Errorf("session: open descriptor log: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("session: read descriptor log: %w", err)
	}
	var eyes []frame.Eye
	var descs []frame.Descriptor
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		eye, d, err := frame.ParseRecord(row)
		if err != nil {
			return nil, nil, fmt.Errorf("session: row %d: %w", i, err)
		}
		eyes = append(eyes, eye)
		descs = append(descs, d)
	}
	return eyes, descs, nil
}

// List enumerates session names under the root, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: list %s: %w", s.Root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(nameLayout, e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a session wholesale.
func (s *Store) Delete(name string) error {
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("session: refusing to delete %q", name)
	}
	if err := os.RemoveAll(filepath.Join(s.Root, name)); err != nil {
		return fmt.Errorf("session: delete %s: %w", name, err)
	}
	return nil
}
