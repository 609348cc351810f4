package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Options configures one export run.
type Options struct {
	// DestDir is where the archive is produced. Defaults to the source's
	// parent directory.
	DestDir string
	// PublicDir, when set, enables the Moving stage: the finished archive
	// is relocated there and the indexer is notified.
	PublicDir string

	Indexer   Indexer
	KeepAwake KeepAwake
}

// Start launches a background export of the session directory src and
// returns immediately. Observe the job via Progress, Done and Err.
func Start(src string, opts Options) *Job {
	if opts.DestDir == "" {
		opts.DestDir = filepath.Dir(src)
	}
	if opts.Indexer == nil {
		opts.Indexer = NopIndexer{}
	}
	if opts.KeepAwake == nil {
		opts.KeepAwake = NopKeepAwake{}
	}

	j := &Job{
		ID:     uuid.New(),
		Source: src,
		done:   make(chan struct{}),
	}
	go j.run(opts)
	return j
}

func (j *Job) run(opts Options) {
	// The keep-awake allowance is a transient global knob; the scoped
	// release must run on every exit path, including failure and
	// cancellation.
	release := opts.KeepAwake.Acquire()
	defer release()
	defer close(j.done)

	if err := j.execute(opts); err != nil {
		slog.Error("export: job failed", "id", j.ID, "source", j.Source, "err", err)
		j.fail(err)
		return
	}
	j.state.Store(int32(StateDone))
}

func (j *Job) execute(opts Options) error {
	j.state.Store(int32(StateListing))
	files, err := listFiles(j.Source)
	if err != nil {
		return fmt.Errorf("export: source not found: %w", err)
	}
	j.total.Store(int64(len(files)))

	j.state.Store(int32(StateArchiving))
	name := filepath.Base(j.Source) + ".zip"
	archive, wrote, err := j.writeArchive(opts.DestDir, name, files)
	if err != nil {
		return err
	}

	if j.Cancelled() {
		if wrote == 0 {
			slog.Info("export: cancelled before any entries", "id", j.ID)
		} else {
			j.setArchive(archive)
			slog.Info("export: cancelled, partial archive finalized", "id", j.ID, "entries", wrote)
		}
		return nil
	}
	j.setArchive(archive)

	if opts.PublicDir != "" {
		j.state.Store(int32(StateMoving))
		final, err := moveDisambiguated(archive, opts.PublicDir)
		if err != nil {
			return classify(err)
		}
		j.setArchive(final)
		if err := opts.Indexer.Notify(final); err != nil {
			slog.Warn("export: index notification failed", "path", final, "err", err)
		}
	}
	return nil
}

// listFiles enumerates the regular files of the session tree, relative to
// root, in walk order.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// writeArchive streams files into a hidden temp archive in destDir and
// renames it to name once the zip directory is finalized. Cancellation is
// checked between entries; a cancelled run still produces a valid partial
// archive (or nothing at all if no entry was written). Returns the final
// path and the number of entries written.
func (j *Job) writeArchive(destDir, name string, files []string) (string, int, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", 0, classify(fmt.Errorf("export: create destination: %w", err))
	}
	tmp, err := os.CreateTemp(destDir, "."+name+".tmp-*")
	if err != nil {
		return "", 0, classify(fmt.Errorf("export: create archive: %w", err))
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	zw := zip.NewWriter(tmp)
	wrote := 0
	for _, rel := range files {
		if j.cancelled.Load() {
			break
		}
		if err := addEntry(zw, j.Source, rel); err != nil {
			cleanup()
			return "", wrote, classify(fmt.Errorf("export: archive %s: %w", rel, err))
		}
		wrote++
		j.processed.Add(1)
	}

	if err := zw.Close(); err != nil {
		cleanup()
		return "", wrote, classify(fmt.Errorf("export: finalize archive: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", wrote, classify(fmt.Errorf("export: sync archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", wrote, classify(fmt.Errorf("export: close archive: %w", err))
	}

	if j.cancelled.Load() && wrote == 0 {
		os.Remove(tmpName)
		return "", 0, nil
	}

	final := filepath.Join(destDir, name)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", wrote, classify(fmt.Errorf("export: publish archive: %w", err))
	}
	return final, wrote, nil
}

func addEntry(zw *zip.Writer, root, rel string) error {
	f, err := os.Open(filepath.Join(root, rel))
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// moveDisambiguated relocates the archive into publicDir, appending a
// timestamp suffix when a same-named artifact already exists.
func moveDisambiguated(archive, publicDir string) (string, error) {
	if err := os.MkdirAll(publicDir, 0755); err != nil {
		return "", err
	}
	base := filepath.Base(archive)
	dst := filepath.Join(publicDir, base)
	if _, err := os.Lstat(dst); err == nil {
		ext := filepath.Ext(base)
		stem := base[:len(base)-len(ext)]
		dst = filepath.Join(publicDir, fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405"), ext))
	}
	if err := os.Rename(archive, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// classify maps permission refusals to their own terminal error so the
// caller can report them distinctly from ordinary I/O failure.
func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return err
}
