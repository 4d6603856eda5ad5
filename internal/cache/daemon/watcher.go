package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind says how the config file changed.
type ChangeKind int

const (
	// Written means the file was written in place.
	Written ChangeKind = iota
	// Replaced means the file was created, usually by an editor renaming a
	// temp file over it.
	Replaced
	// Removed means the file was deleted or renamed away.
	Removed
)

func (k ChangeKind) String() string {
	switch k {
	case Written:
		return "written"
	case Replaced:
		return "replaced"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one observed edit of the config file.
type Change struct {
	Path string
	Kind ChangeKind
}

// ConfigWatcher reports edits to a single config file.
//
// The parent directory is watched rather than the file so that editors
// which save by rename keep producing changes after the first save.
type ConfigWatcher struct {
	path    string
	changes chan Change
	errs    chan error

	started  atomic.Bool
	watching atomic.Bool
}

// NewConfigWatcher prepares a watcher for path. Nothing is watched until
// Watch is called.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return &ConfigWatcher{
		path:    abs,
		changes: make(chan Change, 16),
		errs:    make(chan error, 4),
	}, nil
}

// Path returns the absolute path being watched.
func (w *ConfigWatcher) Path() string {
	return w.path
}

// Watch starts delivering changes until ctx is done. Afterwards both
// channels are closed. Watch can only be called once.
func (w *ConfigWatcher) Watch(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("config watcher already started")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.watching.Store(true)
	go w.loop(ctx, fs)
	return nil
}

// Watching reports whether the watch loop is running.
func (w *ConfigWatcher) Watching() bool {
	return w.watching.Load()
}

// Changes delivers edits of the config file.
func (w *ConfigWatcher) Changes() <-chan Change {
	return w.changes
}

// Errors delivers fsnotify errors. Errors nobody reads are dropped.
func (w *ConfigWatcher) Errors() <-chan error {
	return w.errs
}

func (w *ConfigWatcher) loop(ctx context.Context, fs *fsnotify.Watcher) {
	defer func() {
		_ = fs.Close()
		w.watching.Store(false)
		close(w.changes)
		close(w.errs)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fs.Events:
			if !ok {
				return
			}
			change, ok := w.classify(ev)
			if !ok {
				continue
			}
			// A full buffer already holds a pending change.
			select {
			case w.changes <- change:
			default:
			}

		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

// classify maps an event on the watched file to a Change. Siblings and
// chmod-only events are ignored.
func (w *ConfigWatcher) classify(ev fsnotify.Event) (Change, bool) {
	if filepath.Clean(ev.Name) != w.path {
		return Change{}, false
	}

	var kind ChangeKind
	switch {
	case ev.Has(fsnotify.Create):
		kind = Replaced
	case ev.Has(fsnotify.Write):
		kind = Written
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		kind = Removed
	default:
		return Change{}, false
	}
	return Change{Path: w.path, Kind: kind}, true
}
