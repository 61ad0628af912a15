package fswatch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kilianp07/docfeed/core/model"
	"github.com/kilianp07/docfeed/infra/logger"
)

// Enqueuer receives records. feed.Dispatcher satisfies it.
type Enqueuer interface {
	Enqueue(model.Record)
}

// Watcher publishes the files of a directory tree as records. Doc ids are
// slash separated paths relative to the root.
type Watcher struct {
	cfg  Config
	root string
	m    matcher
	enq  Enqueuer
	log  logger.Logger

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	known   map[string]struct{}

	emitted atomic.Uint64
}

// New validates cfg. The tree is walked and watched by Run.
func New(cfg Config, enq Enqueuer) (*Watcher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if enq == nil {
		return nil, errors.New("fswatch needs an enqueuer")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	return &Watcher{
		cfg:     cfg,
		root:    root,
		m:       matcher{include: cfg.Include, exclude: cfg.Exclude},
		enq:     enq,
		log:     logger.New("fswatch"),
		pending: make(map[string]fsnotify.Op),
		known:   make(map[string]struct{}),
	}, nil
}

// Emitted returns the number of records handed to the enqueuer.
func (w *Watcher) Emitted() uint64 { return w.emitted.Load() }

// Run walks the tree, then watches it until ctx is cancelled. Changes are
// collected and flushed once per debounce interval.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.walk(fsw, w.root, !w.cfg.SkipInitial); err != nil {
		return err
	}
	w.log.Infof("watching %s (%d files)", w.root, len(w.known))

	ticker := time.NewTicker(w.cfg.Debounce)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Errorf("watcher error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

// walk adds a watch on every directory under dir and records matching files.
// With emit set, each file is also enqueued.
func (w *Watcher) walk(fsw *fsnotify.Watcher, dir string, emit bool) error {
	var found []model.Record
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.log.Warnf("skip %s: %v", path, err)
			return nil
		}
		rel, ok := w.rel(path)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if rel != "." && w.m.excluded(rel) {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				w.log.Warnf("watch %s: %v", path, err)
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.m.match(rel) {
			return nil
		}
		w.mu.Lock()
		w.known[rel] = struct{}{}
		w.mu.Unlock()
		if emit {
			found = append(found, addRecord(rel, d))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, r := range found {
		w.emit(r)
	}
	return nil
}

func (w *Watcher) handle(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	rel, ok := w.rel(ev.Name)
	if !ok || rel == "." {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if w.m.excluded(rel) {
				return
			}
			// Files may land in the directory before the watch is in place.
			if err := w.walk(fsw, ev.Name, true); err != nil {
				w.log.Warnf("walk %s: %v", ev.Name, err)
			}
			return
		}
	}
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		w.pending[rel] |= ev.Op
		w.mu.Unlock()
		return
	}
	if !w.m.match(rel) {
		return
	}
	w.mu.Lock()
	w.pending[rel] |= ev.Op
	w.mu.Unlock()
}

// flush turns pending changes into records. A path that no longer exists
// becomes a delete record for itself and for every known file below it.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()
	sort.Strings(paths)

	var out []model.Record
	for _, rel := range paths {
		info, err := os.Stat(filepath.Join(w.root, filepath.FromSlash(rel)))
		if err == nil && info.Mode().IsRegular() {
			if !w.m.match(rel) {
				continue
			}
			w.mu.Lock()
			w.known[rel] = struct{}{}
			w.mu.Unlock()
			r := model.NewRecord(rel)
			r.LastModified = info.ModTime().UTC()
			out = append(out, r)
			continue
		}
		if err == nil {
			continue
		}
		out = append(out, w.forget(rel)...)
	}
	for _, r := range out {
		w.emit(r)
	}
}

func (w *Watcher) forget(rel string) []model.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	var gone []string
	for k := range w.known {
		if k == rel || strings.HasPrefix(k, rel+"/") {
			gone = append(gone, k)
		}
	}
	sort.Strings(gone)
	out := make([]model.Record, 0, len(gone))
	for _, k := range gone {
		delete(w.known, k)
		out = append(out, model.Record{DocID: model.DocID(k), Action: model.ActionDelete})
	}
	return out
}

func (w *Watcher) emit(r model.Record) {
	w.emitted.Add(1)
	w.enq.Enqueue(r)
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func addRecord(rel string, d fs.DirEntry) model.Record {
	r := model.NewRecord(rel)
	if info, err := d.Info(); err == nil {
		r.LastModified = info.ModTime().UTC()
	}
	return r
}
