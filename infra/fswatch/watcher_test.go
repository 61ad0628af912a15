package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/docfeed/core/model"
)

type recorder struct {
	mu   sync.Mutex
	recs []model.Record
}

func (r *recorder) Enqueue(rec model.Record) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
}

func (r *recorder) find(id string, a model.Action) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.recs {
		if string(rec.DocID) == id && rec.Action == a {
			return true
		}
	}
	return false
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, string(rec.DocID))
	}
	return out
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func start(t *testing.T, cfg Config, rec *recorder) *Watcher {
	t.Helper()
	w, err := New(cfg, rec)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return w
}

func TestConfigValidate(t *testing.T) {
	checks := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"no root", Config{}, false},
		{"bad pattern", Config{Root: ".", Include: []string{"[a"}}, false},
		{"ok", Config{Root: ".", Include: []string{"**/*.md"}, Exclude: []string{"tmp/**"}}, true},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestMatcher(t *testing.T) {
	m := matcher{include: []string{"**/*.md"}, exclude: []string{"drafts/**"}}
	require.True(t, m.match("a.md"))
	require.True(t, m.match("docs/x/b.md"))
	require.False(t, m.match("docs/b.txt"))
	require.False(t, m.match("drafts/c.md"))
	require.True(t, matcher{}.match("anything"))
}

func TestNewRequiresEnqueuer(t *testing.T) {
	if _, err := New(Config{Root: t.TempDir()}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestInitialWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"))
	writeFile(t, filepath.Join(root, "docs", "b.md"))
	writeFile(t, filepath.Join(root, "docs", "c.txt"))
	writeFile(t, filepath.Join(root, "drafts", "d.md"))

	rec := &recorder{}
	w := start(t, Config{
		Root:     root,
		Include:  []string{"**/*.md"},
		Exclude:  []string{"drafts/**"},
		Debounce: 10 * time.Millisecond,
	}, rec)

	require.Eventually(t, func() bool { return w.Emitted() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.ElementsMatch(t, []string{"a.md", "docs/b.md"}, rec.ids())
	require.True(t, rec.find("a.md", model.ActionAdd))
}

func TestSkipInitial(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"))
	rec := &recorder{}
	w := start(t, Config{Root: root, SkipInitial: true, Debounce: 10 * time.Millisecond}, rec)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, w.Emitted())
}

func TestWatchChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.md"))
	writeFile(t, filepath.Join(root, "old.md"))

	rec := &recorder{}
	w := start(t, Config{Root: root, Include: []string{"**/*.md"}, Debounce: 10 * time.Millisecond}, rec)
	require.Eventually(t, func() bool { return w.Emitted() == 2 }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(root, "new.md"))
	require.Eventually(t, func() bool { return rec.find("new.md", model.ActionAdd) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "old.md")))
	require.Eventually(t, func() bool { return rec.find("old.md", model.ActionDelete) }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(root, "ignored.txt"))
	time.Sleep(50 * time.Millisecond)
	require.NotContains(t, rec.ids(), "ignored.txt")
}

func TestNewDirectoryAndRemovedTree(t *testing.T) {
	root := t.TempDir()
	rec := &recorder{}
	start(t, Config{Root: root, Debounce: 10 * time.Millisecond}, rec)

	sub := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(sub, "one.txt"))
	require.Eventually(t, func() bool { return rec.find("sub/one.txt", model.ActionAdd) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.RemoveAll(sub))
	require.Eventually(t, func() bool { return rec.find("sub/one.txt", model.ActionDelete) }, 2*time.Second, 10*time.Millisecond)
}
