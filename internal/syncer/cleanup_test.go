package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonesrussell/docwatch/internal/logger"
	"github.com/jonesrussell/docwatch/internal/syncer"
)

// mockWalker implements syncer.CacheWalker for testing.
type mockWalker struct {
	mu           sync.Mutex
	paths        []string
	walkErr      error
	deleted      []string
	deleteErrFor string
	deleteErr    error
}

func (m *mockWalker) Walk(fn func(docpath string) error) error {
	if m.walkErr != nil {
		return m.walkErr
	}
	for _, p := range m.paths {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockWalker) Delete(docpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil && (m.deleteErrFor == "" || m.deleteErrFor == docpath) {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, docpath)

	return nil
}

// mockLister implements syncer.DocpathLister for testing.
type mockLister struct {
	docpaths []string
	err      error
}

func (m *mockLister) ListDocpaths(_ context.Context) ([]string, error) {
	return m.docpaths, m.err
}

func newTestCleaner(t *testing.T, walker *mockWalker, lister *mockLister) *syncer.Cleaner {
	t.Helper()

	return syncer.NewCleaner(walker, lister, logger.NewNop())
}

func TestCleaner_DeletesOrphans(t *testing.T) {
	t.Parallel()

	walker := &mockWalker{paths: []string{
		"custom-documents/a.json",
		"custom-documents/b.json",
		"custom-documents/c.json",
	}}
	lister := &mockLister{docpaths: []string{"custom-documents/b.json"}}
	cleaner := newTestCleaner(t, walker, lister)

	summary, err := cleaner.Run(context.Background(), syncer.CleanupOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := syncer.CleanupSummary{Scanned: 3, Orphaned: 2, Deleted: 2}
	if summary != want {
		t.Errorf("expected summary %+v, got %+v", want, summary)
	}

	walker.mu.Lock()
	defer walker.mu.Unlock()
	if len(walker.deleted) != 2 {
		t.Fatalf("expected 2 deletions, got %v", walker.deleted)
	}
	if walker.deleted[0] != "custom-documents/a.json" || walker.deleted[1] != "custom-documents/c.json" {
		t.Errorf("unexpected deletions: %v", walker.deleted)
	}
}

func TestCleaner_DryRunDeletesNothing(t *testing.T) {
	t.Parallel()

	walker := &mockWalker{paths: []string{
		"custom-documents/a.json",
		"custom-documents/b.json",
	}}
	lister := &mockLister{docpaths: []string{}}
	cleaner := newTestCleaner(t, walker, lister)

	summary, err := cleaner.Run(context.Background(), syncer.CleanupOptions{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := syncer.CleanupSummary{Scanned: 2, Orphaned: 2}
	if summary != want {
		t.Errorf("expected summary %+v, got %+v", want, summary)
	}

	walker.mu.Lock()
	defer walker.mu.Unlock()
	if len(walker.deleted) != 0 {
		t.Errorf("expected no deletions in dry run, got %v", walker.deleted)
	}
}

func TestCleaner_NoOrphans(t *testing.T) {
	t.Parallel()

	walker := &mockWalker{paths: []string{"custom-documents/a.json"}}
	lister := &mockLister{docpaths: []string{"custom-documents/a.json"}}
	cleaner := newTestCleaner(t, walker, lister)

	summary, err := cleaner.Run(context.Background(), syncer.CleanupOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := syncer.CleanupSummary{Scanned: 1}
	if summary != want {
		t.Errorf("expected summary %+v, got %+v", want, summary)
	}
}

func TestCleaner_DeleteFailureCounted(t *testing.T) {
	t.Parallel()

	walker := &mockWalker{
		paths:        []string{"custom-documents/a.json", "custom-documents/b.json"},
		deleteErrFor: "custom-documents/a.json",
		deleteErr:    errors.New("permission denied"),
	}
	lister := &mockLister{docpaths: []string{}}
	cleaner := newTestCleaner(t, walker, lister)

	summary, err := cleaner.Run(context.Background(), syncer.CleanupOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := syncer.CleanupSummary{Scanned: 2, Orphaned: 2, Deleted: 1, Failed: 1}
	if summary != want {
		t.Errorf("expected summary %+v, got %+v", want, summary)
	}
}

func TestCleaner_ListError(t *testing.T) {
	t.Parallel()

	walker := &mockWalker{paths: []string{"custom-documents/a.json"}}
	lister := &mockLister{err: errors.New("connection refused")}
	cleaner := newTestCleaner(t, walker, lister)

	_, err := cleaner.Run(context.Background(), syncer.CleanupOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
