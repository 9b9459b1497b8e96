package bookmarks

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestAddAndGetIgnoresCase(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Add("Movies", "Home", "http://nas/media/Movies/"); err != nil {
		t.Fatalf("add error: %v", err)
	}

	b, ok := m.Get("movies")
	if !ok || b.URL != "http://nas/media/Movies/" || b.Server != "Home" {
		t.Fatalf("unexpected bookmark: %+v ok=%v", b, ok)
	}

	if _, err := m.Add("MOVIES", "Home", "http://nas/other/"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := m.Add("", "Home", "http://nas/"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestListMostRecentFirstAndPersist(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"one", "two", "three"} {
		if _, err := m.Add(name, "Home", "http://nas/"+name+"/"); err != nil {
			t.Fatalf("add error: %v", err)
		}
	}

	list := m.List()
	if len(list) != 3 || list[0].Name != "three" || list[2].Name != "one" {
		t.Fatalf("unexpected order: %+v", list)
	}

	reloaded := NewManager(m.Path(), quietLogger())
	if got := reloaded.List(); len(got) != 3 || got[0].Name != "three" {
		t.Fatalf("bookmarks not persisted: %+v", got)
	}
}

func TestRemoveAndIsBookmarked(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Add("Shows", "Home", "http://nas/shows/"); err != nil {
		t.Fatalf("add error: %v", err)
	}

	if name, ok := m.IsBookmarked("http://nas/shows/"); !ok || name != "Shows" {
		t.Fatalf("expected bookmarked url, got %q %v", name, ok)
	}
	if err := m.Remove("SHOWS"); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if _, ok := m.IsBookmarked("http://nas/shows/"); ok {
		t.Fatalf("url still bookmarked after remove")
	}
	if err := m.Remove("Shows"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"a", "b"} {
		if _, err := m.Add(name, "Home", "http://nas/"+name+"/"); err != nil {
			t.Fatalf("add error: %v", err)
		}
	}

	if _, err := m.Update("a", "B", ""); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	updated, err := m.Update("a", "A", "http://nas/new/")
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Name != "A" || updated.URL != "http://nas/new/" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if m.List()[0].Name != "A" {
		t.Fatalf("updated bookmark should move to the front")
	}
	if _, err := m.Update("missing", "x", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestByServerAndClear(t *testing.T) {
	m := newTestManager(t)
	_, _ = m.Add("a", "Home", "http://nas/a/")
	_, _ = m.Add("b", "Work", "http://work/b/")
	_, _ = m.Add("c", "Home", "http://nas/c/")

	if got := m.ByServer("Home"); len(got) != 2 || got[0].Name != "a" {
		t.Fatalf("unexpected server bookmarks: %+v", got)
	}

	removed, err := m.Clear()
	if err != nil || removed != 3 {
		t.Fatalf("clear: removed=%d err=%v", removed, err)
	}
	if len(m.List()) != 0 {
		t.Fatalf("bookmarks remain after clear")
	}
}

func TestExportImport(t *testing.T) {
	src := newTestManager(t)
	_, _ = src.Add("a", "Home", "http://nas/a/")
	_, _ = src.Add("b", "Home", "http://nas/b/")

	exportPath := filepath.Join(t.TempDir(), "export.yaml")
	if err := src.Export(exportPath); err != nil {
		t.Fatalf("export error: %v", err)
	}

	dst := newTestManager(t)
	_, _ = dst.Add("A", "Other", "http://other/a/")

	added, err := dst.Import(exportPath, true)
	if err != nil || added != 1 {
		t.Fatalf("merge import: added=%d err=%v", added, err)
	}
	if b, _ := dst.Get("a"); b.Server != "Other" {
		t.Fatalf("merge must keep existing bookmark, got %+v", b)
	}

	replaced, err := dst.Import(exportPath, false)
	if err != nil || replaced != 2 {
		t.Fatalf("replace import: n=%d err=%v", replaced, err)
	}
	if b, _ := dst.Get("a"); b.Server != "Home" {
		t.Fatalf("replace should overwrite bookmarks, got %+v", b)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
	m := NewManager(path, quietLogger())
	if len(m.List()) != 0 {
		t.Fatalf("corrupt file should load as empty")
	}
	if _, err := m.Add("a", "Home", "http://nas/a/"); err != nil {
		t.Fatalf("add after corrupt load: %v", err)
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(filepath.Join(t.TempDir(), "bookmarks.yaml"), quietLogger())
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return m
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
