package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte(`{"edition":1}`)
	if err := s.Write("json/1.json", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("json/1.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestCreate_VisibleOnlyAfterClose(t *testing.T) {
	s := tempRoot(t)
	w, err := s.Create("json/_metadata.json")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("[\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Read("json/_metadata.json"); err == nil {
		t.Fatal("manifest should not be visible before Close")
	}
	if _, err := w.Write([]byte("]")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := s.Read("json/_metadata.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "[\n]" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, "json", ".mintforge-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestList_SortedDirectChildren(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("Eyes/b.png", []byte("b"))
	_ = s.Write("Eyes/a.png", []byte("a"))
	_ = s.Write("Eyes/deep/c.png", []byte("c"))

	items, err := s.List("Eyes")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	if items[0].Name != "a.png" || items[1].Name != "b.png" || !items[2].IsDir {
		t.Errorf("unexpected order: %+v", items)
	}
	if !filepath.IsAbs(items[0].Path) {
		t.Errorf("path should be absolute: %s", items[0].Path)
	}
}

func TestList_MissingDir(t *testing.T) {
	s := tempRoot(t)
	if _, err := s.List("Nope"); err == nil {
		t.Error("expected error for missing dir")
	}
}

func TestReset(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("images/1.png", []byte("x"))
	_ = s.Write("stale.txt", []byte("x"))
	if err := s.Reset("images", "json", "gifs"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 dirs, got %+v", items)
	}
	if _, err := s.Read("images/1.png"); err == nil {
		t.Error("old image should be gone")
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("del.json", []byte("bye"))
	if err := s.Delete("del.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.json"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)
	for _, p := range []string{"../../etc/passwd", "../outside.json", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestOpenOrCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "build")
	s, err := OpenOrCreate(root)
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	if info, err := os.Stat(s.Root()); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestDiscard_LeavesNothingBehind(t *testing.T) {
	s := tempRoot(t)
	w, err := s.Create("json/_metadata.json")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = w.Write([]byte("["))
	if err := Discard(w); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(s.Root(), "json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty dir, got %d entries", len(entries))
	}
}
