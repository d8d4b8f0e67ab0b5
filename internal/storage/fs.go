package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const tmpPattern = ".mintforge-tmp-*"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// OpenOrCreate is NewFS that first creates root if it is missing.
func OpenOrCreate(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	return NewFS(root)
}

// Root returns the absolute root directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// List returns the direct children of dir sorted by name.
func (f *FS) List(dir string) ([]Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	out := make([]Entry, 0, len(des))
	for _, d := range des {
		out = append(out, Entry{
			Name:  d.Name(),
			Path:  filepath.Join(base, d.Name()),
			IsDir: d.IsDir(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	w, err := f.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.Write(content); err != nil {
		_ = Discard(w)
		return fmt.Errorf("storage: write temp: %w", err)
	}
	return w.Close()
}

// Create returns a writer backed by a temp file in the target directory. Close
// fsyncs and renames it into place.
func (f *FS) Create(path string) (io.WriteCloser, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	if abs == f.root {
		return nil, fmt.Errorf("storage: cannot write to root")
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return nil, fmt.Errorf("storage: create temp: %w", err)
	}
	return &atomicFile{File: tmp, target: abs}, nil
}

// Delete removes a file.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Reset removes everything below root and recreates dirs.
func (f *FS) Reset(dirs ...string) error {
	des, err := os.ReadDir(f.root)
	if err != nil {
		return fmt.Errorf("storage: reset: %w", err)
	}
	for _, d := range des {
		if err := os.RemoveAll(filepath.Join(f.root, d.Name())); err != nil {
			return fmt.Errorf("storage: reset %s: %w", d.Name(), err)
		}
	}
	for _, dir := range dirs {
		abs, err := f.safePath(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return fmt.Errorf("storage: mkdir %s: %w", dir, err)
		}
	}
	return nil
}

type atomicFile struct {
	*os.File
	target string
	done   bool
}

func (a *atomicFile) Close() error {
	if a.done {
		return errors.New("storage: already closed")
	}
	a.done = true

	success := false
	defer func() {
		if !success {
			_ = a.File.Close()
			_ = os.Remove(a.File.Name())
		}
	}()

	if err := a.File.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := a.File.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(a.File.Name(), a.target); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Abort drops the temp file without publishing it.
func (a *atomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	_ = a.File.Close()
	return os.Remove(a.File.Name())
}
