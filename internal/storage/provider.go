// Package storage defines the file-system abstraction used for the layer tree
// and the build output tree.
package storage

import "io"

// Entry describes one directory entry returned by List.
type Entry struct {
	Name  string // base name
	Path  string // absolute path
	IsDir bool
}

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the direct children of dir (relative to root), sorted by name.
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
	// Create opens a streamed file at path that only becomes visible at
	// path once Close succeeds.
	Create(path string) (io.WriteCloser, error)
	// Delete removes the file at path (relative to root).
	Delete(path string) error
	// Reset empties the root and recreates the given sub-directories.
	Reset(dirs ...string) error
}

// Aborter is implemented by writers returned from Create that can be dropped
// without publishing their content.
type Aborter interface {
	Abort() error
}

// Discard aborts w when it supports it and closes it otherwise.
func Discard(w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}
