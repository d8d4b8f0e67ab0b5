// Package testutil provides shared test helpers for building layer trees and
// build directories.
package testutil

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mintforge/internal/storage"
)

// Palette is a set of distinct opaque colors used for generated artwork.
var Palette = []color.RGBA{
	{R: 0xe6, G: 0x19, B: 0x4b, A: 0xff},
	{R: 0x3c, G: 0xb4, B: 0x4b, A: 0xff},
	{R: 0x43, G: 0x63, B: 0xd8, A: 0xff},
	{R: 0xff, G: 0xe1, B: 0x19, A: 0xff},
	{R: 0x91, G: 0x1e, B: 0xb4, A: 0xff},
	{R: 0x46, G: 0xf0, B: 0xf0, A: 0xff},
}

// WritePNG writes a size x size PNG filled with c to path.
func WritePNG(t *testing.T, path string, size int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// Layers creates a layer tree under a temp dir: one directory per key, one
// solid-color PNG per filename. It returns the root and a provider for it.
func Layers(t *testing.T, size int, tree map[string][]string) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	for layer, files := range tree {
		if err := os.MkdirAll(filepath.Join(root, layer), 0o755); err != nil {
			t.Fatal(err)
		}
		for i, name := range files {
			WritePNG(t, filepath.Join(root, layer, name), size, Palette[i%len(Palette)])
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// BuildDir creates an empty build directory provider.
func BuildDir(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}
