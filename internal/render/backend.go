// Package render is the boundary between the generation pipeline and the
// compositing backends: it resolves DNA into layers, asks a Backend to draw
// them, and packages the pixels and trait attributes of one edition.
package render

import (
	"context"
	"image"

	"github.com/starford/mintforge/internal/models"
)

// Canvas is the size of every rendered edition.
type Canvas struct {
	Width  int
	Height int
}

// Rect returns the canvas bounds.
func (c Canvas) Rect() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// ResolvedLayer is one DNA selection resolved to its element and the
// layer's drawing options.
type ResolvedLayer struct {
	Trait   string
	Blend   string
	Opacity float64
	Element models.Element
}

// FrameFunc observes the canvas after each layer is drawn. The image is
// reused by the backend and must be copied if retained.
type FrameFunc func(frame *image.RGBA) error

// Backend composites resolved layers onto a canvas. A Backend instance is
// owned by one worker and need not be safe for concurrent use.
type Backend interface {
	Composite(ctx context.Context, canvas Canvas, layers []ResolvedLayer, onFrame FrameFunc) (*image.RGBA, error)
}

// BackendFactory creates a fresh Backend for a (re)started worker.
type BackendFactory func() Backend
