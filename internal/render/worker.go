package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/starford/mintforge/internal/models"
)

// GIFOptions controls the per-edition animated export.
type GIFOptions struct {
	Export bool
	Repeat int
	// Delay between frames in milliseconds.
	Delay int
}

// Options configures a Worker.
type Options struct {
	Canvas  Canvas
	GIF     GIFOptions
	Onchain bool
}

// Worker renders editions with its own Backend.
type Worker struct {
	backend Backend
	opts    Options
}

// NewWorker creates a worker bound to backend.
func NewWorker(backend Backend, opts Options) *Worker {
	return &Worker{backend: backend, opts: opts}
}

// Render resolves the task's DNA, composites it and returns the encoded
// image together with the edition's attributes.
func (w *Worker) Render(ctx context.Context, task *models.EditionTask) (*models.EditionResult, error) {
	resolved, err := Resolve(task.Layers, task.DNA)
	if err != nil {
		return nil, fmt.Errorf("render: edition %d: %w", task.Edition, err)
	}

	var anim *gif.GIF
	var onFrame FrameFunc
	if w.opts.GIF.Export {
		anim = &gif.GIF{LoopCount: w.opts.GIF.Repeat}
		delay := w.opts.GIF.Delay / 10
		onFrame = func(frame *image.RGBA) error {
			anim.Image = append(anim.Image, quantize(frame))
			anim.Delay = append(anim.Delay, delay)
			return nil
		}
	}

	img, err := w.backend.Composite(ctx, w.opts.Canvas, resolved, onFrame)
	if err != nil {
		return nil, fmt.Errorf("render: edition %d: %w", task.Edition, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: edition %d: encode png: %w", task.Edition, err)
	}

	res := &models.EditionResult{
		Edition:    task.Edition,
		Group:      task.Group,
		DNA:        task.DNA,
		Attributes: Attributes(task.Layers, task.DNA),
		Image:      buf.Bytes(),
	}

	if anim != nil && len(anim.Image) > 0 {
		var gbuf bytes.Buffer
		if err := gif.EncodeAll(&gbuf, anim); err != nil {
			return nil, fmt.Errorf("render: edition %d: encode gif: %w", task.Edition, err)
		}
		res.GIF = gbuf.Bytes()
	}

	if w.opts.Onchain {
		res.InlineData = "data:image/png;base64," + base64.StdEncoding.EncodeToString(res.Image)
	}
	return res, nil
}

// Resolve maps every selection of d to its element and layer options.
func Resolve(layers []models.LayerDefinition, d models.DNA) ([]ResolvedLayer, error) {
	if len(d) != len(layers) {
		return nil, fmt.Errorf("dna has %d selections for %d layers", len(d), len(layers))
	}
	out := make([]ResolvedLayer, len(d))
	for i, s := range d {
		l := &layers[i]
		el, ok := l.Element(s.ElementID)
		if !ok {
			return nil, fmt.Errorf("layer %q has no element id %d", l.Name, s.ElementID)
		}
		out[i] = ResolvedLayer{
			Trait:   l.TraitType(),
			Blend:   l.Blend,
			Opacity: l.Opacity,
			Element: el,
		}
	}
	return out, nil
}

// Attributes derives the trait list of an edition: one attribute per layer
// whose element is not "None", plus one for the element's color tag.
func Attributes(layers []models.LayerDefinition, d models.DNA) []models.Attribute {
	attrs := make([]models.Attribute, 0, len(d))
	for i, s := range d {
		if i >= len(layers) {
			break
		}
		l := &layers[i]
		el, ok := l.Element(s.ElementID)
		if !ok || el.IsNone() {
			continue
		}
		attrs = append(attrs, models.Attribute{TraitType: l.TraitType(), Value: el.Name})
		if el.Color != "" {
			attrs = append(attrs, models.Attribute{TraitType: l.ColorTraitType(), Value: el.Color})
		}
	}
	return attrs
}

func quantize(frame *image.RGBA) *image.Paletted {
	p := image.NewPaletted(frame.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(p, frame.Bounds(), frame, frame.Bounds().Min)
	return p
}
