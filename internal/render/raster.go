package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/rand/v2"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/starford/mintforge/internal/models"
)

// Background configures the optional fill drawn before the first layer.
type Background struct {
	Generate bool
	// Static uses Default instead of a random pastel hue.
	Static     bool
	Default    color.RGBA
	Brightness float64
}

// Text switches the backend to drawing "<trait><spacer><element>" lines
// instead of artwork.
type Text struct {
	Only   bool
	Color  color.RGBA
	XGap   int
	YGap   int
	Spacer string
}

// RasterOptions configures a Raster backend.
type RasterOptions struct {
	Smoothing  bool
	Background Background
	Text       Text
	// Random returns values in [0, 1); defaults to math/rand/v2.Float64.
	Random func() float64
}

// Raster composites decoded artwork files in memory. Decoded sources are
// cached by path for the lifetime of the backend.
type Raster struct {
	opts  RasterOptions
	cache map[string]image.Image
}

// NewRaster creates a raster backend with an empty cache.
func NewRaster(opts RasterOptions) *Raster {
	if opts.Random == nil {
		opts.Random = rand.Float64
	}
	return &Raster{opts: opts, cache: make(map[string]image.Image)}
}

// RasterFactory returns a BackendFactory producing independent Raster
// backends, one cache per worker.
func RasterFactory(opts RasterOptions) BackendFactory {
	return func() Backend { return NewRaster(opts) }
}

// CacheLen returns the number of decoded sources held.
func (r *Raster) CacheLen() int { return len(r.cache) }

// Composite implements Backend.
func (r *Raster) Composite(ctx context.Context, canvas Canvas, layers []ResolvedLayer, onFrame FrameFunc) (*image.RGBA, error) {
	dst := image.NewRGBA(canvas.Rect())
	if r.opts.Background.Generate {
		r.fillBackground(dst)
	}

	for i, l := range layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r.opts.Text.Only {
			r.drawText(dst, i, l)
		} else {
			src, err := r.load(l.Element.Path)
			if err != nil {
				return nil, err
			}
			Blend(dst, r.fit(src, canvas), l.Blend, l.Opacity)
		}
		if onFrame != nil {
			if err := onFrame(dst); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

func (r *Raster) load(path string) (image.Image, error) {
	if img, ok := r.cache[path]; ok {
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("render: open %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("render: decode %s: %w", path, err)
	}
	r.cache[path] = img
	return img, nil
}

// fit scales src to the canvas when their sizes differ.
func (r *Raster) fit(src image.Image, canvas Canvas) image.Image {
	b := src.Bounds()
	if b.Dx() == canvas.Width && b.Dy() == canvas.Height && b.Min == (image.Point{}) {
		return src
	}
	scaled := image.NewRGBA(canvas.Rect())
	var s draw.Scaler = draw.NearestNeighbor
	if r.opts.Smoothing {
		s = draw.CatmullRom
	}
	s.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)
	return scaled
}

func (r *Raster) fillBackground(dst *image.RGBA) {
	c := r.opts.Background.Default
	if !r.opts.Background.Static {
		c = hslToRGBA(r.opts.Random()*360, 1, r.opts.Background.Brightness)
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (r *Raster) drawText(dst *image.RGBA, index int, l ResolvedLayer) {
	t := r.opts.Text
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(t.Color),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(t.XGap, t.YGap*(index+1)),
	}
	d.DrawString(l.Trait + t.Spacer + l.Element.Name)
}

// Blend draws src over dst with the given blend mode and opacity.
func Blend(dst *image.RGBA, src image.Image, mode string, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	b := dst.Bounds()

	switch mode {
	case "", models.BlendSourceOver, models.BlendCopy:
		op := draw.Over
		if mode == models.BlendCopy {
			op = draw.Src
		}
		if opacity >= 1 {
			draw.Draw(dst, b, src, b.Min, op)
			return
		}
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
		draw.DrawMask(dst, b, src, b.Min, mask, image.Point{}, op)
		return
	}

	fn := separable(mode)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sr, sg, sb, sa := src.At(x, y).RGBA()
			if sa == 0 {
				continue
			}
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+4 : i+4]

			as := float64(sa) / 0xffff * opacity
			ab := float64(px[3]) / 0xff
			cs := [3]float64{float64(sr) / 0xffff * opacity, float64(sg) / 0xffff * opacity, float64(sb) / 0xffff * opacity}
			ao := as + ab*(1-as)
			for c := 0; c < 3; c++ {
				cb := float64(px[c]) / 0xff
				var mixed float64
				if as > 0 && ab > 0 {
					mixed = as * ab * fn(cb/ab, cs[c]/as)
				}
				co := cs[c]*(1-ab) + cb*(1-as) + mixed
				px[c] = clamp8(co)
			}
			px[3] = clamp8(ao)
		}
	}
}

// separable returns the W3C separable blend function for mode, operating on
// non-premultiplied backdrop and source channels.
func separable(mode string) func(cb, cs float64) float64 {
	switch mode {
	case models.BlendMultiply:
		return func(cb, cs float64) float64 { return cb * cs }
	case models.BlendScreen:
		return func(cb, cs float64) float64 { return cb + cs - cb*cs }
	case models.BlendDarken:
		return math.Min
	case models.BlendLighten:
		return math.Max
	default:
		return func(_, cs float64) float64 { return cs }
	}
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xff
	}
	return uint8(math.Round(v * 0xff))
}

// hslToRGBA converts h in degrees and s, l in [0, 1].
func hslToRGBA(h, s, l float64) color.RGBA {
	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := l - c/2
	return color.RGBA{R: clamp8(r + m), G: clamp8(g + m), B: clamp8(b + m), A: 0xff}
}
