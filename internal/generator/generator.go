// Package generator runs one generation pass: it samples DNA per
// configuration group, filters it through the compatibility rules and the
// uniqueness registry, dispatches accepted editions to the worker pool and
// waits for the sequencer to commit them.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/starford/mintforge/internal/catalog"
	"github.com/starford/mintforge/internal/compat"
	"github.com/starford/mintforge/internal/dispatch"
	"github.com/starford/mintforge/internal/dna"
	"github.com/starford/mintforge/internal/metadata"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/registry"
	"github.com/starford/mintforge/internal/render"
	"github.com/starford/mintforge/internal/sequencer"
	"github.com/starford/mintforge/internal/storage"
)

// Options configures a generation run.
type Options struct {
	Groups []*catalog.Group
	// Tolerance is the number of consecutive collisions or rejections
	// allowed per group.
	Tolerance int
	// Shuffle assigns edition indices in random order.
	Shuffle bool
	// First is the first edition index.
	First   int
	Sampler *dna.Sampler

	Workers     int
	MaxAttempts int
	Factory     render.BackendFactory
	Render      render.Options

	Store    storage.Provider
	Builder  *metadata.Builder
	Logger   *slog.Logger
	OnCommit func(rec *metadata.Record)
}

// Summary reports what a run produced.
type Summary struct {
	Editions   int
	Collisions int
	Rejections int
	Restarts   int64
}

// Generator holds the state of one run. A Generator is single-use.
type Generator struct {
	opts     Options
	log      *slog.Logger
	registry *registry.Registry
	summary  Summary
}

// New creates a generator for one run.
func New(opts Options) *Generator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sampler == nil {
		opts.Sampler = dna.NewSampler(0)
	}
	return &Generator{
		opts:     opts,
		log:      opts.Logger,
		registry: registry.New(),
	}
}

// Total is the number of editions the run produces.
func (g *Generator) Total() int {
	if len(g.opts.Groups) == 0 {
		return 0
	}
	return g.opts.Groups[len(g.opts.Groups)-1].Target
}

// Run generates every edition. It returns an *apperr.ExhaustedError when a
// group cannot supply enough distinct, compatible DNA.
func (g *Generator) Run(ctx context.Context) (*Summary, error) {
	total := g.Total()
	if total <= 0 {
		return nil, errors.New("generator: no editions requested")
	}

	indices := make([]int, total)
	for i := range indices {
		indices[i] = g.opts.First + i
	}
	if g.opts.Shuffle {
		g.opts.Sampler.Shuffle(indices)
	}

	disp := dispatch.New(dispatch.Options{
		Workers:     g.opts.Workers,
		MaxAttempts: g.opts.MaxAttempts,
		Factory:     g.opts.Factory,
		Render:      g.opts.Render,
		Logger:      g.log,
	})
	seq := sequencer.New(sequencer.Options{
		Store:    g.opts.Store,
		Builder:  g.opts.Builder,
		First:    g.opts.First,
		Count:    total,
		Logger:   g.log,
		OnCommit: g.opts.OnCommit,
	})

	eg, gctx := errgroup.WithContext(ctx)
	disp.Start(gctx)

	eg.Go(func() error {
		return seq.Run(gctx, disp.Results())
	})
	eg.Go(func() error {
		if err := g.produce(gctx, disp, indices); err != nil {
			return err
		}
		return disp.Close(gctx)
	})

	err := eg.Wait()
	g.summary.Restarts = disp.Restarts()
	if err != nil {
		_ = disp.Close(gctx)
		return &g.summary, err
	}
	return &g.summary, nil
}

func (g *Generator) produce(ctx context.Context, disp *dispatch.Dispatcher, indices []int) error {
	sampler := g.opts.Sampler
	produced := 0

	for _, grp := range g.opts.Groups {
		policy := registry.NewRetryPolicy(g.opts.Tolerance, grp.Index, grp.Target)
		log := g.log.With(slog.Int("group", grp.Index))

		for produced < grp.Target {
			if err := ctx.Err(); err != nil {
				return err
			}
			d := sampler.Draw(grp.Layers)

			if err := grp.Rules.Validate(grp.Layers, d); err != nil {
				if !compat.IsIncompatible(err) {
					return fmt.Errorf("generator: %w", err)
				}
				g.summary.Rejections++
				log.Debug("dna rejected", slog.String("dna", d.String()), slog.String("reason", err.Error()))
				if err := policy.Fail(produced); err != nil {
					return err
				}
				continue
			}
			if !g.registry.IsUnique(d) {
				g.summary.Collisions++
				log.Debug("dna exists", slog.String("dna", d.String()))
				if err := policy.Fail(produced); err != nil {
					return err
				}
				continue
			}

			edition := indices[produced]
			if err := g.registry.Add(d, edition); err != nil {
				return err
			}
			policy.Success()

			task := &models.EditionTask{
				DNA:     d,
				Edition: edition,
				Group:   grp.Index,
				Layers:  grp.Layers,
			}
			if err := disp.Submit(ctx, task); err != nil {
				return err
			}
			produced++
			g.summary.Editions = produced
			log.Debug("edition accepted", slog.Int("edition", edition), slog.String("dna", d.String()))
		}
	}
	return nil
}
