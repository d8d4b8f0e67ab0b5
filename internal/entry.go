// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/catalog"
	"github.com/starford/mintforge/internal/dna"
	"github.com/starford/mintforge/internal/generator"
	"github.com/starford/mintforge/internal/metadata"
	"github.com/starford/mintforge/internal/rarity"
	"github.com/starford/mintforge/internal/render"
	"github.com/starford/mintforge/internal/sequencer"
	"github.com/starford/mintforge/internal/storage"
	"github.com/starford/mintforge/internal/watch"
)

// Run generates the whole collection described by the configuration.
func Run(ctx context.Context, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	return app.generate(ctx)
}

// Rarity prints the rarity report of the last generated collection.
func Rarity(ctx context.Context, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	return app.rarity(ctx)
}

// Watch generates the collection and regenerates it whenever the layer tree
// changes, until ctx is cancelled.
func Watch(ctx context.Context, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := app.generate(ctx); err != nil {
		app.logger.Error("Generation failed", slog.String("error", err.Error()))
	}
	return watch.Watch(ctx, app.config.Paths.LayersDir, watch.DefaultDebounce, app.logger, app.generate)
}

func newApplication(opts []Option) (*application, func(), error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, nil, err
	}

	cfg := app.config
	cleanup := func() {}

	if app.logger == nil {
		var out io.Writer = os.Stdout
		if cfg.App.LogFile != "" {
			rotated := &lumberjack.Logger{
				Filename:   cfg.App.LogFile,
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     28,
			}
			out = io.MultiWriter(os.Stdout, rotated)
			cleanup = func() { _ = rotated.Close() }
		}
		// Initialize structured JSON logger.
		app.logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(app.logger)
	}
	if app.out == nil {
		app.out = os.Stdout
	}
	if app.backend == nil {
		rasterOpts, err := cfg.rasterOptions()
		if err != nil {
			return nil, nil, err
		}
		app.backend = render.RasterFactory(rasterOpts)
	}

	app.logger.Info("Configuration loaded",
		slog.String("layers_dir", cfg.Paths.LayersDir),
		slog.String("build_dir", cfg.Paths.BuildDir),
		slog.String("network", cfg.Metadata.Network),
		slog.Int("editions", cfg.TotalEditions()),
		slog.Int("workers", cfg.Generation.Workers),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return app, cleanup, nil
}

func (a *application) loadGroups() ([]*catalog.Group, error) {
	cfg := a.config
	layers, err := storage.NewFS(cfg.Paths.LayersDir)
	if err != nil {
		return nil, &apperr.ConfigError{Op: "layers_dir", Err: err}
	}
	loader := catalog.NewLoader(layers, catalog.Delimiters{
		Rarity: cfg.Generation.RarityDelimiter,
		Color:  cfg.Generation.ColorDelimiter,
	})
	return loader.LoadAll(cfg.LayerConfigurations)
}

func (a *application) generate(ctx context.Context) error {
	cfg := a.config
	logger := a.logger.With(slog.String("run_id", uuid.New().String()))
	started := time.Now()

	groups, err := a.loadGroups()
	if err != nil {
		return err
	}

	build, err := storage.OpenOrCreate(cfg.Paths.BuildDir)
	if err != nil {
		return fmt.Errorf("init build dir: %w", err)
	}
	dirs := []string{sequencer.ImagesDir, sequencer.JSONDir}
	if cfg.GIF.Export {
		dirs = append(dirs, sequencer.GIFsDir)
	}
	if err := build.Reset(dirs...); err != nil {
		return fmt.Errorf("reset build dir: %w", err)
	}

	total, committed := groups[len(groups)-1].Target, 0
	gen := generator.New(generator.Options{
		Groups:    groups,
		Tolerance: cfg.Generation.UniqueDNATolerance,
		Shuffle:   cfg.Generation.Shuffle,
		First:     metadata.FirstEdition(cfg.Metadata.Network),
		Sampler:   dna.NewSampler(cfg.Generation.Seed),
		Workers:   cfg.Generation.Workers,
		Factory:   a.backend,
		Render: render.Options{
			Canvas: render.Canvas{Width: cfg.Format.Width, Height: cfg.Format.Height},
			GIF: render.GIFOptions{
				Export: cfg.GIF.Export,
				Repeat: cfg.GIF.Repeat,
				Delay:  cfg.GIF.Delay,
			},
			Onchain: cfg.Format.Onchain,
		},
		Store:   build,
		Builder: cfg.Metadata.builder(),
		Logger:  logger,
		OnCommit: func(rec *metadata.Record) {
			committed++
			fmt.Fprintf(a.out, "Created edition %d of %d: #%d, dna %s\n", committed, total, rec.Edition, rec.DNA)
		},
	})

	logger.Info("Generation started", slog.Int("editions", gen.Total()), slog.Int("groups", len(groups)))

	sum, err := gen.Run(ctx)
	if err != nil {
		var ex *apperr.ExhaustedError
		if errors.As(err, &ex) {
			logger.Error("Generation exhausted",
				slog.Int("group", ex.Group),
				slog.Int("target", ex.Target),
				slog.Int("produced", ex.Produced))
		}
		return err
	}

	logger.Info("Generation finished",
		slog.Int("editions", sum.Editions),
		slog.Int("collisions", sum.Collisions),
		slog.Int("rejections", sum.Rejections),
		slog.Int64("restarts", sum.Restarts),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

func (a *application) rarity(_ context.Context) error {
	build, err := storage.NewFS(a.config.Paths.BuildDir)
	if err != nil {
		return fmt.Errorf("open build dir: %w", err)
	}
	docs, err := rarity.Load(build)
	if err != nil {
		return err
	}
	groups, err := a.loadGroups()
	if err != nil {
		a.logger.Warn("Layer catalog unavailable, reporting manifest values only", slog.String("error", err.Error()))
		groups = nil
	}
	return rarity.Build(docs, groups).Write(a.out)
}

func (c *MetadataConfig) builder() *metadata.Builder {
	return &metadata.Builder{
		Network:     c.Network,
		NamePrefix:  c.NamePrefix,
		Description: c.Description,
		BaseURI:     c.BaseURI,
		Extra:       c.Extra,
		Solana:      c.Solana,
	}
}

func (c *Config) rasterOptions() (render.RasterOptions, error) {
	textColor, err := parseHexColor(c.Text.Color)
	if err != nil {
		return render.RasterOptions{}, &apperr.ConfigError{Op: "text.color", Err: err}
	}
	bg, err := parseHexColor(c.Background.Default)
	if err != nil {
		return render.RasterOptions{}, &apperr.ConfigError{Op: "background.default", Err: err}
	}
	return render.RasterOptions{
		Smoothing: c.Format.Smoothing,
		Background: render.Background{
			Generate:   c.Background.Generate,
			Static:     c.Background.Static,
			Default:    bg,
			Brightness: c.Background.Brightness,
		},
		Text: render.Text{
			Only:   c.Text.Only,
			Color:  textColor,
			XGap:   c.Text.XGap,
			YGap:   c.Text.YGap,
			Spacer: c.Text.Spacer,
		},
	}, nil
}

// parseHexColor accepts #rgb, #rrggbb and #rrggbbaa. An empty string is
// opaque black.
func parseHexColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{A: 0xff}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
