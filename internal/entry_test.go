package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/sequencer"
	"github.com/starford/mintforge/internal/storage"
	"github.com/starford/mintforge/internal/testutil"
)

func runConfig(t *testing.T, target int) *Config {
	t.Helper()
	layersDir, _ := testutil.Layers(t, 8, map[string][]string{
		"Background": {"Blue.png", "Red#2.png"},
		"Eyes":       {"Round.png", "Sleepy@Gold.png", "None.png"},
	})
	cfg := NewDefaultConfig()
	cfg.Paths.LayersDir = layersDir
	cfg.Paths.BuildDir = filepath.Join(t.TempDir(), "build")
	cfg.Format.Width, cfg.Format.Height = 8, 8
	cfg.Generation.Workers = 2
	cfg.Generation.Seed = 7
	cfg.GIF.Export = true
	cfg.LayerConfigurations = []models.GroupSpec{{
		GrowEditionSizeTo: target,
		LayersOrder:       []models.LayerSpec{{Name: "Background"}, {Name: "Eyes"}},
	}}
	return cfg
}

func quietLogger() Option {
	return WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRun_GeneratesBuildTree(t *testing.T) {
	cfg := runConfig(t, 4)
	var progress bytes.Buffer
	if err := Run(context.Background(), WithConfig(cfg), quietLogger(), WithOutput(&progress)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "Created edition 1 of 4: #1, dna ") ||
		!strings.HasPrefix(lines[3], "Created edition 4 of 4: #4, dna ") {
		t.Errorf("unexpected progress:\n%s", progress.String())
	}
	build, err := storage.NewFS(cfg.Paths.BuildDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{sequencer.ManifestPath, sequencer.ImagePath(1), sequencer.RecordPath(4), sequencer.GIFPath(2)} {
		if _, err := build.Read(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	if _, err := build.Read(sequencer.ImagePath(0)); err == nil {
		t.Error("eth editions start at 1")
	}

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	if err := Rarity(context.Background(), WithConfig(cfg), quietLogger(), WithOutput(&out)); err != nil {
		t.Fatalf("Rarity: %v", err)
	}
	if !strings.Contains(out.String(), "4 editions") || !strings.Contains(out.String(), "Background") {
		t.Errorf("unexpected report:\n%s", out.String())
	}
}

func TestRun_ExhaustedCatalog(t *testing.T) {
	cfg := runConfig(t, 7)
	cfg.Generation.UniqueDNATolerance = 200
	err := Run(context.Background(), WithConfig(cfg), quietLogger())
	var ex *apperr.ExhaustedError
	if !errors.As(err, &ex) || ex.Group != 0 || ex.Produced != 6 {
		t.Fatalf("expected exhaustion after 6 editions, got %v", err)
	}
}

func TestRun_MissingLayerDir(t *testing.T) {
	cfg := runConfig(t, 2)
	cfg.LayerConfigurations[0].LayersOrder = append(cfg.LayerConfigurations[0].LayersOrder, models.LayerSpec{Name: "Hat"})
	err := Run(context.Background(), WithConfig(cfg), quietLogger())
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
