// Package sequencer commits rendered editions in ascending edition order.
//
// Results arrive in completion order. A single loop owns the pending buffer
// and the cursor; every arrival on the results channel wakes it, and it then
// commits as many consecutive editions as are buffered. Image and animation
// files are written on arrival, so the buffer only ever holds records.
package sequencer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/mintforge/internal/metadata"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/storage"
)

// Output layout below the build root.
const (
	ImagesDir    = "images"
	JSONDir      = "json"
	GIFsDir      = "gifs"
	ManifestPath = JSONDir + "/_metadata.json"
)

// ImagePath returns the relative image path of an edition.
func ImagePath(edition int) string { return fmt.Sprintf("%s/%d.png", ImagesDir, edition) }

// RecordPath returns the relative metadata path of an edition.
func RecordPath(edition int) string { return fmt.Sprintf("%s/%d.json", JSONDir, edition) }

// GIFPath returns the relative animation path of an edition.
func GIFPath(edition int) string { return fmt.Sprintf("%s/%d.gif", GIFsDir, edition) }

// Options configures a Sequencer.
type Options struct {
	Store   storage.Provider
	Builder *metadata.Builder
	// First is the first edition index; Count editions are expected.
	First  int
	Count  int
	Logger *slog.Logger
	// OnCommit, when set, is called after each edition is durably written.
	OnCommit func(rec *metadata.Record)
}

// Sequencer writes per-edition files and the manifest stream.
type Sequencer struct {
	opts Options
	log  *slog.Logger
}

// New creates a sequencer.
func New(opts Options) *Sequencer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Sequencer{opts: opts, log: opts.Logger}
}

// Run consumes results until the channel is closed. It fails on the first
// errored result, on an I/O error, on an edition outside the expected range
// and when the channel closes before every edition was committed. The
// manifest only appears once the whole range is committed.
func (s *Sequencer) Run(ctx context.Context, results <-chan *models.EditionResult) error {
	out, err := s.opts.Store.Create(ManifestPath)
	if err != nil {
		return fmt.Errorf("sequencer: open manifest: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = storage.Discard(out)
		}
	}()

	m := &manifest{w: bufio.NewWriter(out)}
	if err := m.open(); err != nil {
		return err
	}

	first, end := s.opts.First, s.opts.First+s.opts.Count
	cursor := first
	pending := make(map[int]*metadata.Record)

	for {
		var (
			res *models.EditionResult
			ok  bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok = <-results:
		}

		if !ok {
			if cursor != end {
				return fmt.Errorf("sequencer: results closed after %d of %d editions (waiting for edition %d)",
					cursor-first, s.opts.Count, cursor)
			}
			if err := m.close(); err != nil {
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("sequencer: publish manifest: %w", err)
			}
			published = true
			s.log.Info("manifest written", slog.String("path", ManifestPath), slog.Int("editions", s.opts.Count))
			return nil
		}

		if res.Err != nil {
			return fmt.Errorf("sequencer: edition %d: %w", res.Edition, res.Err)
		}
		if res.Edition < cursor || res.Edition >= end {
			return fmt.Errorf("sequencer: edition %d outside pending range [%d, %d)", res.Edition, cursor, end)
		}
		if _, dup := pending[res.Edition]; dup {
			return fmt.Errorf("sequencer: edition %d delivered twice", res.Edition)
		}
		if err := s.writeAssets(res); err != nil {
			return err
		}
		pending[res.Edition] = s.opts.Builder.Build(res)

		for {
			next, ready := pending[cursor]
			if !ready {
				break
			}
			delete(pending, cursor)
			if err := s.commit(m, next); err != nil {
				return err
			}
			cursor++
		}
	}
}

func (s *Sequencer) writeAssets(res *models.EditionResult) error {
	store := s.opts.Store
	if err := store.Write(ImagePath(res.Edition), res.Image); err != nil {
		return fmt.Errorf("sequencer: edition %d: %w", res.Edition, err)
	}
	if res.GIF != nil {
		if err := store.Write(GIFPath(res.Edition), res.GIF); err != nil {
			return fmt.Errorf("sequencer: edition %d: %w", res.Edition, err)
		}
	}
	return nil
}

func (s *Sequencer) commit(m *manifest, rec *metadata.Record) error {
	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("sequencer: edition %d: marshal: %w", rec.Edition, err)
	}
	if err := s.opts.Store.Write(RecordPath(rec.Edition), doc); err != nil {
		return fmt.Errorf("sequencer: edition %d: %w", rec.Edition, err)
	}
	if err := m.append(rec); err != nil {
		return err
	}

	s.log.Info("edition committed", slog.Int("edition", rec.Edition), slog.String("dna", rec.DNA))
	if s.opts.OnCommit != nil {
		s.opts.OnCommit(rec)
	}
	return nil
}

// manifest streams a JSON array one element at a time.
type manifest struct {
	w     *bufio.Writer
	count int
}

func (m *manifest) open() error {
	if _, err := m.w.WriteString("["); err != nil {
		return fmt.Errorf("sequencer: write manifest: %w", err)
	}
	return nil
}

func (m *manifest) append(rec *metadata.Record) error {
	doc, err := json.MarshalIndent(rec, "  ", "  ")
	if err != nil {
		return fmt.Errorf("sequencer: marshal manifest element: %w", err)
	}
	sep := ",\n  "
	if m.count == 0 {
		sep = "\n  "
	}
	if _, err := m.w.WriteString(sep); err != nil {
		return fmt.Errorf("sequencer: write manifest: %w", err)
	}
	if _, err := m.w.Write(doc); err != nil {
		return fmt.Errorf("sequencer: write manifest: %w", err)
	}
	m.count++
	return nil
}

func (m *manifest) close() error {
	if _, err := m.w.WriteString("\n]\n"); err != nil {
		return fmt.Errorf("sequencer: write manifest: %w", err)
	}
	if err := m.w.Flush(); err != nil {
		return fmt.Errorf("sequencer: flush manifest: %w", err)
	}
	return nil
}
