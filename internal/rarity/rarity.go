// Package rarity summarizes how often each trait value occurs in a finished
// collection.
package rarity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/starford/mintforge/internal/catalog"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/sequencer"
	"github.com/starford/mintforge/internal/storage"
)

// RareBelow is the percentage under which a value is highlighted as rare.
const RareBelow = 5.0

// Document is the part of a manifest record the report reads.
type Document struct {
	Edition    int                `json:"edition"`
	Attributes []models.Attribute `json:"attributes"`
}

// Load reads the collection manifest from the build store.
func Load(store storage.Provider) ([]Document, error) {
	data, err := store.Read(sequencer.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("rarity: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("rarity: decode manifest: %w", err)
	}
	return docs, nil
}

// Value is one trait value with its share of the collection.
type Value struct {
	Value       string
	Occurrences int
	Percent     float64
}

// Trait lists the values of one trait type.
type Trait struct {
	Trait  string
	Values []Value
}

// Report is the rarity breakdown of a collection.
type Report struct {
	Editions int
	// Combinations is the number of distinct DNA the catalog allows,
	// ignoring incompatibility rules.
	Combinations *big.Int
	Traits       []Trait
}

// Build counts every value the catalog can produce. Values missing from a
// record are counted as "None".
func Build(docs []Document, groups []*catalog.Group) *Report {
	counts := make(map[string]map[string]int)
	for _, d := range docs {
		for _, a := range d.Attributes {
			if counts[a.TraitType] == nil {
				counts[a.TraitType] = make(map[string]int)
			}
			counts[a.TraitType][a.Value]++
		}
	}

	r := &Report{Editions: len(docs), Combinations: new(big.Int)}

	traitIdx := make(map[string]int)
	addValue := func(trait, value string) {
		i, ok := traitIdx[trait]
		if !ok {
			i = len(r.Traits)
			traitIdx[trait] = i
			r.Traits = append(r.Traits, Trait{Trait: trait})
		}
		for _, v := range r.Traits[i].Values {
			if v.Value == value {
				return
			}
		}
		r.Traits[i].Values = append(r.Traits[i].Values, Value{Value: value})
	}

	for _, g := range groups {
		combos := big.NewInt(1)
		for li := range g.Layers {
			l := &g.Layers[li]
			combos.Mul(combos, big.NewInt(int64(dnaCardinality(l))))
			for _, e := range l.Elements {
				if e.IsNone() {
					continue
				}
				addValue(l.TraitType(), e.Name)
				if e.Color != "" {
					addValue(l.ColorTraitType(), e.Color)
				}
			}
		}
		r.Combinations.Add(r.Combinations, combos)
	}

	// Values present in the manifest but no longer in the catalog.
	for _, d := range docs {
		for _, a := range d.Attributes {
			addValue(a.TraitType, a.Value)
		}
	}

	for ti := range r.Traits {
		t := &r.Traits[ti]
		seen := 0
		for vi := range t.Values {
			v := &t.Values[vi]
			v.Occurrences = counts[t.Trait][v.Value]
			seen += v.Occurrences
		}
		if rest := r.Editions - seen; rest > 0 {
			t.Values = append(t.Values, Value{Value: models.NoneElement, Occurrences: rest})
		}
		for vi := range t.Values {
			t.Values[vi].Percent = percent(t.Values[vi].Occurrences, r.Editions)
		}
	}
	return r
}

// dnaCardinality is the number of distinct uniqueness keys a layer
// contributes; bypass layers contribute none.
func dnaCardinality(l *models.LayerDefinition) int {
	if l.BypassDNA || len(l.Elements) == 0 {
		return 1
	}
	return len(l.Elements)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// Write prints the report as one table per trait.
func (r *Report) Write(out io.Writer) error {
	header := color.New(color.FgCyan, color.Bold)
	rare := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	if _, err := header.Fprintf(out, "%d editions", r.Editions); err != nil {
		return err
	}
	if _, err := dim.Fprintf(out, " (%s possible combinations)\n", r.Combinations.String()); err != nil {
		return err
	}

	for _, t := range r.Traits {
		fmt.Fprintln(out)
		if _, err := header.Fprintln(out, t.Trait); err != nil {
			return err
		}
		// Rows are aligned first and colored afterwards so escape codes
		// never count toward a column width.
		var table bytes.Buffer
		tw := tabwriter.NewWriter(&table, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  VALUE\tCOUNT\tPERCENT\t")
		for _, v := range t.Values {
			fmt.Fprintf(tw, "  %s\t%d\t%.2f%%\t\n", v.Value, v.Occurrences, v.Percent)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		lines := strings.Split(strings.TrimSuffix(table.String(), "\n"), "\n")
		for i, line := range lines {
			var err error
			if i > 0 && t.Values[i-1].Percent < RareBelow {
				_, err = rare.Fprintln(out, line)
			} else {
				_, err = fmt.Fprintln(out, line)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
