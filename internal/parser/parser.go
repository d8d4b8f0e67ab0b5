// Package parser extracts display name, color tag, and rarity weight from
// layer artwork filenames of the form <Name>[@<Color>][#<Weight>].<ext>.
package parser

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Default delimiters.
const (
	DefaultRarityDelimiter = "#"
	DefaultColorDelimiter  = "@"
)

// Result holds the parts of a parsed artwork filename.
type Result struct {
	Name   string
	Color  string
	Weight int
}

// Parse splits filename into its display name, optional color tag and rarity
// weight. A missing or non-numeric weight defaults to 1; an explicit weight
// below 1 is an error.
func Parse(filename, rarityDelim, colorDelim string) (*Result, error) {
	if rarityDelim == "" {
		rarityDelim = DefaultRarityDelimiter
	}
	if colorDelim == "" {
		colorDelim = DefaultColorDelimiter
	}

	base := stripExt(filename)
	if base == "" {
		return nil, fmt.Errorf("parser: empty name in %q", filename)
	}

	name := cleanName(base, rarityDelim, colorDelim)
	if name == "" {
		return nil, fmt.Errorf("parser: empty display name in %q", filename)
	}

	weight, err := rarityWeight(base, rarityDelim)
	if err != nil {
		return nil, fmt.Errorf("parser: %q: %w", filename, err)
	}

	return &Result{
		Name:   name,
		Color:  cleanColor(base, rarityDelim, colorDelim),
		Weight: weight,
	}, nil
}

func stripExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// cleanName keeps everything before the first rarity delimiter, then before
// the first color delimiter.
func cleanName(base, rarityDelim, colorDelim string) string {
	name, _, _ := strings.Cut(base, rarityDelim)
	name, _, _ = strings.Cut(name, colorDelim)
	return strings.TrimSpace(name)
}

// cleanColor returns the text after the last color delimiter, up to the
// rarity delimiter.
func cleanColor(base, rarityDelim, colorDelim string) string {
	i := strings.LastIndex(base, colorDelim)
	if i < 0 {
		return ""
	}
	color, _, _ := strings.Cut(base[i+len(colorDelim):], rarityDelim)
	return strings.TrimSpace(color)
}

func rarityWeight(base, rarityDelim string) (int, error) {
	i := strings.LastIndex(base, rarityDelim)
	if i < 0 {
		return 1, nil
	}
	w, err := strconv.Atoi(strings.TrimSpace(base[i+len(rarityDelim):]))
	if err != nil {
		return 1, nil
	}
	if w < 1 {
		return 0, fmt.Errorf("rarity weight %d must be positive", w)
	}
	return w, nil
}
