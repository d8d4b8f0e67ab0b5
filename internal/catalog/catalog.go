// Package catalog loads layer directories into weighted element catalogs.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/compat"
	"github.com/starford/mintforge/internal/models"
	"github.com/starford/mintforge/internal/parser"
	"github.com/starford/mintforge/internal/storage"
)

// Delimiters are the filename separators for weight and color.
type Delimiters struct {
	Rarity string
	Color  string
}

// Group is a loaded layer configuration ready for generation.
type Group struct {
	Index  int
	Target int
	Layers []models.LayerDefinition
	Rules  *compat.RuleSet
}

// Loader reads layer directories from a storage provider rooted at the
// layers directory.
type Loader struct {
	store  storage.Provider
	delims Delimiters
}

// NewLoader creates a catalog loader.
func NewLoader(store storage.Provider, delims Delimiters) *Loader {
	return &Loader{store: store, delims: delims}
}

// LoadLayer builds the definition for one layer. A missing or empty layer
// directory is a configuration error.
func (l *Loader) LoadLayer(position int, spec models.LayerSpec) (models.LayerDefinition, error) {
	op := fmt.Sprintf("layer %q", spec.Name)

	entries, err := l.store.List(spec.Name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.LayerDefinition{}, apperr.Configf(op, "directory %s does not exist", spec.Name)
		}
		return models.LayerDefinition{}, &apperr.ConfigError{Op: op, Err: err}
	}

	elements := make([]models.Element, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || isHidden(e.Name) {
			continue
		}
		parsed, err := parser.Parse(e.Name, l.delims.Rarity, l.delims.Color)
		if err != nil {
			return models.LayerDefinition{}, &apperr.ConfigError{Op: op, Err: err}
		}
		elements = append(elements, models.Element{
			ID:       len(elements),
			Name:     parsed.Name,
			Filename: e.Name,
			Path:     e.Path,
			Weight:   parsed.Weight,
			Color:    parsed.Color,
		})
	}
	if len(elements) == 0 {
		return models.LayerDefinition{}, apperr.Configf(op, "directory %s has no artwork", spec.Name)
	}

	return models.LayerDefinition{
		ID:          position,
		Name:        spec.Name,
		DisplayName: spec.Options.DisplayName,
		ColorName:   spec.Options.ColorName,
		Blend:       spec.Options.BlendOrDefault(),
		Opacity:     spec.Options.OpacityOrDefault(),
		BypassDNA:   spec.Options.BypassDNA,
		Elements:    elements,
	}, nil
}

// LoadGroup loads every layer of a configuration group and compiles its
// incompatibility rules.
func (l *Loader) LoadGroup(index int, spec models.GroupSpec) (*Group, error) {
	layers := make([]models.LayerDefinition, 0, len(spec.LayersOrder))
	for i, ls := range spec.LayersOrder {
		def, err := l.LoadLayer(i, ls)
		if err != nil {
			return nil, err
		}
		layers = append(layers, def)
	}

	rules, err := compat.Compile(layers, spec.LayersOrder)
	if err != nil {
		return nil, &apperr.ConfigError{Op: fmt.Sprintf("group %d incompatibles", index), Err: err}
	}

	return &Group{
		Index:  index,
		Target: spec.GrowEditionSizeTo,
		Layers: layers,
		Rules:  rules,
	}, nil
}

// LoadAll loads every configuration group in order.
func (l *Loader) LoadAll(specs []models.GroupSpec) ([]*Group, error) {
	groups := make([]*Group, 0, len(specs))
	for i, s := range specs {
		g, err := l.LoadGroup(i, s)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
