// Package compat enforces cross-layer incompatibility rules on sampled DNA.
package compat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/models"
)

type constraint struct {
	target    int
	forbidden []string // lower-cased substrings
}

// RuleSet is the compiled incompatibility table of one configuration group.
// It is read-only once compiled.
type RuleSet struct {
	// owner layer -> lower-cased element name -> constraints
	rules map[int]map[string][]constraint
	count int
}

// Compile resolves the incompatibles declared on each layer spec against the
// loaded layers. Rules naming an unknown layer or element are rejected.
func Compile(layers []models.LayerDefinition, specs []models.LayerSpec) (*RuleSet, error) {
	if len(layers) != len(specs) {
		return nil, fmt.Errorf("compat: %d layers but %d specs", len(layers), len(specs))
	}

	byName := make(map[string]int, len(layers))
	for i := range layers {
		byName[layers[i].Name] = i
	}

	rs := &RuleSet{rules: make(map[int]map[string][]constraint)}
	for owner, spec := range specs {
		for element, targets := range spec.Incompatibles {
			if !hasElement(&layers[owner], element) {
				return nil, fmt.Errorf("compat: layer %q has no element %q", spec.Name, element)
			}
			for targetName, subs := range targets {
				target, ok := byName[targetName]
				if !ok {
					return nil, fmt.Errorf("compat: rule on %q/%q names unknown layer %q", spec.Name, element, targetName)
				}
				if target == owner {
					return nil, fmt.Errorf("compat: rule on %q/%q targets its own layer", spec.Name, element)
				}
				c := constraint{target: target}
				for _, s := range subs {
					s = strings.ToLower(strings.TrimSpace(s))
					if s == "" {
						return nil, fmt.Errorf("compat: rule on %q/%q has an empty substring for %q", spec.Name, element, targetName)
					}
					c.forbidden = append(c.forbidden, s)
				}
				key := strings.ToLower(element)
				if rs.rules[owner] == nil {
					rs.rules[owner] = make(map[string][]constraint)
				}
				rs.rules[owner][key] = append(rs.rules[owner][key], c)
				rs.count++
			}
		}
	}
	return rs, nil
}

// Len returns the number of compiled (element, target layer) rules.
func (r *RuleSet) Len() int {
	if r == nil {
		return 0
	}
	return r.count
}

// Validate checks every pair of layer choices in d against the rule table.
// A violation is reported as an error wrapping apperr.ErrIncompatible.
func (r *RuleSet) Validate(layers []models.LayerDefinition, d models.DNA) error {
	if r == nil || r.count == 0 {
		return nil
	}
	if len(d) != len(layers) {
		return fmt.Errorf("compat: dna has %d selections for %d layers", len(d), len(layers))
	}

	names := make([]string, len(d))
	for i, s := range d {
		el, ok := layers[i].Element(s.ElementID)
		if !ok {
			return fmt.Errorf("compat: layer %q has no element id %d", layers[i].Name, s.ElementID)
		}
		names[i] = el.Name
	}

	for a := 0; a < len(names); a++ {
		for b := a + 1; b < len(names); b++ {
			if err := r.check(layers, names, a, b); err != nil {
				return err
			}
			if err := r.check(layers, names, b, a); err != nil {
				return err
			}
		}
	}
	return nil
}

// check evaluates the rules owned by layer a's choice against layer b's choice.
func (r *RuleSet) check(layers []models.LayerDefinition, names []string, a, b int) error {
	for _, c := range r.rules[a][strings.ToLower(names[a])] {
		if c.target != b {
			continue
		}
		chosen := names[b]
		if len(c.forbidden) == 0 {
			if !models.IsNoneName(chosen) {
				return violation(layers, names, a, b, "any element")
			}
			continue
		}
		lower := strings.ToLower(chosen)
		for _, sub := range c.forbidden {
			if strings.Contains(lower, sub) {
				return violation(layers, names, a, b, fmt.Sprintf("%q", sub))
			}
		}
	}
	return nil
}

func violation(layers []models.LayerDefinition, names []string, a, b int, what string) error {
	return fmt.Errorf("%w: %s=%q forbids %s in %s (chose %q)",
		apperr.ErrIncompatible, layers[a].Name, names[a], what, layers[b].Name, names[b])
}

func hasElement(l *models.LayerDefinition, name string) bool {
	for _, e := range l.Elements {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// IsIncompatible reports whether err is a rule violation.
func IsIncompatible(err error) bool {
	return errors.Is(err, apperr.ErrIncompatible)
}
