// Package models defines the domain types for mintforge.
package models

import "strings"

// NoneElement is the element name that stands for "nothing chosen" in a layer.
const NoneElement = "None"

// Blend modes understood by the compositing backends.
const (
	BlendSourceOver = "source-over"
	BlendCopy       = "copy"
	BlendMultiply   = "multiply"
	BlendScreen     = "screen"
	BlendDarken     = "darken"
	BlendLighten    = "lighten"
)

// Element is one artwork file inside a layer directory.
type Element struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Weight   int    `json:"weight"`
	Color    string `json:"color,omitempty"`
}

// IsNone reports whether the element is the sentinel "None" choice.
func (e Element) IsNone() bool {
	return IsNoneName(e.Name)
}

// IsNoneName reports whether name is the sentinel "None" element name.
func IsNoneName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), NoneElement)
}

// LayerDefinition is a loaded layer: its options plus the ordered elements
// found in its directory. It is built once per run and never mutated.
type LayerDefinition struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	ColorName   string    `json:"color_name,omitempty"`
	Blend       string    `json:"blend"`
	Opacity     float64   `json:"opacity"`
	BypassDNA   bool      `json:"bypass_dna"`
	Elements    []Element `json:"elements"`
}

// TraitType is the attribute trait_type used for this layer.
func (l *LayerDefinition) TraitType() string {
	if l.DisplayName != "" {
		return l.DisplayName
	}
	return l.Name
}

// ColorTraitType is the trait_type used for an element's color tag.
func (l *LayerDefinition) ColorTraitType() string {
	if l.ColorName != "" {
		return l.ColorName
	}
	return l.TraitType() + " - Color"
}

// TotalWeight is the sum of all element weights in the layer.
func (l *LayerDefinition) TotalWeight() int {
	total := 0
	for _, e := range l.Elements {
		total += e.Weight
	}
	return total
}

// Element returns the element with the given id.
func (l *LayerDefinition) Element(id int) (Element, bool) {
	if id < 0 || id >= len(l.Elements) || l.Elements[id].ID != id {
		for _, e := range l.Elements {
			if e.ID == id {
				return e, true
			}
		}
		return Element{}, false
	}
	return l.Elements[id], true
}
