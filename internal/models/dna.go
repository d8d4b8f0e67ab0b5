package models

import (
	"strconv"
	"strings"
)

const (
	// DNADelimiter separates per-layer selections in a serialized DNA.
	DNADelimiter = "-"
	// BypassMarker is appended to selections excluded from the uniqueness key.
	BypassMarker = "?bypassDNA=true"
)

// Selection is the element chosen for one layer.
type Selection struct {
	Layer     int    `json:"layer"`
	ElementID int    `json:"element_id"`
	Filename  string `json:"filename"`
	Bypass    bool   `json:"bypass,omitempty"`
}

func (s Selection) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(s.ElementID))
	b.WriteByte(':')
	b.WriteString(s.Filename)
	if s.Bypass {
		b.WriteString(BypassMarker)
	}
	return b.String()
}

// DNA is one selection per layer, in layer order.
type DNA []Selection

// String serializes the full DNA, bypass markers included. This is the value
// hashed into edition metadata.
func (d DNA) String() string {
	parts := make([]string, len(d))
	for i, s := range d {
		parts[i] = s.String()
	}
	return strings.Join(parts, DNADelimiter)
}

// Key is the uniqueness-registry key: the serialized DNA without the
// selections of bypass layers.
func (d DNA) Key() string {
	parts := make([]string, 0, len(d))
	for _, s := range d {
		if s.Bypass {
			continue
		}
		parts = append(parts, s.String())
	}
	return strings.Join(parts, DNADelimiter)
}
