package models

// Attribute is one trait pair of an edition.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// EditionTask is the unit of work sent to a render worker. It carries the
// whole layer setup so workers keep no state between tasks.
type EditionTask struct {
	DNA     DNA               `json:"dna"`
	Edition int               `json:"edition"`
	Group   int               `json:"group"`
	Layers  []LayerDefinition `json:"layers"`
	Attempt int               `json:"attempt"`
}

// EditionResult is what a worker hands back for one task. Err is set when
// the edition could not be rendered; the other fields are then unset.
type EditionResult struct {
	Edition    int         `json:"edition"`
	Group      int         `json:"group"`
	DNA        DNA         `json:"dna"`
	Attributes []Attribute `json:"attributes"`
	Image      []byte      `json:"-"`
	GIF        []byte      `json:"-"`
	InlineData string      `json:"inline_data,omitempty"`
	Err        error       `json:"-"`
}
