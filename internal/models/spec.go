package models

// Incompatibles maps an element name of the owning layer to the layers it
// constrains. Each constrained layer lists forbidden substrings of its chosen
// element name; an empty list forbids any choice other than "None".
type Incompatibles map[string]map[string][]string

// LayerOptions are the optional per-layer settings of a layer configuration.
type LayerOptions struct {
	DisplayName string   `yaml:"display_name" json:"display_name,omitempty"`
	ColorName   string   `yaml:"color_name" json:"color_name,omitempty"`
	Blend       string   `yaml:"blend" json:"blend,omitempty"`
	Opacity     *float64 `yaml:"opacity" json:"opacity,omitempty"`
	BypassDNA   bool     `yaml:"bypass_dna" json:"bypass_dna,omitempty"`
}

// BlendOrDefault returns the configured blend mode or source-over.
func (o LayerOptions) BlendOrDefault() string {
	if o.Blend == "" {
		return BlendSourceOver
	}
	return o.Blend
}

// OpacityOrDefault returns the configured opacity or 1.
func (o LayerOptions) OpacityOrDefault() float64 {
	if o.Opacity == nil {
		return 1
	}
	return *o.Opacity
}

// LayerSpec is one entry of a group's layer order.
type LayerSpec struct {
	Name          string        `yaml:"name" json:"name"`
	Options       LayerOptions  `yaml:"options" json:"options"`
	Incompatibles Incompatibles `yaml:"incompatibles" json:"incompatibles,omitempty"`
}

// GroupSpec is one layer configuration: an ordered list of layers and the
// cumulative collection size it grows to.
type GroupSpec struct {
	GrowEditionSizeTo int         `yaml:"grow_edition_size_to" json:"grow_edition_size_to"`
	LayersOrder       []LayerSpec `yaml:"layers_order" json:"layers_order"`
}
