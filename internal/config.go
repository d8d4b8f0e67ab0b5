package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mintforge/internal/apperr"
	"github.com/starford/mintforge/internal/metadata"
	"github.com/starford/mintforge/internal/models"
)

// Networks.
const (
	NetworkEth = metadata.NetworkEth
	NetworkSol = metadata.NetworkSol
)

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Config represents the application configuration.
type Config struct {
	App                 ApplicationConfig  `yaml:"app"`
	Paths               PathsConfig        `yaml:"paths"`
	Format              FormatConfig       `yaml:"format"`
	Generation          GenerationConfig   `yaml:"generation"`
	Metadata            MetadataConfig     `yaml:"metadata"`
	GIF                 GIFConfig          `yaml:"gif"`
	Text                TextConfig         `yaml:"text"`
	Background          BackgroundConfig   `yaml:"background"`
	LayerConfigurations []models.GroupSpec `yaml:"layer_configurations"`
}

// Validate validates the configuration. Every failure is a configuration error.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"paths", &c.Paths},
		{"format", &c.Format},
		{"generation", &c.Generation},
		{"metadata", &c.Metadata},
		{"gif", &c.GIF},
		{"text", &c.Text},
		{"background", &c.Background},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return &apperr.ConfigError{Op: s.name, Err: err}
		}
	}
	if err := validateGroups(c.LayerConfigurations); err != nil {
		return &apperr.ConfigError{Op: "layer_configurations", Err: err}
	}
	return nil
}

// TotalEditions is the size of the whole collection: the last group's
// grow_edition_size_to.
func (c *Config) TotalEditions() int {
	if len(c.LayerConfigurations) == 0 {
		return 0
	}
	return c.LayerConfigurations[len(c.LayerConfigurations)-1].GrowEditionSizeTo
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile, when set, receives a rotated copy of the JSON log.
	LogFile string `yaml:"log_file"`
}

// PathsConfig locates the layer tree and the build output.
type PathsConfig struct {
	LayersDir string `yaml:"layers_dir"`
	BuildDir  string `yaml:"build_dir"`
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LayersDir, validation.Required),
		validation.Field(&c.BuildDir, validation.Required),
	)
}

// FormatConfig describes the rendered canvas.
type FormatConfig struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	Smoothing bool `yaml:"smoothing"`
	// Onchain inlines each image as a base64 data URI in its metadata.
	Onchain bool `yaml:"onchain"`
}

// Validate validates the format configuration.
func (c *FormatConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Width, validation.Required, validation.Min(1), validation.Max(16384)),
		validation.Field(&c.Height, validation.Required, validation.Min(1), validation.Max(16384)),
	)
}

// GenerationConfig tunes the DNA generator and the worker pool.
type GenerationConfig struct {
	Workers            int    `yaml:"workers"`
	UniqueDNATolerance int    `yaml:"unique_dna_tolerance"`
	Shuffle            bool   `yaml:"shuffle"`
	Seed               uint64 `yaml:"seed"`
	RarityDelimiter    string `yaml:"rarity_delimiter"`
	ColorDelimiter     string `yaml:"color_delimiter"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
		validation.Field(&c.UniqueDNATolerance, validation.Required, validation.Min(1)),
		validation.Field(&c.RarityDelimiter, validation.Required, validation.NotIn(models.DNADelimiter)),
		validation.Field(&c.ColorDelimiter, validation.Required, validation.NotIn(models.DNADelimiter)),
	); err != nil {
		return err
	}
	if c.RarityDelimiter == c.ColorDelimiter {
		return fmt.Errorf("rarity_delimiter and color_delimiter must differ (both %q)", c.RarityDelimiter)
	}
	return nil
}

// MetadataConfig controls the per-edition metadata documents.
type MetadataConfig struct {
	Network     string          `yaml:"network"`
	NamePrefix  string          `yaml:"name_prefix"`
	Description string          `yaml:"description"`
	BaseURI     string          `yaml:"base_uri"`
	Extra       map[string]any  `yaml:"extra"`
	Solana      metadata.Solana `yaml:"solana"`
}

// Validate validates the metadata configuration.
func (c *MetadataConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Network, validation.Required, validation.In(NetworkEth, NetworkSol)),
		validation.Field(&c.NamePrefix, validation.Required),
	); err != nil {
		return err
	}
	for k := range c.Extra {
		if metadata.IsReservedKey(k) {
			return fmt.Errorf("extra: key %q is reserved", k)
		}
	}
	if c.Network == NetworkSol {
		return c.Solana.Validate()
	}
	return nil
}

// GIFConfig controls the optional animated export.
type GIFConfig struct {
	Export bool `yaml:"export"`
	// Repeat follows image/gif LoopCount: 0 loops forever, -1 plays once.
	Repeat int `yaml:"repeat"`
	// Delay between frames in milliseconds.
	Delay int `yaml:"delay"`
}

// Validate validates the gif configuration.
func (c *GIFConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Repeat, validation.Min(-1)),
		validation.Field(&c.Delay, validation.Min(0)),
	)
}

// TextConfig switches rendering to "<layer> => <element>" text lines.
type TextConfig struct {
	Only   bool   `yaml:"only"`
	Color  string `yaml:"color"`
	XGap   int    `yaml:"x_gap"`
	YGap   int    `yaml:"y_gap"`
	Spacer string `yaml:"spacer"`
}

// Validate validates the text configuration.
func (c *TextConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Color, validation.When(c.Only, validation.Required), validation.Match(hexColorRe)),
		validation.Field(&c.XGap, validation.Min(0)),
		validation.Field(&c.YGap, validation.Min(0)),
	)
}

// BackgroundConfig controls the optional generated background fill.
type BackgroundConfig struct {
	Generate bool `yaml:"generate"`
	// Brightness is the HSL lightness of random pastel backgrounds, 0..1.
	Brightness float64 `yaml:"brightness"`
	Static     bool    `yaml:"static"`
	Default    string  `yaml:"default"`
}

// Validate validates the background configuration.
func (c *BackgroundConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Brightness, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Default, validation.When(c.Static, validation.Required), validation.Match(hexColorRe)),
	)
}

var blendModes = []any{
	models.BlendSourceOver,
	models.BlendCopy,
	models.BlendMultiply,
	models.BlendScreen,
	models.BlendDarken,
	models.BlendLighten,
}

func validateGroups(groups []models.GroupSpec) error {
	if len(groups) == 0 {
		return errors.New("at least one layer configuration is required")
	}
	prev := 0
	for gi := range groups {
		g := &groups[gi]
		if g.GrowEditionSizeTo <= prev {
			return fmt.Errorf("group %d: grow_edition_size_to %d must be greater than %d", gi, g.GrowEditionSizeTo, prev)
		}
		prev = g.GrowEditionSizeTo
		if len(g.LayersOrder) == 0 {
			return fmt.Errorf("group %d: layers_order is empty", gi)
		}
		seen := make(map[string]struct{}, len(g.LayersOrder))
		for li := range g.LayersOrder {
			l := &g.LayersOrder[li]
			if err := validateLayer(l); err != nil {
				return fmt.Errorf("group %d: layer %d: %w", gi, li, err)
			}
			if _, dup := seen[l.Name]; dup {
				return fmt.Errorf("group %d: duplicate layer %q", gi, l.Name)
			}
			seen[l.Name] = struct{}{}
		}
	}
	return nil
}

func validateLayer(l *models.LayerSpec) error {
	if err := validation.ValidateStruct(l,
		validation.Field(&l.Name, validation.Required),
	); err != nil {
		return err
	}
	o := &l.Options
	return validation.ValidateStruct(o,
		validation.Field(&o.Blend, validation.In(blendModes...)),
		validation.Field(&o.Opacity, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Paths: PathsConfig{
			LayersDir: "./layers",
			BuildDir:  "./build",
		},
		Format: FormatConfig{
			Width:     1000,
			Height:    1000,
			Smoothing: true,
		},
		Generation: GenerationConfig{
			Workers:            4,
			UniqueDNATolerance: 10000,
			RarityDelimiter:    "#",
			ColorDelimiter:     "@",
		},
		Metadata: MetadataConfig{
			Network:     NetworkEth,
			NamePrefix:  "Your Collection",
			Description: "Remember to replace this description",
			BaseURI:     "ipfs://NewUriToReplace",
			Solana: metadata.Solana{
				Symbol:               "YC",
				SellerFeeBasisPoints: 1000,
				ExternalURL:          "https://example.com",
			},
		},
		GIF: GIFConfig{
			Delay: 500,
		},
		Text: TextConfig{
			Color:  "#ffffff",
			XGap:   40,
			YGap:   40,
			Spacer: " => ",
		},
		Background: BackgroundConfig{
			Brightness: 0.8,
			Default:    "#000000",
		},
	}
}
