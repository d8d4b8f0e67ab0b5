// Package metadata builds the per-edition metadata documents written next to
// every rendered image and streamed into the collection manifest.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/mintforge/internal/checksum"
	"github.com/starford/mintforge/internal/models"
)

// Networks select the record schema.
const (
	NetworkEth = "eth"
	NetworkSol = "sol"
)

// Compiler is stamped into primary-schema records.
const Compiler = "mintforge"

var reservedKeys = map[string]struct{}{
	"name": {}, "description": {}, "image": {}, "dna": {}, "edition": {},
	"date": {}, "attributes": {}, "compiler": {}, "symbol": {},
	"seller_fee_basis_points": {}, "external_url": {}, "properties": {},
}

// IsReservedKey reports whether key is produced by the record schemas
// themselves and therefore cannot be supplied as extra metadata.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// FirstEdition returns the first edition index for a network.
func FirstEdition(network string) int {
	if network == NetworkSol {
		return 0
	}
	return 1
}

// Creator is a royalty recipient in the sol schema.
type Creator struct {
	Address string `yaml:"address" json:"address"`
	Share   int    `yaml:"share" json:"share"`
}

// Solana holds the marketplace fields of the sol schema.
type Solana struct {
	Symbol               string    `yaml:"symbol" json:"symbol"`
	SellerFeeBasisPoints int       `yaml:"seller_fee_basis_points" json:"seller_fee_basis_points"`
	ExternalURL          string    `yaml:"external_url" json:"external_url"`
	Creators             []Creator `yaml:"creators" json:"creators"`
}

// Validate validates the sol schema settings.
func (s *Solana) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Symbol, validation.Required),
		validation.Field(&s.SellerFeeBasisPoints, validation.Min(0), validation.Max(10000)),
		validation.Field(&s.Creators, validation.Required),
	); err != nil {
		return err
	}
	total := 0
	for _, c := range s.Creators {
		if c.Address == "" {
			return fmt.Errorf("solana: creator address is empty")
		}
		total += c.Share
	}
	if total != 100 {
		return fmt.Errorf("solana: creator shares sum to %d, want 100", total)
	}
	return nil
}

// Record is one edition's metadata document.
type Record struct {
	Network     string
	Name        string
	Description string
	Image       string
	DNA         string
	Edition     int
	Date        int64
	Attributes  []models.Attribute
	Solana      *Solana
	Extra       map[string]any
}

type ethDoc struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Image       string             `json:"image"`
	DNA         string             `json:"dna"`
	Edition     int                `json:"edition"`
	Date        int64              `json:"date"`
	Attributes  []models.Attribute `json:"attributes"`
	Compiler    string             `json:"compiler"`
}

type solFile struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

type solProperties struct {
	Files    []solFile `json:"files"`
	Category string    `json:"category"`
	Creators []Creator `json:"creators"`
}

type solDoc struct {
	Name                 string             `json:"name"`
	Symbol               string             `json:"symbol"`
	Description          string             `json:"description"`
	SellerFeeBasisPoints int                `json:"seller_fee_basis_points"`
	Image                string             `json:"image"`
	ExternalURL          string             `json:"external_url"`
	Edition              int                `json:"edition"`
	Attributes           []models.Attribute `json:"attributes"`
	Properties           solProperties      `json:"properties"`
}

// MarshalJSON renders the record in its network schema followed by the extra
// fields in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	attrs := r.Attributes
	if attrs == nil {
		attrs = []models.Attribute{}
	}

	var doc any
	if r.Network == NetworkSol {
		sol := Solana{}
		if r.Solana != nil {
			sol = *r.Solana
		}
		doc = solDoc{
			Name:                 r.Name,
			Symbol:               sol.Symbol,
			Description:          r.Description,
			SellerFeeBasisPoints: sol.SellerFeeBasisPoints,
			Image:                r.Image,
			ExternalURL:          sol.ExternalURL,
			Edition:              r.Edition,
			Attributes:           attrs,
			Properties: solProperties{
				Files:    []solFile{{URI: r.Image, Type: "image/png"}},
				Category: "image",
				Creators: sol.Creators,
			},
		}
	} else {
		doc = ethDoc{
			Name:        r.Name,
			Description: r.Description,
			Image:       r.Image,
			DNA:         r.DNA,
			Edition:     r.Edition,
			Date:        r.Date,
			Attributes:  attrs,
			Compiler:    Compiler,
		}
	}

	base, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	extra, err := json.Marshal(r.Extra)
	if err != nil {
		return nil, fmt.Errorf("metadata: marshal extra: %w", err)
	}
	// base ends in '}' and extra starts with '{': splice the two objects.
	var buf bytes.Buffer
	buf.Grow(len(base) + len(extra))
	buf.Write(base[:len(base)-1])
	buf.WriteByte(',')
	buf.Write(extra[1:])
	return buf.Bytes(), nil
}

// Builder turns rendered editions into Records.
type Builder struct {
	Network     string
	NamePrefix  string
	Description string
	BaseURI     string
	Extra       map[string]any
	Solana      Solana
	// Now defaults to time.Now.
	Now func() time.Time
}

// Build creates the record for one rendered edition.
func (b *Builder) Build(res *models.EditionResult) *Record {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}

	r := &Record{
		Network:     b.Network,
		Name:        fmt.Sprintf("%s #%d", b.NamePrefix, res.Edition),
		Description: b.Description,
		DNA:         checksum.DNA(res.DNA.String()),
		Edition:     res.Edition,
		Date:        now().UnixMilli(),
		Attributes:  res.Attributes,
		Extra:       b.Extra,
	}

	switch {
	case res.InlineData != "":
		r.Image = res.InlineData
	case b.Network == NetworkSol:
		r.Image = fmt.Sprintf("%d.png", res.Edition)
	default:
		r.Image = fmt.Sprintf("%s/%d.png", b.BaseURI, res.Edition)
	}
	if b.Network == NetworkSol {
		sol := b.Solana
		r.Solana = &sol
	}
	return r
}
