package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/mintforge/internal/checksum"
	"github.com/starford/mintforge/internal/models"
)

func fixedNow() time.Time { return time.UnixMilli(1700000000000) }

func sampleResult() *models.EditionResult {
	return &models.EditionResult{
		Edition: 7,
		DNA:     models.DNA{{ElementID: 0, Filename: "Blue.png"}, {Layer: 1, ElementID: 2, Filename: "Cat@Red.png"}},
		Attributes: []models.Attribute{
			{TraitType: "Background", Value: "Blue"},
			{TraitType: "Pet", Value: "Cat"},
			{TraitType: "Pet - Color", Value: "Red"},
		},
	}
}

func decode(t *testing.T, r *Record) map[string]any {
	t.Helper()
	raw, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

func TestBuild_EthRecord(t *testing.T) {
	b := &Builder{
		Network:     NetworkEth,
		NamePrefix:  "Sekushi House",
		Description: "desc",
		BaseURI:     "ipfs://cid",
		Now:         fixedNow,
	}
	res := sampleResult()
	m := decode(t, b.Build(res))

	want := map[string]any{
		"name":        "Sekushi House #7",
		"description": "desc",
		"image":       "ipfs://cid/7.png",
		"dna":         checksum.DNA(res.DNA.String()),
		"edition":     float64(7),
		"date":        float64(1700000000000),
		"compiler":    Compiler,
		"attributes": []any{
			map[string]any{"trait_type": "Background", "value": "Blue"},
			map[string]any{"trait_type": "Pet", "value": "Cat"},
			map[string]any{"trait_type": "Pet - Color", "value": "Red"},
		},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ExtraFieldsMerged(t *testing.T) {
	b := &Builder{Network: NetworkEth, NamePrefix: "X", Extra: map[string]any{"artist": "kai", "year": 2024}, Now: fixedNow}
	m := decode(t, b.Build(sampleResult()))
	if m["artist"] != "kai" || m["year"] != float64(2024) {
		t.Errorf("extra fields missing: %v", m)
	}
	if m["name"] != "X #7" {
		t.Errorf("base fields lost: %v", m)
	}
}

func TestBuild_SolRecord(t *testing.T) {
	b := &Builder{
		Network:    NetworkSol,
		NamePrefix: "YC",
		Solana: Solana{
			Symbol:               "YC",
			SellerFeeBasisPoints: 1000,
			ExternalURL:          "https://example.com",
			Creators:             []Creator{{Address: "abc", Share: 100}},
		},
		Now: fixedNow,
	}
	m := decode(t, b.Build(sampleResult()))
	if m["symbol"] != "YC" || m["seller_fee_basis_points"] != float64(1000) {
		t.Errorf("sol fields missing: %v", m)
	}
	if _, ok := m["dna"]; ok {
		t.Error("sol schema should not carry dna")
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties missing: %v", m)
	}
	if props["category"] != "image" {
		t.Errorf("category = %v", props["category"])
	}
	files := props["files"].([]any)
	if files[0].(map[string]any)["uri"] != "7.png" {
		t.Errorf("files = %v", files)
	}
	if len(m["attributes"].([]any)) != 3 {
		t.Errorf("attributes = %v", m["attributes"])
	}
}

func TestBuild_InlineImage(t *testing.T) {
	b := &Builder{Network: NetworkEth, NamePrefix: "X", BaseURI: "ipfs://cid", Now: fixedNow}
	res := sampleResult()
	res.InlineData = "data:image/png;base64,AAAA"
	r := b.Build(res)
	if r.Image != res.InlineData {
		t.Errorf("image = %q", r.Image)
	}
}

func TestBuild_EmptyAttributesSerializeAsArray(t *testing.T) {
	b := &Builder{Network: NetworkEth, NamePrefix: "X", Now: fixedNow}
	res := sampleResult()
	res.Attributes = nil
	raw, err := json.Marshal(b.Build(res))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	_ = json.Unmarshal(raw, &m)
	if string(m["attributes"]) != "[]" {
		t.Errorf("attributes = %s", m["attributes"])
	}
}

func TestSolana_Validate(t *testing.T) {
	s := Solana{Symbol: "YC", SellerFeeBasisPoints: 500, Creators: []Creator{{Address: "a", Share: 60}, {Address: "b", Share: 30}}}
	if err := s.Validate(); err == nil {
		t.Error("shares summing to 90 should fail")
	}
	s.Creators[1].Share = 40
	if err := s.Validate(); err != nil {
		t.Errorf("valid solana block rejected: %v", err)
	}
}

func TestFirstEdition(t *testing.T) {
	if FirstEdition(NetworkSol) != 0 || FirstEdition(NetworkEth) != 1 {
		t.Error("unexpected first edition")
	}
}
