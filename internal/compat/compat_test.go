package compat

import (
	"testing"

	"github.com/starford/mintforge/internal/models"
)

func layer(id int, name string, elements ...string) models.LayerDefinition {
	l := models.LayerDefinition{ID: id, Name: name}
	for i, e := range elements {
		l.Elements = append(l.Elements, models.Element{ID: i, Name: e, Filename: e + ".png", Weight: 1})
	}
	return l
}

func pick(ids ...int) models.DNA {
	d := make(models.DNA, len(ids))
	for i, id := range ids {
		d[i] = models.Selection{Layer: i, ElementID: id}
	}
	return d
}

func fixture(t *testing.T, inc models.Incompatibles) ([]models.LayerDefinition, *RuleSet) {
	t.Helper()
	layers := []models.LayerDefinition{
		layer(0, "Face Tattoos", "None", "Left Star", "Right Moon"),
		layer(1, "Eyes", "Round"),
		layer(2, "Hair", "Pouf With Right Bow", "Left Ponytail", "Buzz"),
	}
	specs := []models.LayerSpec{{Name: "Face Tattoos"}, {Name: "Eyes"}, {Name: "Hair", Incompatibles: inc}}
	rs, err := Compile(layers, specs)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return layers, rs
}

func TestValidate_SubstringRule(t *testing.T) {
	layers, rs := fixture(t, models.Incompatibles{
		"Pouf With Right Bow": {"Face Tattoos": {"right"}},
	})
	if err := rs.Validate(layers, pick(2, 0, 0)); !IsIncompatible(err) {
		t.Errorf("Right Moon + Pouf With Right Bow should be rejected, got %v", err)
	}
	if err := rs.Validate(layers, pick(1, 0, 0)); err != nil {
		t.Errorf("Left Star + Pouf should pass: %v", err)
	}
	if err := rs.Validate(layers, pick(2, 0, 2)); err != nil {
		t.Errorf("rule should only fire for the owning element: %v", err)
	}
}

func TestValidate_CaseInsensitive(t *testing.T) {
	layers, rs := fixture(t, models.Incompatibles{
		"left ponytail": {"Face Tattoos": {"LEFT"}},
	})
	if err := rs.Validate(layers, pick(1, 0, 1)); !IsIncompatible(err) {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestValidate_EmptyListRequiresNone(t *testing.T) {
	layers, rs := fixture(t, models.Incompatibles{
		"Buzz": {"Face Tattoos": {}},
	})
	if err := rs.Validate(layers, pick(1, 0, 2)); !IsIncompatible(err) {
		t.Errorf("Buzz forbids any tattoo, got %v", err)
	}
	if err := rs.Validate(layers, pick(0, 0, 2)); err != nil {
		t.Errorf("Buzz with None tattoo should pass: %v", err)
	}
}

func TestValidate_NoRules(t *testing.T) {
	layers, rs := fixture(t, nil)
	if rs.Len() != 0 {
		t.Fatalf("Len = %d", rs.Len())
	}
	if err := rs.Validate(layers, pick(2, 0, 0)); err != nil {
		t.Errorf("no rules should accept everything: %v", err)
	}
}

func TestCompile_UnknownLayer(t *testing.T) {
	layers := []models.LayerDefinition{layer(0, "A", "x"), layer(1, "B", "y")}
	specs := []models.LayerSpec{{Name: "A", Incompatibles: models.Incompatibles{"x": {"C": {"z"}}}}, {Name: "B"}}
	if _, err := Compile(layers, specs); err == nil {
		t.Error("expected error for unknown target layer")
	}
}

func TestCompile_UnknownElement(t *testing.T) {
	layers := []models.LayerDefinition{layer(0, "A", "x"), layer(1, "B", "y")}
	specs := []models.LayerSpec{{Name: "A", Incompatibles: models.Incompatibles{"nope": {"B": {"y"}}}}, {Name: "B"}}
	if _, err := Compile(layers, specs); err == nil {
		t.Error("expected error for unknown element")
	}
}

func TestCompile_SelfTarget(t *testing.T) {
	layers := []models.LayerDefinition{layer(0, "A", "x")}
	specs := []models.LayerSpec{{Name: "A", Incompatibles: models.Incompatibles{"x": {"A": {"x"}}}}}
	if _, err := Compile(layers, specs); err == nil {
		t.Error("expected error for self-targeting rule")
	}
}
