package domain

import (
	"regexp"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var skuPattern = regexp.MustCompile(`^DIM-(M1|M2)-P[1-3]-(WHT|BLK|GRY)$`)

func TestBuildSKU(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		positions int
		color     string
		want      string
	}{
		{"mark1 single white", ModelMark1, 1, ColorWhite, "DIM-M1-P1-WHT"},
		{"mark1 double black", ModelMark1, 2, ColorBlack, "DIM-M1-P2-BLK"},
		{"mark2 triple gray", ModelMark2, 3, ColorGray, "DIM-M2-P3-GRY"},
		{"unknown model", "mark3", 1, ColorWhite, ""},
		{"unknown color", ModelMark1, 1, "red", ""},
		{"positions too low", ModelMark1, 0, ColorWhite, ""},
		{"positions too high", ModelMark1, 4, ColorWhite, ""},
		{"empty inputs", "", 0, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSKU(tt.model, tt.positions, tt.color); got != tt.want {
				t.Errorf("BuildSKU(%q, %d, %q) = %q, want %q", tt.model, tt.positions, tt.color, got, tt.want)
			}
		})
	}
}

func TestProperty_BuildSKUIsPureAndWellFormed(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid triples always yield the same well-formed SKU", prop.ForAll(
		func(model string, positions int, color string) bool {
			first := BuildSKU(model, positions, color)
			second := BuildSKU(model, positions, color)

			if first != second {
				t.Logf("FAIL: BuildSKU not deterministic: %q vs %q", first, second)
				return false
			}

			if !skuPattern.MatchString(first) {
				t.Logf("FAIL: SKU %q does not match expected pattern", first)
				return false
			}

			return true
		},
		gen.OneConstOf(ModelMark1, ModelMark2),
		gen.IntRange(1, 3),
		gen.OneConstOf(ColorWhite, ColorBlack, ColorGray),
	))

	properties.Property("invalid attributes never produce a SKU", prop.ForAll(
		func(model string, positions int, color string) bool {
			if ValidModel(model) && ValidPositions(positions) && ValidColor(color) {
				return true
			}
			return BuildSKU(model, positions, color) == ""
		},
		gen.AlphaString(),
		gen.IntRange(-10, 10),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestEnsureSKU(t *testing.T) {
	t.Run("derives when unset", func(t *testing.T) {
		p := &Product{Name: "X", Model: ModelMark1, Positions: 1, Color: ColorWhite}
		p.EnsureSKU()
		if p.SKU != "DIM-M1-P1-WHT" {
			t.Errorf("expected derived SKU, got %q", p.SKU)
		}
	})

	t.Run("derives when whitespace only", func(t *testing.T) {
		p := &Product{SKU: "   ", Model: ModelMark2, Positions: 2, Color: ColorGray}
		p.EnsureSKU()
		if p.SKU != "DIM-M2-P2-GRY" {
			t.Errorf("expected derived SKU, got %q", p.SKU)
		}
	})

	t.Run("normalizes explicit SKU", func(t *testing.T) {
		p := &Product{SKU: "  custom-sku-1 ", Model: ModelMark1, Positions: 1, Color: ColorWhite}
		p.EnsureSKU()
		if p.SKU != "CUSTOM-SKU-1" {
			t.Errorf("expected normalized explicit SKU, got %q", p.SKU)
		}
	})

	t.Run("leaves SKU empty when attributes are invalid", func(t *testing.T) {
		p := &Product{Model: "mark9", Positions: 1, Color: ColorWhite}
		p.EnsureSKU()
		if p.SKU != "" {
			t.Errorf("expected empty SKU for invalid attributes, got %q", p.SKU)
		}
	})
}

func TestEnumHelpers(t *testing.T) {
	for _, m := range ProductModels() {
		if !ValidModel(m) {
			t.Errorf("ValidModel(%q) = false", m)
		}
	}
	for _, c := range ProductColors() {
		if !ValidColor(c) {
			t.Errorf("ValidColor(%q) = false", c)
		}
	}
	if ValidModel("mark3") || ValidColor("beige") || ValidPositions(0) || ValidPositions(4) {
		t.Error("out-of-enum values accepted")
	}
}
