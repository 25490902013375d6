package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product models, circuit counts (positions) and colors are fixed catalog
// attributes. The SKU is derived from them once at creation time.
const (
	ModelMark1 = "mark1"
	ModelMark2 = "mark2"

	ColorWhite = "white"
	ColorBlack = "black"
	ColorGray  = "gray"
)

// modelCodes maps a product model to its SKU short code.
var modelCodes = map[string]string{
	ModelMark1: "M1",
	ModelMark2: "M2",
}

// colorCodes maps a product color to its 3-letter SKU code.
var colorCodes = map[string]string{
	ColorWhite: "WHT",
	ColorBlack: "BLK",
	ColorGray:  "GRY",
}

// Product represents a dimmer switch in the catalog
type Product struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SKU       string    `json:"sku" db:"sku"`
	Name      string    `json:"name" db:"name"`
	Model     string    `json:"model" db:"model"`
	Positions int       `json:"positions" db:"positions"`
	Color     string    `json:"color" db:"color"`
	Price     float64   `json:"price" db:"price"`
	Features  []string  `json:"features" db:"features"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	InStock   bool      `json:"inStock" db:"in_stock"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// BuildSKU derives the catalog identifier from the product's categorical
// attributes, e.g. (mark1, 2, black) -> "DIM-M1-P2-BLK". It returns the empty
// string when any attribute is missing or unmapped; required-field validation
// is expected to reject such records before they reach the store.
func BuildSKU(model string, positions int, color string) string {
	m, okM := modelCodes[model]
	c, okC := colorCodes[color]
	if !okM || !okC || !ValidPositions(positions) {
		return ""
	}
	return fmt.Sprintf("DIM-%s-P%d-%s", m, positions, c)
}

// NormalizeSKU prepares an explicitly supplied SKU for storage.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// EnsureSKU assigns the derived SKU when none was supplied, otherwise
// normalizes the caller-provided one. Called once on create; attribute updates
// never recompute the SKU, so the stored value is frozen at creation.
func (p *Product) EnsureSKU() {
	if strings.TrimSpace(p.SKU) == "" {
		p.SKU = BuildSKU(p.Model, p.Positions, p.Color)
		return
	}
	p.SKU = NormalizeSKU(p.SKU)
}

// ValidModel reports whether model is one of the known product models.
func ValidModel(model string) bool {
	_, ok := modelCodes[model]
	return ok
}

// ValidColor reports whether color is one of the known product colors.
func ValidColor(color string) bool {
	_, ok := colorCodes[color]
	return ok
}

// ValidPositions reports whether positions is a supported circuit count.
func ValidPositions(positions int) bool {
	return positions >= 1 && positions <= 3
}

// ProductModels returns the supported model values.
func ProductModels() []string {
	return []string{ModelMark1, ModelMark2}
}

// ProductColors returns the supported color values.
func ProductColors() []string {
	return []string{ColorWhite, ColorBlack, ColorGray}
}
