package domain

import (
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	ColorModeSolid = "solid"
	ColorModeOmbre = "ombre"

	MaxInscriptionLength = 60
)

// Layer is one tier of the cake. Size is the diameter in inches; Price is
// derived from the catalog and never taken from the client.
type Layer struct {
	Size  int             `json:"size"`
	Price decimal.Decimal `json:"price"`
}

// CakeSelection is what the customizer submits. Layers are listed bottom first.
type CakeSelection struct {
	Shape       string   `json:"shape"`
	Layers      []Layer  `json:"layers"`
	Flavors     []string `json:"flavors"`
	ColorMode   string   `json:"color_mode"`
	Colors      []string `json:"colors"`
	Fillings    []string `json:"fillings"`
	Decorations []string `json:"decorations"`
	Inscription string   `json:"inscription"`
}

// MaxColors returns how many colors a mode allows.
func MaxColors(mode string) int {
	if mode == ColorModeOmbre {
		return 3
	}
	return 2
}

// ValidateLayers enforces that every layer is strictly smaller than the one
// below it, which also rules out duplicate sizes.
func ValidateLayers(layers []Layer) error {
	if len(layers) == 0 {
		return Invalid("layers", "at least one layer is required")
	}
	for i := 1; i < len(layers); i++ {
		if layers[i].Size >= layers[i-1].Size {
			return Invalid("layers", "layer %d (%d\") must be smaller than the layer below it (%d\")",
				i+1, layers[i].Size, layers[i-1].Size)
		}
	}
	return nil
}

// Validate checks the structural rules of a selection. Option ids are
// checked against the catalog by the pricing package.
func (c *CakeSelection) Validate() error {
	if c.Shape == "" {
		return Invalid("shape", "shape is required")
	}
	if err := ValidateLayers(c.Layers); err != nil {
		return err
	}
	switch c.ColorMode {
	case "", ColorModeSolid, ColorModeOmbre:
	default:
		return Invalid("color_mode", "unknown color mode %q", c.ColorMode)
	}
	if max := MaxColors(c.ColorMode); len(c.Colors) > max {
		return Invalid("colors", "at most %d colors allowed", max)
	}
	if utf8.RuneCountInString(c.Inscription) > MaxInscriptionLength {
		return Invalid("inscription", "inscription is limited to %d characters", MaxInscriptionLength)
	}
	return nil
}
