package storage

import (
	"github.com/eugenenazirov/shoptools/internal/stamps"
	"github.com/eugenenazirov/shoptools/internal/validation"
)

// FontSizePreset selects the text scale used by clients.
type FontSizePreset string

const (
	FontSizeNormal FontSizePreset = "normal"
	FontSizeLarge  FontSizePreset = "large"
	FontSizeXLarge FontSizePreset = "xlarge"
)

// Valid reports whether p is one of the known presets.
func (p FontSizePreset) Valid() bool {
	switch p {
	case FontSizeNormal, FontSizeLarge, FontSizeXLarge:
		return true
	default:
		return false
	}
}

// Settings holds user preferences shared by both calculators.
type Settings struct {
	FontSize          FontSizePreset `yaml:"font_size"`
	UseDigitSeparator bool           `yaml:"use_digit_separator"`
}

// Row is one persisted stamp inventory line. Denomination and Stock are kept
// exactly as entered so half-typed rows survive a restart.
type Row struct {
	ID           string `yaml:"id"`
	Denomination string `yaml:"denomination"`
	Stock        string `yaml:"stock"`
}

// Inventory is the persisted state of the stamp calculator.
type Inventory struct {
	Rows   []Row  `yaml:"rows"`
	Target string `yaml:"target"`
}

// Stock converts the rows the solver can use. Rows that do not parse, or hold
// a non-positive denomination or stock, are skipped.
func (inv Inventory) Stock() []stamps.Stock {
	out := make([]stamps.Stock, 0, len(inv.Rows))
	for _, row := range inv.Rows {
		denomination, err := validation.Denomination(row.Denomination)
		if err != nil {
			continue
		}
		count, err := validation.Stock(row.Stock)
		if err != nil || count == 0 {
			continue
		}
		out = append(out, stamps.Stock{Denomination: denomination, Count: count})
	}
	return out
}

func (inv Inventory) clone() Inventory {
	rows := make([]Row, len(inv.Rows))
	copy(rows, inv.Rows)
	return Inventory{Rows: rows, Target: inv.Target}
}
