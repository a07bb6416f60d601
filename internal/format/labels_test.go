package format

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatOrderType(t *testing.T) {
	tests := map[string]string{
		"PM01": "Preventive Maintenance",
		"PM02": "Breakdown Maintenance",
		"PP01": "Production Order",
		"CU01": "Custom Order",
		"LA":   "Make-to-Stock",
		"NB":   "MRP",
		"XX99": "XX99",
		"":     "",
	}
	for code, want := range tests {
		if got := FormatOrderType(code); got != want {
			t.Errorf("FormatOrderType(%q) = %q; want %q", code, got, want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	tests := []struct {
		name string
		qty  decimal.NullDecimal
		unit string
		want string
	}{
		{"missing", decimal.NullDecimal{}, "EA", ""},
		{"with unit", decimal.NewNullDecimal(decimal.RequireFromString("10.000")), "EA", "10 EA"},
		{"fraction", decimal.NewNullDecimal(decimal.RequireFromString("2.500")), "KG", "2.5 KG"},
		{"no unit", decimal.NewNullDecimal(decimal.NewFromInt(7)), "", "7"},
		{"zero", decimal.NewNullDecimal(decimal.Zero), "PC", "0 PC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatQuantity(tt.qty, tt.unit); got != tt.want {
				t.Errorf("got %q; want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTitle(t *testing.T) {
	if got := FormatTitle("Planned Orders", "MTD"); got != "Planned Orders - MTD" {
		t.Errorf("got %q", got)
	}
}
