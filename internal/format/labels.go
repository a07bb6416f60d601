package format

import "github.com/shopspring/decimal"

var orderTypeLabels = map[string]string{
	"PM01": "Preventive Maintenance",
	"PM02": "Breakdown Maintenance",
	"PP01": "Production Order",
	"CU01": "Custom Order",
	"LA":   "Make-to-Stock",
	"NB":   "MRP",
}

// FormatOrderType returns the display label for an order type code.
// Unknown codes are returned unchanged.
func FormatOrderType(code string) string {
	if label, ok := orderTypeLabels[code]; ok {
		return label
	}
	return code
}

func FormatQuantity(qty decimal.NullDecimal, unit string) string {
	if !qty.Valid {
		return ""
	}
	if unit == "" {
		return qty.Decimal.String()
	}
	return qty.Decimal.String() + " " + unit
}

func FormatTitle(prefix, suffix string) string {
	return prefix + " - " + suffix
}
