// Package orders holds the order-list logic shared by the dashboard and the
// list screens: record ingestion, date-range counting and search filtering.
package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shopfloor/internal/format"
	"shopfloor/internal/model"
)

type fieldMap struct {
	number, material, plant, description, enteredBy, orderType, unit string
}

var fields = map[model.Kind]fieldMap{
	model.KindPlanned: {
		number:   "Plannedordernumber",
		material: "Materialnumber",
		plant:    "Planningplant",
		unit:     "Baseunit",
	},
	model.KindProduction: {
		number:      "Ordernumber",
		material:    "Materialnumber",
		plant:       "Plant",
		description: "Description",
		enteredBy:   "Enteredby",
		orderType:   "Ordertype",
		unit:        "Unit",
	},
}

const (
	startDateField = "Basicstartdate"
	endDateField   = "Basicfinishdate"
	quantityField  = "Totalquantity"
)

// Ingest maps raw backend records (property name to value) to orders of the
// given kind. Dates are normalized into loc here once; a date that does not
// parse is left zero.
func Ingest(kind model.Kind, records []map[string]string, loc *time.Location) []model.Order {
	fm := fields[kind]
	out := make([]model.Order, 0, len(records))
	for _, rec := range records {
		o := model.Order{
			Kind:         kind,
			Number:       field(rec, fm.number),
			RawStartDate: rec[startDateField],
			Material:     field(rec, fm.material),
			Plant:        field(rec, fm.plant),
			Description:  field(rec, fm.description),
			EnteredBy:    field(rec, fm.enteredBy),
			OrderType:    field(rec, fm.orderType),
			Unit:         field(rec, fm.unit),
		}
		if t, ok := format.ParseDate(rec[startDateField], loc); ok {
			o.StartDate = t
		}
		if t, ok := format.ParseDate(rec[endDateField], loc); ok {
			o.FinishDate = t
		}
		if q, err := decimal.NewFromString(field(rec, quantityField)); err == nil {
			o.Quantity = decimal.NewNullDecimal(q)
		}
		out = append(out, o)
	}
	return out
}

func field(rec map[string]string, key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSpace(rec[key])
}
