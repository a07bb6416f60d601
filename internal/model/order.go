package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPlanned    Kind = "PlannedOrder"
	KindProduction Kind = "ProductionOrder"
)

// EntitySet returns the OData collection the kind is read from.
func (k Kind) EntitySet() string {
	switch k {
	case KindPlanned:
		return "PlannedOrderSet"
	case KindProduction:
		return "ProductionOrderSet"
	default:
		return ""
	}
}

// Order is a planned or production order as read from the order source.
// StartDate is normalized at ingestion; the zero value means the source
// date was missing or unparseable.
type Order struct {
	Kind         Kind                `json:"kind"`
	Number       string              `json:"number"`
	StartDate    time.Time           `json:"start_date"`
	RawStartDate string              `json:"-"`
	FinishDate   time.Time           `json:"finish_date"`
	Material     string              `json:"material,omitempty"`
	Plant        string              `json:"plant,omitempty"`
	Description  string              `json:"description,omitempty"`
	EnteredBy    string              `json:"entered_by,omitempty"`
	OrderType    string              `json:"order_type,omitempty"` // production orders only
	Quantity     decimal.NullDecimal `json:"quantity"`
	Unit         string              `json:"unit,omitempty"`
}

func (o Order) HasStartDate() bool {
	return !o.StartDate.IsZero()
}

// SearchableFields lists the attributes free-text search looks at, in order.
func (o Order) SearchableFields() []string {
	switch o.Kind {
	case KindPlanned:
		return []string{o.Number, o.Material, o.Plant}
	case KindProduction:
		return []string{o.Number, o.Description, o.Plant, o.EnteredBy}
	default:
		return []string{o.Number}
	}
}
