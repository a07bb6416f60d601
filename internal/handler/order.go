package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopfloor/internal/format"
	"shopfloor/internal/model"
	"shopfloor/internal/mw"
	"shopfloor/internal/orders"
	"shopfloor/internal/service"
)

const (
	periodMTD = "MTD"
	periodYTD = "YTD"
)

var kindTitles = map[model.Kind]string{
	model.KindPlanned:    "Planned Orders",
	model.KindProduction: "Production Orders",
}

type orderRow struct {
	Number         string `json:"number"`
	StartDate      string `json:"start_date"`
	FinishDate     string `json:"finish_date"`
	Material       string `json:"material,omitempty"`
	Plant          string `json:"plant,omitempty"`
	Description    string `json:"description,omitempty"`
	EnteredBy      string `json:"entered_by,omitempty"`
	OrderType      string `json:"order_type,omitempty"`
	OrderTypeText  string `json:"order_type_text,omitempty"`
	OrderTypeState string `json:"order_type_state,omitempty"`
	Quantity       string `json:"quantity,omitempty"`
}

type orderListResponse struct {
	Kind          model.Kind        `json:"kind"`
	Title         string            `json:"title"`
	Period        string            `json:"period"`
	Month         string            `json:"month"`
	MonthEditable bool              `json:"month_editable"`
	Query         string            `json:"query,omitempty"`
	State         model.ScreenState `json:"state"`
	Count         int               `json:"count"`
	Total         int               `json:"total"`
	FetchedAt     string            `json:"fetched_at,omitempty"`
	Summary       model.CountFamily `json:"summary"`
	Orders        []orderRow        `json:"orders"`
}

type listParams struct {
	period string
	month  orders.Month
	query  string
}

// parseListParams reads period, month and q. MTD preselects the current
// month and lets the caller pick another; YTD always shows all months.
func parseListParams(r *http.Request, loc *time.Location) (listParams, error) {
	q := r.URL.Query()
	p := listParams{
		period: strings.ToUpper(strings.TrimSpace(q.Get("period"))),
		query:  strings.TrimSpace(q.Get("q")),
	}

	switch p.period {
	case "", periodMTD:
		p.period = periodMTD
		raw := strings.TrimSpace(q.Get("month"))
		if raw == "" {
			p.month = orders.Month(now().In(loc).Month())
			return p, nil
		}
		m, err := orders.ParseMonth(raw)
		if err != nil {
			return p, err
		}
		p.month = m
	case periodYTD:
		p.month = orders.AllMonths
	default:
		return p, fmt.Errorf("unknown period %q", p.period)
	}
	return p, nil
}

func toRows(list []model.Order, loc *time.Location) []orderRow {
	rows := make([]orderRow, 0, len(list))
	for _, o := range list {
		row := orderRow{
			Number:      o.Number,
			StartDate:   format.FormatDate(o.StartDate, loc),
			FinishDate:  format.FormatDate(o.FinishDate, loc),
			Material:    o.Material,
			Plant:       o.Plant,
			Description: o.Description,
			EnteredBy:   o.EnteredBy,
			Quantity:    format.FormatQuantity(o.Quantity, o.Unit),
		}
		if o.Kind == model.KindProduction {
			row.OrderType = o.OrderType
			row.OrderTypeText = format.FormatOrderType(o.OrderType)
			row.OrderTypeState = orders.OrderTypeState(o.OrderType)
		}
		rows = append(rows, row)
	}
	return rows
}

func listResponse(res *service.ListResult, p listParams, loc *time.Location) orderListResponse {
	return orderListResponse{
		Kind:          res.Kind,
		Title:         format.FormatTitle(kindTitles[res.Kind], p.period),
		Period:        p.period,
		Month:         p.month.String(),
		MonthEditable: p.period == periodMTD,
		Query:         p.query,
		State:         res.State,
		Count:         res.Count,
		Total:         res.Total,
		FetchedAt:     format.FormatTime(res.FetchedAt, loc),
		Summary:       res.Summary,
		Orders:        toRows(res.Orders, loc),
	}
}

func ListOrdersHandler(orderSvc *service.OrderService, kind model.Kind, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ls, ok := mw.Session(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := parseListParams(r, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := orderSvc.List(r.Context(), ls, kind, p.query, p.month)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, listResponse(res, p, loc))
	}
}

// RefreshOrdersHandler refetches the collection and answers with the same
// view ListOrdersHandler would.
func RefreshOrdersHandler(orderSvc *service.OrderService, kind model.Kind, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ls, ok := mw.Session(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := parseListParams(r, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := orderSvc.Refresh(r.Context(), ls, kind); err != nil {
			writeServiceError(w, err)
			return
		}

		res, err := orderSvc.List(r.Context(), ls, kind, p.query, p.month)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, listResponse(res, p, loc))
	}
}
