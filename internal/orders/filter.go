package orders

import (
	"fmt"
	"strconv"
	"strings"

	"shopfloor/internal/model"
)

// Month selects a calendar month regardless of year. AllMonths disables the
// month predicate.
type Month int

const AllMonths Month = 0

// ParseMonth accepts "All" (or an empty value) and "1" through "12".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllMonths, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return AllMonths, fmt.Errorf("invalid month %q", s)
	}
	return Month(n), nil
}

func (m Month) String() string {
	if m == AllMonths {
		return "All"
	}
	return strconv.Itoa(int(m))
}

// Filter returns the orders matching query AND month, keeping their
// relative order, plus the number of matches. The input is not modified.
func Filter(list []model.Order, query string, month Month) ([]model.Order, int) {
	q := strings.ToLower(query)
	out := make([]model.Order, 0, len(list))
	for _, o := range list {
		if matchesQuery(o, q) && matchesMonth(o, month) {
			out = append(out, o)
		}
	}
	return out, len(out)
}

func matchesQuery(o model.Order, lowerQuery string) bool {
	if lowerQuery == "" {
		return true
	}
	for _, f := range o.SearchableFields() {
		if strings.Contains(strings.ToLower(f), lowerQuery) {
			return true
		}
	}
	return false
}

func matchesMonth(o model.Order, m Month) bool {
	if m == AllMonths {
		return true
	}
	if !o.HasStartDate() {
		return false
	}
	return int(o.StartDate.Month()) == int(m)
}

var orderTypeStates = map[string]string{
	"PM01": "Success",
	"PM02": "Error",
	"PP01": "None",
	"CU01": "Warning",
}

// OrderTypeState maps a production order type to the severity used to style
// it: Success, Error, Warning or None.
func OrderTypeState(code string) string {
	if s, ok := orderTypeStates[code]; ok {
		return s
	}
	return "None"
}
