package model

import "time"

// CountFamily holds the dashboard counters for one order kind.
// Errors lists the counters that could not be loaded; their value is 0.
type CountFamily struct {
	Kind   Kind     `json:"kind"`
	MTD    int      `json:"mtd"`
	YTD    int      `json:"ytd"`
	Total  int      `json:"total"`
	Errors []string `json:"errors,omitempty"`
}

type Dashboard struct {
	Planned     CountFamily `json:"planned_orders"`
	Production  CountFamily `json:"production_orders"`
	LastUpdated time.Time   `json:"last_updated"`
}

type ScreenState string

const (
	ScreenLoading ScreenState = "Loading"
	ScreenReady   ScreenState = "Ready"
)
