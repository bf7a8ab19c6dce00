package models

import "strings"

// SortItem orders rows by one column.
type SortItem struct {
	ColID string `json:"colId"`
	Sort  string `json:"sort"`
}

// Desc reports whether the sort is descending.
func (s SortItem) Desc() bool {
	return strings.EqualFold(s.Sort, "desc")
}

// SortModel is applied left to right.
type SortModel []SortItem

// Filter types understood by the collection store.
const (
	FilterContains    = "contains"
	FilterNotContains = "notContains"
	FilterEquals      = "equals"
	FilterNotEqual    = "notEqual"
	FilterStartsWith  = "startsWith"
	FilterEndsWith    = "endsWith"
	FilterBlank       = "blank"
	FilterNotBlank    = "notBlank"
	FilterGreaterThan = "greaterThan"
	FilterLessThan    = "lessThan"
	FilterInRange     = "inRange"
)

// FilterItem is a condition on one column, or a combination of conditions when
// Operator is set.
type FilterItem struct {
	FilterType string `json:"filterType"`
	Type       string `json:"type,omitempty"`
	Filter     any    `json:"filter,omitempty"`
	FilterTo   any    `json:"filterTo,omitempty"`
	DateFrom   string `json:"dateFrom,omitempty"`
	DateTo     string `json:"dateTo,omitempty"`

	Operator   string       `json:"operator,omitempty"`
	Conditions []FilterItem `json:"conditions,omitempty"`
}

// Combined reports whether the item joins several conditions.
func (f FilterItem) Combined() bool {
	return f.Operator != "" && len(f.Conditions) > 0
}

// FilterModel maps column names to their conditions; columns are joined with AND.
type FilterModel map[string]FilterItem

// TextFilter is a contains condition, the filter the search box produces.
func TextFilter(text string) FilterItem {
	return FilterItem{FilterType: "text", Type: FilterContains, Filter: text}
}
