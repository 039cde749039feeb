// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"
	"strconv"
)

// SortField is a category attribute listings can be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByCreatedAt SortField = "created_at"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	return f == SortByName || f == SortByCreatedAt
}

// SortOrder is the direction of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// CategoryFilter narrows which categories a listing considers.
// A nil field means "no filtering" on that attribute.
type CategoryFilter struct {
	Active *bool
}

// Key returns a stable string form of the filter, used in cache keys.
func (f CategoryFilter) Key() string {
	if f.Active == nil {
		return "active=*"
	}
	return "active=" + strconv.FormatBool(*f.Active)
}

// CategoryQuery is a filtered, sorted, windowed store lookup.
// A Limit of zero means no limit.
type CategoryQuery struct {
	Filter CategoryFilter
	Offset int
	Limit  int
	Sort   SortField
	Order  SortOrder
}

// Page is the envelope returned by paginated listings.
type Page struct {
	Items      []Category `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"total_pages"`
}

// PageRequest describes a requested listing page.
type PageRequest struct {
	Filter CategoryFilter
	Page   int
	Size   int
	Sort   SortField
	Order  SortOrder
}

// Key returns a stable string form of the request, used in cache keys.
func (r PageRequest) Key() string {
	return fmt.Sprintf("%s:page=%d:size=%d:sort=%s:%s", r.Filter.Key(), r.Page, r.Size, r.Sort, r.Order)
}
