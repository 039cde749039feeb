// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a node in the category forest. ParentID is a back-reference;
// Children is the authoritative, creation-ordered list of child IDs.
type Category struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	ParentID  *uuid.UUID  `json:"parent_id"`
	Children  []uuid.UUID `json:"children"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// HasChild reports whether id is listed in the category's children.
func (c *Category) HasChild(id uuid.UUID) bool {
	for _, child := range c.Children {
		if child == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so callers can mutate the result freely.
func (c *Category) Clone() *Category {
	out := *c
	if c.ParentID != nil {
		p := *c.ParentID
		out.ParentID = &p
	}
	out.Children = make([]uuid.UUID, len(c.Children))
	copy(out.Children, c.Children)
	return &out
}

// CategoryUpdate holds the mutable fields of a category. Nil means unchanged.
type CategoryUpdate struct {
	Name   *string
	Active *bool
}

// IsEmpty reports whether the update changes nothing.
func (u CategoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Active == nil
}

// CategoryNode is the nested view of a category used by the forest listing.
// Depth and Children are virtual fields populated by the tree service.
type CategoryNode struct {
	Category
	Depth    int            `json:"depth"`
	Children []CategoryNode `json:"children,omitempty"`
}
