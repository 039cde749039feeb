// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package tree enforces the structural rules of the category forest: bounded
// depth, bounded fan-out, and sibling name uniqueness. It links new nodes
// into their parent, cascades deletion through subtrees, and serves
// paginated listings. Persistence is delegated to a NodeStore.
package tree

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"taxonomy/internal/models"
)

// Limits bounds the shape of the forest.
type Limits struct {
	// MaxDepth is the deepest a node may sit; a parent at this depth
	// cannot bear children.
	MaxDepth int
	// MaxChildren is the fan-out cap per node.
	MaxChildren int
	// MaxNameLen caps name length in runes.
	MaxNameLen int
	// MaxHops caps every ancestor or descendant walk.
	MaxHops int
}

// DefaultLimits returns the standard forest limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:    5,
		MaxChildren: 20,
		MaxNameLen:  200,
		MaxHops:     64,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxChildren <= 0 {
		l.MaxChildren = d.MaxChildren
	}
	if l.MaxNameLen <= 0 {
		l.MaxNameLen = d.MaxNameLen
	}
	if l.MaxHops <= 0 {
		l.MaxHops = d.MaxHops
	}
	if l.MaxHops <= l.MaxDepth {
		l.MaxHops = l.MaxDepth + 1
	}
	return l
}

// Service is the category tree engine. It holds no state besides its store
// and limits, so one instance is shared by all requests.
type Service struct {
	store  NodeStore
	limits Limits
}

// NewService returns a Service over store. Zero fields in limits fall back
// to DefaultLimits.
func NewService(store NodeStore, limits Limits) *Service {
	return &Service{store: store, limits: limits.withDefaults()}
}

// Limits returns the effective limits.
func (s *Service) Limits() Limits {
	return s.limits
}

// Get returns the category with the given ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure("find category", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListChildren returns the records listed in the parent's children, in list
// order. IDs that no longer resolve are skipped.
func (s *Service) ListChildren(ctx context.Context, parentID uuid.UUID) ([]models.Category, error) {
	parent, err := s.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}

	items := make([]models.Category, 0, len(parent.Children))
	for _, childID := range parent.Children {
		child, err := s.store.FindByID(ctx, childID)
		if err != nil {
			return nil, storeFailure("find child", err)
		}
		if child == nil {
			slog.Warn("dangling child reference", "parent", parentID, "child", childID)
			continue
		}
		items = append(items, *child)
	}
	return items, nil
}
