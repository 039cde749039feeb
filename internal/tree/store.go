// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"

	"github.com/google/uuid"

	"taxonomy/internal/models"
)

// NodeStore is the persistence collaborator of the tree service.
//
// Lookups return (nil, nil) when nothing matches. Insert must report a
// (name, parent) collision as ErrDuplicateSibling. WithTx runs fn against a
// store view whose writes commit together or not at all; implementations
// may call fn more than once when a conflicting writer forces a retry.
type NodeStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindSibling(ctx context.Context, parentID *uuid.UUID, name string) (*models.Category, error)
	Find(ctx context.Context, q models.CategoryQuery) ([]models.Category, error)
	Count(ctx context.Context, f models.CategoryFilter) (int, error)
	Insert(ctx context.Context, c *models.Category) (*models.Category, error)
	UpdateFields(ctx context.Context, id uuid.UUID, u models.CategoryUpdate) (*models.Category, error)
	AppendChild(ctx context.Context, parentID, childID uuid.UUID) error
	RemoveChild(ctx context.Context, parentID, childID uuid.UUID) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	WithTx(ctx context.Context, fn func(NodeStore) error) error
}
