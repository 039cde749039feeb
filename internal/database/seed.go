// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"taxonomy/internal/models"
	"taxonomy/internal/tree"
)

// seedNode is one category of the development taxonomy.
type seedNode struct {
	name     string
	children []seedNode
}

// devTaxonomy is created on first start in development.
var devTaxonomy = []seedNode{
	{name: "Electronics", children: []seedNode{
		{name: "Phones", children: []seedNode{{name: "Smartphones"}, {name: "Feature Phones"}}},
		{name: "Laptops"},
		{name: "Audio", children: []seedNode{{name: "Headphones"}, {name: "Speakers"}}},
	}},
	{name: "Home", children: []seedNode{
		{name: "Kitchen"},
		{name: "Furniture"},
	}},
	{name: "Books"},
}

// Seed populates an empty category forest with a small sample taxonomy.
// Categories go through the tree service so every invariant holds.
func Seed(ctx context.Context, svc *tree.Service) error {
	page, err := svc.List(ctx, models.PageRequest{Size: 1})
	if err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if page.Total > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	created, err := seedLevel(ctx, svc, nil, devTaxonomy)
	if err != nil {
		return err
	}

	slog.Info("database seeded with sample taxonomy", "categories", created)
	return nil
}

func seedLevel(ctx context.Context, svc *tree.Service, parentID *uuid.UUID, nodes []seedNode) (int, error) {
	count := 0
	for _, n := range nodes {
		c, err := svc.Create(ctx, n.name, true, parentID)
		if err != nil {
			return count, fmt.Errorf("seed category %q: %w", n.name, err)
		}
		count++

		sub, err := seedLevel(ctx, svc, &c.ID, n.children)
		count += sub
		if err != nil {
			return count, err
		}
	}
	return count, nil
}
