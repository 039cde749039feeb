// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"taxonomy/internal/models"
)

// Reconcile repairs drift between parent references and children lists: a
// node missing from its parent's children is appended, and a child ID that
// does not resolve or points back at another parent is dropped. It returns
// the number of links repaired.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	var repaired int
	err := s.store.WithTx(ctx, func(tx NodeStore) error {
		repaired = 0

		flat, err := all(ctx, tx)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*models.Category, len(flat))
		for i := range flat {
			byID[flat[i].ID] = &flat[i]
		}

		for _, parent := range flat {
			for _, childID := range parent.Children {
				child, ok := byID[childID]
				if ok && child.ParentID != nil && *child.ParentID == parent.ID {
					continue
				}
				if err := tx.RemoveChild(ctx, parent.ID, childID); err != nil {
					return storeFailure("drop dangling child", err)
				}
				slog.Warn("dropped dangling child", "parent", parent.ID, "child", childID)
				repaired++
			}
		}

		// Children are appended in creation order so orphans keep their
		// relative order when relinked.
		for _, c := range sortedByCreation(flat) {
			if c.ParentID == nil {
				continue
			}
			parent, ok := byID[*c.ParentID]
			if !ok {
				slog.Warn("category references a missing parent", "id", c.ID, "parent", *c.ParentID)
				continue
			}
			if parent.HasChild(c.ID) {
				continue
			}
			if err := tx.AppendChild(ctx, parent.ID, c.ID); err != nil {
				return storeFailure("relink orphan", err)
			}
			parent.Children = append(parent.Children, c.ID)
			slog.Warn("relinked orphan category", "parent", parent.ID, "child", c.ID)
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, storeFailure("reconcile", err)
	}
	return repaired, nil
}

func sortedByCreation(flat []models.Category) []models.Category {
	out := append([]models.Category(nil), flat...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
