// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taxonomy/internal/metrics"
	"taxonomy/internal/models"
)

// Create validates and inserts a new category, linking it into its parent's
// children. Validation, insert and link share one transaction.
func (s *Service) Create(ctx context.Context, name string, active bool, parentID *uuid.UUID) (*models.Category, error) {
	defer metrics.ObserveDuration("create", time.Now())

	var created *models.Category
	err := s.store.WithTx(ctx, func(tx NodeStore) error {
		normalized, err := s.validateInsertion(ctx, tx, parentID, name)
		if err != nil {
			return err
		}

		c, err := tx.Insert(ctx, &models.Category{
			Name:     normalized,
			Active:   active,
			ParentID: parentID,
			Children: []uuid.UUID{},
		})
		if errors.Is(err, ErrDuplicateSibling) {
			return violation(ErrDuplicateSibling, "name", "A category named %q already exists at this level.", normalized)
		}
		if err != nil {
			return storeFailure("insert category", err)
		}

		if parentID != nil {
			if err := tx.AppendChild(ctx, *parentID, c.ID); err != nil {
				return storeFailure("link child", err)
			}
		}
		created = c
		return nil
	})
	err = storeFailure("create category", err)
	s.record("create", err)
	if err != nil {
		return nil, err
	}

	slog.Info("category created", "id", created.ID, "name", created.Name, "parent", created.ParentID)
	return created, nil
}

// Update changes a category's name and/or active flag. A new name goes
// through the same name and sibling checks as creation.
func (s *Service) Update(ctx context.Context, id uuid.UUID, u models.CategoryUpdate) (*models.Category, error) {
	defer metrics.ObserveDuration("update", time.Now())

	var updated *models.Category
	err := s.store.WithTx(ctx, func(tx NodeStore) error {
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return storeFailure("find category", err)
		}
		if current == nil {
			return ErrNotFound
		}

		if u.Name != nil {
			name, err := s.validateName(*u.Name)
			if err != nil {
				return err
			}
			if name != current.Name {
				if err := s.checkSibling(ctx, tx, current.ParentID, name, id); err != nil {
					return err
				}
			}
			u.Name = &name
		}

		if u.IsEmpty() {
			updated = current
			return nil
		}

		c, err := tx.UpdateFields(ctx, id, u)
		if errors.Is(err, ErrDuplicateSibling) {
			return violation(ErrDuplicateSibling, "name", "A category named %q already exists at this level.", *u.Name)
		}
		if err != nil {
			return storeFailure("update category", err)
		}
		if c == nil {
			return ErrNotFound
		}
		updated = c
		return nil
	})
	err = storeFailure("update category", err)
	s.record("update", err)
	if err != nil {
		return nil, err
	}

	slog.Info("category updated", "id", id)
	return updated, nil
}

// deleteFrame is one pending node in the post-order deletion walk.
type deleteFrame struct {
	id       uuid.UUID
	depth    int
	expanded bool
}

// DeleteSubtree removes the category and all its descendants, children
// before parents, and unlinks it from its own parent. It returns how many
// records were removed.
func (s *Service) DeleteSubtree(ctx context.Context, id uuid.UUID) (int, error) {
	defer metrics.ObserveDuration("delete", time.Now())

	var removed int
	err := s.store.WithTx(ctx, func(tx NodeStore) error {
		removed = 0

		root, err := tx.FindByID(ctx, id)
		if err != nil {
			return storeFailure("find category", err)
		}
		if root == nil {
			return ErrNotFound
		}

		if root.ParentID != nil {
			if err := tx.RemoveChild(ctx, *root.ParentID, id); err != nil {
				return storeFailure("unlink from parent", err)
			}
		}

		visited := make(map[uuid.UUID]bool)
		stack := []deleteFrame{{id: id}}
		for len(stack) > 0 {
			top := len(stack) - 1
			frame := stack[top]

			if frame.expanded {
				if err := tx.DeleteByID(ctx, frame.id); err != nil {
					return storeFailure("delete category", err)
				}
				removed++
				stack = stack[:top]
				continue
			}

			node, err := tx.FindByID(ctx, frame.id)
			if err != nil {
				return storeFailure("find descendant", err)
			}
			if node == nil {
				slog.Warn("skipping dangling child during delete", "id", frame.id)
				stack = stack[:top]
				continue
			}
			if visited[node.ID] {
				return fmt.Errorf("%w: %s reached twice below %s", ErrStructuralIntegrity, node.ID, id)
			}
			visited[node.ID] = true
			if len(node.Children) > 0 && frame.depth >= s.limits.MaxHops {
				return fmt.Errorf("%w: subtree of %s deeper than %d hops", ErrStructuralIntegrity, id, s.limits.MaxHops)
			}

			stack[top].expanded = true
			for i := len(node.Children) - 1; i >= 0; i-- {
				stack = append(stack, deleteFrame{id: node.Children[i], depth: frame.depth + 1})
			}
		}
		return nil
	})
	err = storeFailure("delete subtree", err)
	s.record("delete", err)
	if err != nil {
		return 0, err
	}

	metrics.ObserveSubtreeDeleted(removed)
	slog.Info("category subtree deleted", "id", id, "removed", removed)
	return removed, nil
}

// record feeds the mutation and rejection counters.
func (s *Service) record(op string, err error) {
	metrics.RecordMutation(op, outcome(err))
	if IsValidation(err) {
		metrics.RecordRejection(Code(err))
	}
}
