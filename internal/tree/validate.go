// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateInsertion checks whether a category called name may be created
// under parentID (nil for root level). It only reads; a concurrent writer
// can still invalidate the result, which is why Create re-runs it inside
// its transaction.
func (s *Service) ValidateInsertion(ctx context.Context, parentID *uuid.UUID, name string) error {
	_, err := s.validateInsertion(ctx, s.store, parentID, name)
	return err
}

// validateInsertion runs the checks in order, stopping at the first failure,
// and returns the normalized name.
func (s *Service) validateInsertion(ctx context.Context, st NodeStore, parentID *uuid.UUID, name string) (string, error) {
	name, err := s.validateName(name)
	if err != nil {
		return "", err
	}

	if parentID != nil {
		parent, err := st.FindByID(ctx, *parentID)
		if err != nil {
			return "", storeFailure("find parent", err)
		}
		if parent == nil {
			return "", violation(ErrParentNotFound, "parent", "Parent category %s does not exist.", *parentID)
		}

		depth, err := depthOf(ctx, st, parent.ID, s.limits.MaxHops)
		if err != nil {
			return "", err
		}
		if depth >= s.limits.MaxDepth {
			return "", violation(ErrDepthExceeded, "parent",
				"Parent category is already at the maximum depth of %d.", s.limits.MaxDepth)
		}

		if len(parent.Children) >= s.limits.MaxChildren {
			return "", violation(ErrFanOutExceeded, "parent",
				"The limit of %d subcategories has been reached.", s.limits.MaxChildren)
		}
	}

	if err := s.checkSibling(ctx, st, parentID, name, uuid.Nil); err != nil {
		return "", err
	}
	return name, nil
}

// validateName trims name and enforces presence and length.
func (s *Service) validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", violation(ErrEmptyName, "name", "Name is required.")
	}
	if utf8.RuneCountInString(name) > s.limits.MaxNameLen {
		return "", violation(ErrNameTooLong, "name", "Name is too long (max %d characters).", s.limits.MaxNameLen)
	}
	return name, nil
}

// checkSibling rejects name if another node under parentID already uses it.
// self is ignored so a node does not collide with itself on rename.
func (s *Service) checkSibling(ctx context.Context, st NodeStore, parentID *uuid.UUID, name string, self uuid.UUID) error {
	existing, err := st.FindSibling(ctx, parentID, name)
	if err != nil {
		return storeFailure("find sibling", err)
	}
	if existing != nil && existing.ID != self {
		return violation(ErrDuplicateSibling, "name", "A category named %q already exists at this level.", name)
	}
	return nil
}
