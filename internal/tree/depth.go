// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Depth returns the number of ancestor edges between id and its root.
// Roots and unknown IDs have depth 0.
func (s *Service) Depth(ctx context.Context, id uuid.UUID) (int, error) {
	return depthOf(ctx, s.store, id, s.limits.MaxHops)
}

// depthOf follows parent links upward, giving up with ErrStructuralIntegrity
// after maxHops edges.
func depthOf(ctx context.Context, st NodeStore, id uuid.UUID, maxHops int) (int, error) {
	depth := 0
	current := id
	for {
		node, err := st.FindByID(ctx, current)
		if err != nil {
			return 0, storeFailure("find ancestor", err)
		}
		if node == nil || node.ParentID == nil {
			return depth, nil
		}
		if depth >= maxHops {
			return 0, fmt.Errorf("%w: ancestor chain of %s exceeds %d hops", ErrStructuralIntegrity, id, maxHops)
		}
		depth++
		current = *node.ParentID
	}
}
