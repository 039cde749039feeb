// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taxonomy/internal/models"
	"taxonomy/internal/tree"
)

// MemoryStore is an in-process tree.NodeStore. Transactions take an
// exclusive lock and work on a copy that replaces the live state only when
// fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type memState struct {
	nodes map[uuid.UUID]*models.Category
	seq   map[uuid.UUID]int64
	next  int64
}

func newMemState() *memState {
	return &memState{
		nodes: make(map[uuid.UUID]*models.Category),
		seq:   make(map[uuid.UUID]int64),
	}
}

func (st *memState) clone() *memState {
	out := &memState{
		nodes: make(map[uuid.UUID]*models.Category, len(st.nodes)),
		seq:   make(map[uuid.UUID]int64, len(st.seq)),
		next:  st.next,
	}
	for id, c := range st.nodes {
		out.nodes[id] = c.Clone()
	}
	for id, n := range st.seq {
		out.seq[id] = n
	}
	return out
}

func (s *MemoryStore) view() *memView {
	return &memView{state: s.state}
}

func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindByID(ctx, id)
}

func (s *MemoryStore) FindSibling(ctx context.Context, parentID *uuid.UUID, name string) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindSibling(ctx, parentID, name)
}

func (s *MemoryStore) Find(ctx context.Context, q models.CategoryQuery) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Find(ctx, q)
}

func (s *MemoryStore) Count(ctx context.Context, f models.CategoryFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Count(ctx, f)
}

func (s *MemoryStore) Insert(ctx context.Context, c *models.Category) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().Insert(ctx, c)
}

func (s *MemoryStore) UpdateFields(ctx context.Context, id uuid.UUID, u models.CategoryUpdate) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().UpdateFields(ctx, id, u)
}

func (s *MemoryStore) AppendChild(ctx context.Context, parentID, childID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().AppendChild(ctx, parentID, childID)
}

func (s *MemoryStore) RemoveChild(ctx context.Context, parentID, childID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().RemoveChild(ctx, parentID, childID)
}

func (s *MemoryStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().DeleteByID(ctx, id)
}

// WithTx runs fn on a private copy of the state and publishes it on success.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tree.NodeStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	if err := fn(&memView{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// memView implements tree.NodeStore over a state the caller already holds
// the lock for.
type memView struct {
	state *memState
}

func (v *memView) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	c, ok := v.state.nodes[id]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (v *memView) FindSibling(_ context.Context, parentID *uuid.UUID, name string) (*models.Category, error) {
	if c := v.sibling(parentID, name); c != nil {
		return c.Clone(), nil
	}
	return nil, nil
}

func (v *memView) sibling(parentID *uuid.UUID, name string) *models.Category {
	for _, c := range v.state.nodes {
		if c.Name == name && sameParent(c.ParentID, parentID) {
			return c
		}
	}
	return nil
}

func (v *memView) Find(_ context.Context, q models.CategoryQuery) ([]models.Category, error) {
	var items []models.Category
	for _, c := range v.state.nodes {
		if matches(c, q.Filter) {
			items = append(items, *c.Clone())
		}
	}

	desc := q.Order == models.SortDesc
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		var cmp int
		if q.Sort == models.SortByCreatedAt {
			cmp = compareInt64(v.state.seq[a.ID], v.state.seq[b.ID])
		} else {
			cmp = strings.Compare(a.Name, b.Name)
			if cmp == 0 {
				cmp = compareInt64(v.state.seq[a.ID], v.state.seq[b.ID])
			}
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return []models.Category{}, nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items, nil
}

func (v *memView) Count(_ context.Context, f models.CategoryFilter) (int, error) {
	n := 0
	for _, c := range v.state.nodes {
		if matches(c, f) {
			n++
		}
	}
	return n, nil
}

func (v *memView) Insert(_ context.Context, c *models.Category) (*models.Category, error) {
	if v.sibling(c.ParentID, c.Name) != nil {
		return nil, tree.ErrDuplicateSibling
	}

	stored := c.Clone()
	stored.ID = uuid.New()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Children == nil {
		stored.Children = []uuid.UUID{}
	}

	v.state.next++
	v.state.nodes[stored.ID] = stored
	v.state.seq[stored.ID] = v.state.next
	return stored.Clone(), nil
}

func (v *memView) UpdateFields(_ context.Context, id uuid.UUID, u models.CategoryUpdate) (*models.Category, error) {
	c, ok := v.state.nodes[id]
	if !ok {
		return nil, nil
	}
	if u.Name != nil && *u.Name != c.Name {
		if v.sibling(c.ParentID, *u.Name) != nil {
			return nil, tree.ErrDuplicateSibling
		}
		c.Name = *u.Name
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
	c.UpdatedAt = time.Now().UTC()
	return c.Clone(), nil
}

func (v *memView) AppendChild(_ context.Context, parentID, childID uuid.UUID) error {
	parent, ok := v.state.nodes[parentID]
	if !ok {
		return fmt.Errorf("append child: parent %s does not exist", parentID)
	}
	if parent.HasChild(childID) {
		return nil
	}
	parent.Children = append(parent.Children, childID)
	return nil
}

func (v *memView) RemoveChild(_ context.Context, parentID, childID uuid.UUID) error {
	parent, ok := v.state.nodes[parentID]
	if !ok {
		return nil
	}
	kept := parent.Children[:0]
	for _, id := range parent.Children {
		if id != childID {
			kept = append(kept, id)
		}
	}
	parent.Children = kept
	return nil
}

func (v *memView) DeleteByID(_ context.Context, id uuid.UUID) error {
	delete(v.state.nodes, id)
	delete(v.state.seq, id)
	return nil
}

// WithTx on a view is already inside a transaction, so fn joins it.
func (v *memView) WithTx(_ context.Context, fn func(tree.NodeStore) error) error {
	return fn(v)
}

func matches(c *models.Category, f models.CategoryFilter) bool {
	return f.Active == nil || c.Active == *f.Active
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
