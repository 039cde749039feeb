// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxonomy/internal/models"
	"taxonomy/internal/tree"
)

func TestMemoryStoreInsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, err := s.Insert(ctx, &models.Category{Name: "Books", Active: true})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID, "Insert should assign an id")
	assert.NotNil(t, c.Children, "Children should be an empty list, not nil")

	_, err = s.Insert(ctx, &models.Category{Name: "Books"})
	assert.ErrorIs(t, err, tree.ErrDuplicateSibling)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	c, err := s.Insert(ctx, &models.Category{Name: "Books", Active: true})
	require.NoError(t, err)
	got, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	got.Name = "Changed"
	got.Children = append(got.Children, uuid.New())

	again, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Books", again.Name)
	assert.Empty(t, again.Children)
}

func TestMemoryStoreWithTxRollback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	parent, err := s.Insert(ctx, &models.Category{Name: "P", Active: true})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(tx tree.NodeStore) error {
		c, err := tx.Insert(ctx, &models.Category{Name: "C", ParentID: &parent.ID})
		if err != nil {
			return err
		}
		if err := tx.AppendChild(ctx, parent.ID, c.ID); err != nil {
			return err
		}
		// Nested calls join the open transaction.
		return tx.WithTx(ctx, func(tree.NodeStore) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	n, err := s.Count(ctx, models.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Children)
}

func TestMemoryStoreWithTxCommit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx tree.NodeStore) error {
		_, err := tx.Insert(ctx, &models.Category{Name: "A"})
		return err
	})
	require.NoError(t, err)

	n, err := s.Count(ctx, models.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStoreWithTxCanceled(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTx(ctx, func(tree.NodeStore) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStoreFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, name := range []string{"delta", "alpha", "charlie", "bravo", "echo"} {
		_, err := s.Insert(ctx, &models.Category{Name: name, Active: name != "charlie"})
		require.NoError(t, err)
	}

	tests := []struct {
		name string
		q    models.CategoryQuery
		want []string
	}{
		{"name asc", models.CategoryQuery{Sort: models.SortByName}, []string{"alpha", "bravo", "charlie", "delta", "echo"}},
		{"name desc", models.CategoryQuery{Sort: models.SortByName, Order: models.SortDesc}, []string{"echo", "delta", "charlie", "bravo", "alpha"}},
		{"created", models.CategoryQuery{Sort: models.SortByCreatedAt}, []string{"delta", "alpha", "charlie", "bravo", "echo"}},
		{"window", models.CategoryQuery{Sort: models.SortByName, Offset: 1, Limit: 2}, []string{"bravo", "charlie"}},
		{"past end", models.CategoryQuery{Offset: 10}, []string{}},
		{"active", models.CategoryQuery{Filter: models.CategoryFilter{Active: boolPtr(false)}}, []string{"charlie"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := s.Find(ctx, tt.q)
			require.NoError(t, err)

			names := make([]string, 0, len(items))
			for _, c := range items {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestMemoryStoreChildren(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	parent, err := s.Insert(ctx, &models.Category{Name: "P"})
	require.NoError(t, err)
	a, b := uuid.New(), uuid.New()

	require.NoError(t, s.AppendChild(ctx, parent.ID, a))
	require.NoError(t, s.AppendChild(ctx, parent.ID, b))
	require.NoError(t, s.AppendChild(ctx, parent.ID, a))

	got, err := s.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 2, "AppendChild should be idempotent")

	require.NoError(t, s.RemoveChild(ctx, parent.ID, a))
	got, err = s.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, got.Children)

	assert.Error(t, s.AppendChild(ctx, uuid.New(), a), "AppendChild to a missing parent should fail")
	assert.NoError(t, s.RemoveChild(ctx, uuid.New(), a))
}

func TestMemoryStoreUpdateFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Insert(ctx, &models.Category{Name: "a"})
	require.NoError(t, err)
	b, err := s.Insert(ctx, &models.Category{Name: "b"})
	require.NoError(t, err)

	taken := "a"
	_, err = s.UpdateFields(ctx, b.ID, models.CategoryUpdate{Name: &taken})
	assert.ErrorIs(t, err, tree.ErrDuplicateSibling)

	name := "c"
	got, err := s.UpdateFields(ctx, b.ID, models.CategoryUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "c", got.Name)

	got, err = s.UpdateFields(ctx, uuid.New(), models.CategoryUpdate{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, got, "UpdateFields on a missing id should return nil")
}

func TestMemoryStoreConcurrentCreates(t *testing.T) {
	s := NewMemoryStore()
	svc := tree.NewService(s, tree.Limits{MaxChildren: 5})
	ctx := context.Background()

	parent, err := svc.Create(ctx, "P", true, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.Create(ctx, fmt.Sprintf("child-%d", i), true, &parent.ID)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, got.Children, 5)

	n, err := s.Count(ctx, models.CategoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func boolPtr(b bool) *bool { return &b }
