// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"taxonomy/internal/models"
)

// Listing defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// NormalizePage fills in defaults for missing or out-of-range fields.
func NormalizePage(req models.PageRequest) models.PageRequest {
	if req.Page < 1 {
		req.Page = DefaultPage
	}
	if req.Size < 1 {
		req.Size = DefaultPageSize
	}
	if req.Size > MaxPageSize {
		req.Size = MaxPageSize
	}
	if !req.Sort.Valid() {
		req.Sort = models.SortByName
	}
	if !req.Order.Valid() {
		req.Order = models.SortAsc
	}
	return req
}

// List returns one page of categories matching the filter. Total counts
// every match regardless of the page window.
func (s *Service) List(ctx context.Context, req models.PageRequest) (*models.Page, error) {
	req = NormalizePage(req)

	total, err := s.store.Count(ctx, req.Filter)
	if err != nil {
		return nil, storeFailure("count categories", err)
	}

	page := &models.Page{
		Items:      []models.Category{},
		Total:      total,
		Page:       req.Page,
		Size:       req.Size,
		TotalPages: (total + req.Size - 1) / req.Size,
	}
	// Windows starting past the last match are empty. The division guards
	// the offset product against overflow for huge page numbers.
	if req.Page-1 > math.MaxInt/req.Size || (req.Page-1)*req.Size >= total {
		return page, nil
	}

	items, err := s.store.Find(ctx, models.CategoryQuery{
		Filter: req.Filter,
		Offset: (req.Page - 1) * req.Size,
		Limit:  req.Size,
		Sort:   req.Sort,
		Order:  req.Order,
	})
	if err != nil {
		return nil, storeFailure("find categories", err)
	}
	if items != nil {
		page.Items = items
	}
	return page, nil
}

// all loads every category in name order.
func all(ctx context.Context, st NodeStore) ([]models.Category, error) {
	items, err := st.Find(ctx, models.CategoryQuery{Sort: models.SortByName, Order: models.SortAsc})
	if err != nil {
		return nil, storeFailure("load categories", err)
	}
	return items, nil
}

// Forest returns every root with its descendants nested beneath it, roots in
// name order and children in list order. Each node carries its depth.
func (s *Service) Forest(ctx context.Context) ([]models.CategoryNode, error) {
	flat, err := all(ctx, s.store)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Category, len(flat))
	var roots []models.Category
	for _, c := range flat {
		byID[c.ID] = c
		if c.IsRoot() {
			roots = append(roots, c)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	visited := make(map[uuid.UUID]bool, len(flat))
	result := make([]models.CategoryNode, 0, len(roots))
	for _, root := range roots {
		node, err := s.buildNode(root, byID, visited, 0)
		if err != nil {
			return nil, err
		}
		result = append(result, node)
	}
	return result, nil
}

// buildNode nests c's children under it. Recursion is bounded by MaxHops.
func (s *Service) buildNode(c models.Category, byID map[uuid.UUID]models.Category, visited map[uuid.UUID]bool, depth int) (models.CategoryNode, error) {
	if visited[c.ID] {
		return models.CategoryNode{}, fmt.Errorf("%w: %s appears twice in the forest", ErrStructuralIntegrity, c.ID)
	}
	if depth > s.limits.MaxHops {
		return models.CategoryNode{}, fmt.Errorf("%w: forest deeper than %d hops", ErrStructuralIntegrity, s.limits.MaxHops)
	}
	visited[c.ID] = true

	node := models.CategoryNode{Category: c, Depth: depth}
	for _, childID := range c.Children {
		child, ok := byID[childID]
		if !ok {
			continue
		}
		built, err := s.buildNode(child, byID, visited, depth+1)
		if err != nil {
			return models.CategoryNode{}, err
		}
		node.Children = append(node.Children, built)
	}
	return node, nil
}
