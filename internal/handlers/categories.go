// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API for the category forest. It
// parses requests, calls the tree service, and maps its error kinds to
// HTTP responses.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"taxonomy/internal/cache"
	"taxonomy/internal/models"
	"taxonomy/internal/tree"
)

// Categories groups the category endpoints.
type Categories struct {
	svc   *tree.Service
	cache *cache.ListingCache
}

// NewCategories creates the category handlers. listings may be nil, in which
// case listings are always read from the store.
func NewCategories(svc *tree.Service, listings *cache.ListingCache) *Categories {
	return &Categories{svc: svc, cache: listings}
}

// categoryResponse is a category with its computed depth.
type categoryResponse struct {
	models.Category
	Depth int `json:"depth"`
}

// Create handles POST /categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	parentID, err := parseParent(req.Parent)
	if err != nil {
		writeError(w, r, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	c, err := h.svc.Create(r.Context(), req.Name, active, parentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, c)
}

// List handles GET /categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	req = tree.NormalizePage(req)

	body, err := h.cached(r.Context(), cache.PageKey(req.Key()), func(ctx context.Context) (any, error) {
		return h.svc.List(ctx, req)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// Forest handles GET /categories/tree.
func (h *Categories) Forest(w http.ResponseWriter, r *http.Request) {
	body, err := h.cached(r.Context(), cache.ForestKey(), func(ctx context.Context) (any, error) {
		nodes, err := h.svc.Forest(ctx)
		if nodes == nil {
			nodes = []models.CategoryNode{}
		}
		return nodes, err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

// Get handles GET /categories/{id}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	depth, err := h.svc.Depth(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryResponse{Category: *c, Depth: depth})
}

// Children handles GET /categories/{id}/children.
func (h *Categories) Children(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	items, err := h.svc.ListChildren(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Update handles PUT /categories/{id}.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.svc.Update(r.Context(), id, models.CategoryUpdate{Name: req.Name, Active: req.Active})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /categories/{id}, removing the whole subtree.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	removed, err := h.svc.DeleteSubtree(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Category and its subcategories were deleted.",
		"deleted": removed,
	})
}

// cached serves the JSON encoding of load's result through the listing
// cache when one is configured.
func (h *Categories) cached(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, error) {
	render := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	if h.cache == nil {
		return render(ctx)
	}
	return h.cache.GetOrLoad(ctx, key, render)
}

// invalidate drops cached listings after a write.
func (h *Categories) invalidate(ctx context.Context) {
	if h.cache != nil {
		h.cache.InvalidateAll(ctx)
	}
}

// pathID parses the {id} URL parameter, writing a 400 if it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, badRequest("Invalid category ID."))
		return uuid.Nil, false
	}
	return id, true
}
