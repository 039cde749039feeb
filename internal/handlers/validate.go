// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"taxonomy/internal/models"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// validate checks request shapes. Domain rules (empty names, depth, fan-out)
// are left to the tree service so they keep their own error codes.
var validate = validator.New(validator.WithRequiredStructEnabled())

// createRequest is the body of POST /categories.
type createRequest struct {
	Name   string  `json:"name"`
	Active *bool   `json:"active"`
	Parent *string `json:"parent" validate:"omitempty,uuid"`
}

// updateRequest is the body of PUT /categories/{id}.
type updateRequest struct {
	Name   *string `json:"name"`
	Active *bool   `json:"active"`
}

// listParams are the query parameters of GET /categories.
type listParams struct {
	Active string `validate:"omitempty,oneof=true false"`
	Page   int    `validate:"gte=0"`
	Size   int    `validate:"gte=0,lte=100"`
	Sort   string `validate:"omitempty,oneof=name created_at"`
	Order  string `validate:"omitempty,oneof=asc desc"`
}

// requestError is a malformed request, reported as 400 INVALID_REQUEST.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return badRequest("Request body is too large.")
		case errors.Is(err, io.EOF):
			return badRequest("Request body is required.")
		default:
			return badRequest("Malformed JSON: %v", err)
		}
	}
	if dec.More() {
		return badRequest("Request body must contain a single JSON object.")
	}
	return validationError(validate.Struct(dst))
}

// validationError turns validator output into a requestError naming the
// first failing field.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return badRequest("Invalid value for %s (%s).", strings.ToLower(fe.Field()), fe.Tag())
	}
	return badRequest("Invalid request: %v", err)
}

// parseListParams reads and validates listing query parameters.
func parseListParams(q url.Values) (models.PageRequest, error) {
	var p listParams
	var err error

	p.Active = q.Get("active")
	p.Sort = q.Get("sort")
	p.Order = q.Get("order")
	if p.Page, err = atoiOrZero(q.Get("page")); err != nil {
		return models.PageRequest{}, badRequest("Invalid value for page.")
	}
	if p.Size, err = atoiOrZero(q.Get("size")); err != nil {
		return models.PageRequest{}, badRequest("Invalid value for size.")
	}
	if err := validationError(validate.Struct(p)); err != nil {
		return models.PageRequest{}, err
	}

	req := models.PageRequest{
		Page:  p.Page,
		Size:  p.Size,
		Sort:  models.SortField(p.Sort),
		Order: models.SortOrder(p.Order),
	}
	if p.Active != "" {
		active := p.Active == "true"
		req.Filter.Active = &active
	}
	return req, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// parseParent converts the optional parent field of a create request.
func parseParent(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, badRequest("Invalid value for parent.")
	}
	return &id, nil
}
