// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tree

import (
	"errors"
	"fmt"
)

// Validation failures. They are recoverable and reported to the caller as
// rejected requests.
var (
	ErrEmptyName        = errors.New("tree: category name is required")
	ErrNameTooLong      = errors.New("tree: category name is too long")
	ErrParentNotFound   = errors.New("tree: parent category not found")
	ErrDepthExceeded    = errors.New("tree: maximum category depth reached")
	ErrFanOutExceeded   = errors.New("tree: maximum number of subcategories reached")
	ErrDuplicateSibling = errors.New("tree: a sibling category with this name already exists")
)

var (
	// ErrNotFound is returned when the target of an operation does not exist.
	ErrNotFound = errors.New("tree: category not found")

	// ErrStructuralIntegrity is returned when a traversal exceeds the hop cap
	// or revisits a node, which means the stored links are cyclic or corrupt.
	ErrStructuralIntegrity = errors.New("tree: category links are corrupt")

	// ErrStoreFailure wraps any other persistence error.
	ErrStoreFailure = errors.New("tree: store failure")
)

// Violation is a rejected write. It wraps one of the validation sentinels so
// errors.Is keeps working.
type Violation struct {
	Kind    error
	Field   string
	Message string
}

func (v *Violation) Error() string {
	return v.Message
}

func (v *Violation) Unwrap() error {
	return v.Kind
}

func violation(kind error, field, format string, args ...any) *Violation {
	return &Violation{Kind: kind, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a recoverable validation failure.
func IsValidation(err error) bool {
	for _, kind := range []error{
		ErrEmptyName, ErrNameTooLong, ErrParentNotFound,
		ErrDepthExceeded, ErrFanOutExceeded, ErrDuplicateSibling,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// storeFailure classifies err: taxonomy errors pass through untouched,
// anything else becomes ErrStoreFailure with the cause attached.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStructuralIntegrity) || errors.Is(err, ErrStoreFailure) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// Code returns the stable machine-readable code for err, as used in API
// responses and metric labels.
func Code(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrEmptyName):
		return "EMPTY_NAME"
	case errors.Is(err, ErrNameTooLong):
		return "NAME_TOO_LONG"
	case errors.Is(err, ErrParentNotFound):
		return "PARENT_NOT_FOUND"
	case errors.Is(err, ErrDepthExceeded):
		return "DEPTH_EXCEEDED"
	case errors.Is(err, ErrFanOutExceeded):
		return "FAN_OUT_EXCEEDED"
	case errors.Is(err, ErrDuplicateSibling):
		return "DUPLICATE_SIBLING"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrStructuralIntegrity):
		return "STRUCTURAL_INTEGRITY"
	default:
		return "STORE_FAILURE"
	}
}

// outcome buckets err for the mutation counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
