// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"taxonomy/internal/tree"
)

// errorBody is the API error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRawJSON writes an already-encoded JSON body.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, tree.ErrDuplicateSibling):
		return http.StatusConflict
	case tree.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, tree.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the error envelope. Internal failures are logged
// with their cause and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := errorDetail{Code: tree.Code(err), Message: err.Error()}

	var reqErr *requestError
	var v *tree.Violation
	switch {
	case errors.As(err, &reqErr):
		detail.Code = "INVALID_REQUEST"
	case errors.As(err, &v):
		detail.Message = v.Message
		detail.Field = v.Field
	case errors.Is(err, tree.ErrNotFound):
		detail.Message = "Category not found."
	case status == http.StatusInternalServerError:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		detail.Message = "Internal Server Error"
	}

	writeJSON(w, status, errorBody{Error: detail})
}
