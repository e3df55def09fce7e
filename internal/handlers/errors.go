// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"github.com/labstack/echo/v4"
)

var (
	ErrValidation       = apperr.New(apperr.Validation, "validation_failed", "invalid request")
	ErrBadRequest       = apperr.New(apperr.Validation, "bad_request", "malformed request body")
	ErrRouteNotFound    = apperr.New(apperr.NotFound, "route_not_found", "not found")
	ErrMethodNotAllowed = apperr.New(apperr.Validation, "method_not_allowed", "method not allowed")
	ErrRequestTooLarge  = apperr.New(apperr.Validation, "request_too_large", "request body too large")
)

// statusByCode overrides the kind status for codes with a more specific one.
var statusByCode = map[string]int{
	"rate_limited":       http.StatusTooManyRequests,
	"method_not_allowed": http.StatusMethodNotAllowed,
	"request_too_large":  http.StatusRequestEntityTooLarge,
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Fields map[string]string `json:"fields,omitempty"`
	Error  string            `json:"error"`
	Code   string            `json:"code"`
}

// HTTPErrorHandler turns every error returned by a handler or middleware
// into a JSON error body with a stable code.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	err = fromHTTPError(err)
	code := apperr.CodeOf(err)
	status := StatusOf(err)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request_failed",
			"error", err,
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, ErrorResponse{
			Error:  i18n.TOr(ctx, "error_"+code, apperr.MessageOf(err)),
			Code:   code,
			Fields: fieldErrors(err),
		})
	}
	if writeErr != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", writeErr)
	}
}

// StatusOf returns the HTTP status for a classified error.
func StatusOf(err error) int {
	if status, ok := statusByCode[apperr.CodeOf(err)]; ok {
		return status
	}
	switch apperr.KindOf(err) {
	case apperr.Validation, apperr.RateOrTTL:
		return http.StatusBadRequest
	case apperr.Authentication:
		return http.StatusUnauthorized
	case apperr.Authorization:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fromHTTPError classifies errors raised by echo itself.
func fromHTTPError(err error) error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err
	}
	switch he.Code {
	case http.StatusNotFound:
		return apperr.Wrap(ErrRouteNotFound, err)
	case http.StatusMethodNotAllowed:
		return apperr.Wrap(ErrMethodNotAllowed, err)
	case http.StatusRequestEntityTooLarge:
		return apperr.Wrap(ErrRequestTooLarge, err)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return apperr.Wrap(ErrBadRequest, err)
	default:
		return err
	}
}
