// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON endpoints of the API.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/snippetshare/internal/apperr"
	"github.com/labstack/echo/v4"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains handlers that need no authentication service.
type Handlers struct {
	store Pinger
}

// New creates a new Handlers instance.
func New(store Pinger) *Handlers {
	return &Handlers{store: store}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if err := h.store.Ping(c.Request().Context()); err != nil {
		slog.ErrorContext(c.Request().Context(), "health_check_failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(ErrBadRequest, err)
	}
	return c.Validate(req)
}
