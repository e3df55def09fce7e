// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"codeberg.org/oliverandrich/snippetshare/internal/services/share"
	"github.com/labstack/echo/v4"
)

// ShareHandlers contains handlers for share links.
type ShareHandlers struct {
	registry *share.Registry
}

// NewShare creates a new ShareHandlers instance.
func NewShare(registry *share.Registry) *ShareHandlers {
	return &ShareHandlers{registry: registry}
}

// ShareRequest is the request body for creating a share link.
// ExpirationMinutes is range-checked by the registry.
type ShareRequest struct {
	CodeID            string `json:"codeId" validate:"required"`
	ExpirationMinutes int    `json:"expirationMinutes"`
}

// ShareResponse describes a created share link.
type ShareResponse struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
}

// Create shares a snippet owned by the current session.
func (h *ShareHandlers) Create(c echo.Context) error {
	var req ShareRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	link, err := h.registry.Create(ctx, auth.Email(ctx), req.CodeID, req.ExpirationMinutes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, ShareResponse{
		Message:   i18n.T(ctx, "message_share_created"),
		Token:     link.Token,
		ExpiresAt: link.ExpiresAt,
	})
}

// Resolve returns a shared snippet to anyone holding the token.
func (h *ShareHandlers) Resolve(c echo.Context) error {
	shared, err := h.registry.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, shared)
}
