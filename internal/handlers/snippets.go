// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/snippetshare/internal/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	"codeberg.org/oliverandrich/snippetshare/internal/models"
	"codeberg.org/oliverandrich/snippetshare/internal/services/snippet"
	"github.com/labstack/echo/v4"
)

// SnippetHandlers contains handlers for the current account's snippets.
type SnippetHandlers struct {
	snippets *snippet.Service
}

// NewSnippets creates a new SnippetHandlers instance.
func NewSnippets(snippets *snippet.Service) *SnippetHandlers {
	return &SnippetHandlers{snippets: snippets}
}

// SaveSnippetRequest is the request body for storing a snippet.
type SaveSnippetRequest struct {
	Language string `json:"language" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// Save stores a snippet for the current account.
func (h *SnippetHandlers) Save(c echo.Context) error {
	var req SaveSnippetRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	saved, err := h.snippets.Save(ctx, auth.Email(ctx), req.Language, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

// List returns the current account's snippets, newest first.
func (h *SnippetHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()
	list, err := h.snippets.List(ctx, auth.Email(ctx))
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Snippet{}
	}
	return c.JSON(http.StatusOK, list)
}

// Delete removes a snippet owned by the current account.
func (h *SnippetHandlers) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.snippets.Delete(ctx, auth.Email(ctx), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_snippet_deleted")})
}
