// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/snippetshare/internal/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/i18n"
	authsvc "codeberg.org/oliverandrich/snippetshare/internal/services/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for signup, verification and sessions.
type AuthHandlers struct {
	auth     *authsvc.Service
	sessions *session.Manager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *authsvc.Service, sessions *session.Manager) *AuthHandlers {
	return &AuthHandlers{
		auth:     svc,
		sessions: sessions,
	}
}

// SignupRequest is the request body for creating an account.
type SignupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyOTPRequest is the request body for confirming a passcode.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// RequestOTPRequest is the request body for resending a passcode.
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required"`
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AccountResponse acknowledges an operation on an account.
type AccountResponse struct {
	Message string `json:"message,omitempty"`
	Email   string `json:"email"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup creates an unverified account and mails the first passcode.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	account, err := h.auth.Signup(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, AccountResponse{
		Message: i18n.T(ctx, "message_signup"),
		Email:   account.Email,
	})
}

// VerifyOTP confirms a passcode and starts a session.
func (h *AuthHandlers) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	issued, err := h.auth.VerifyOTP(ctx, req.Email, req.OTP)
	if err != nil {
		return err
	}
	if err := h.setSessionCookie(c, issued); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AccountResponse{
		Message: i18n.T(ctx, "message_verified"),
		Email:   issued.Email,
	})
}

// RequestOTP issues a new passcode, superseding the previous one.
func (h *AuthHandlers) RequestOTP(c echo.Context) error {
	var req RequestOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	alreadyVerified, err := h.auth.RequestOTP(ctx, req.Email)
	if err != nil {
		return err
	}

	msg := "message_otp_sent"
	if alreadyVerified {
		msg = "message_already_verified"
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, msg)})
}

// Login authenticates with email and password and starts a session.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	issued, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := h.setSessionCookie(c, issued); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, AccountResponse{
		Message: i18n.T(ctx, "message_login"),
		Email:   issued.Email,
	})
}

// Logout ends the presented session, if any, and clears the cookie.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if token, ok := h.sessions.TokenFromRequest(c.Request()); ok {
		if err := h.auth.Logout(ctx, token); err != nil {
			return err
		}
	}

	c.SetCookie(h.sessions.ClearCookie())
	return c.JSON(http.StatusOK, MessageResponse{Message: i18n.T(ctx, "message_logged_out")})
}

// Me returns the email of the current session.
func (h *AuthHandlers) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, AccountResponse{Email: auth.Email(c.Request().Context())})
}

func (h *AuthHandlers) setSessionCookie(c echo.Context, issued *session.Issued) error {
	cookie, err := h.sessions.Cookie(issued)
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	return nil
}
