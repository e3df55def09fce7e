// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/snippetshare/internal/config"
	"codeberg.org/oliverandrich/snippetshare/internal/handlers"
	appmw "codeberg.org/oliverandrich/snippetshare/internal/middleware"
	"codeberg.org/oliverandrich/snippetshare/internal/repository"
	"codeberg.org/oliverandrich/snippetshare/internal/services/auth"
	"codeberg.org/oliverandrich/snippetshare/internal/services/credential"
	"codeberg.org/oliverandrich/snippetshare/internal/services/email"
	"codeberg.org/oliverandrich/snippetshare/internal/services/otp"
	"codeberg.org/oliverandrich/snippetshare/internal/services/session"
	"codeberg.org/oliverandrich/snippetshare/internal/services/share"
	"codeberg.org/oliverandrich/snippetshare/internal/services/snippet"
	"codeberg.org/oliverandrich/snippetshare/internal/throttle"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// App holds the echo instance and the services behind it.
type App struct {
	Echo     *echo.Echo
	repo     *repository.Repository
	sessions *session.Manager
	now      func() time.Time
	closers  []func() error
}

type options struct {
	now          func() time.Time
	mailer       email.Sender
	passwordCost int
}

// Option configures NewApp.
type Option func(*options)

// WithNow sets the clock used by every service.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMailer replaces the mailer selected from the SMTP config.
func WithMailer(m email.Sender) Option {
	return func(o *options) { o.mailer = m }
}

// WithPasswordCost sets the bcrypt cost for new passwords.
func WithPasswordCost(cost int) Option {
	return func(o *options) { o.passwordCost = cost }
}

// NewApp wires the services and routes on top of repo.
func NewApp(cfg *config.Config, repo *repository.Repository, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if o.mailer == nil {
		mailer, err := email.New(&cfg.SMTP)
		if err != nil {
			return nil, fmt.Errorf("failed to configure mailer: %w", err)
		}
		o.mailer = mailer
	}

	credOpts := []credential.Option{credential.WithNow(o.now)}
	if o.passwordCost > 0 {
		credOpts = append(credOpts, credential.WithCost(o.passwordCost))
	}
	accounts := credential.NewStore(repo, credOpts...)
	issuer := otp.NewIssuer(repo, otp.WithTTL(cfg.OTP.TTL), otp.WithNow(o.now))

	sessions, err := session.NewManager(&cfg.Session, repo, accounts, cfg.SecureCookies(), session.WithNow(o.now))
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	app := &App{
		repo:     repo,
		sessions: sessions,
		now:      o.now,
	}

	issueLimit, confirmLimit := app.limiters(cfg)
	authService := auth.NewService(accounts, issuer, sessions, o.mailer,
		auth.WithIssueLimiter(issueLimit),
		auth.WithConfirmLimiter(confirmLimit),
	)
	registry := share.NewRegistry(repo, share.WithMaxTTL(cfg.Share.MaxTTLMinutes), share.WithNow(o.now))
	snippets := snippet.NewService(repo, o.now)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	e.Validator = handlers.NewValidator()

	setupMiddleware(e, cfg, sessions)
	setupRoutes(e, &routes{
		health:   handlers.New(repo),
		auth:     handlers.NewAuth(authService, sessions),
		share:    handlers.NewShare(registry),
		snippets: handlers.NewSnippets(snippets),
	})

	app.Echo = e
	return app, nil
}

// limiters builds the passcode throttles, shared through Redis when configured.
func (a *App) limiters(cfg *config.Config) (issue, confirm throttle.Limiter) {
	issueRule := throttle.Rule{Max: cfg.OTP.MaxIssuesPerHour, Window: time.Hour}
	confirmRule := throttle.Rule{Max: cfg.OTP.MaxAttempts, Window: cfg.OTP.AttemptWindow}

	if !cfg.Redis.Enabled() {
		return throttle.NewMemory(issueRule, a.now), throttle.NewMemory(confirmRule, a.now)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	slog.Info("rate limits shared via redis", "addr", cfg.Redis.Addr)
	return throttle.NewRedis(client, "otp_issue", issueRule), throttle.NewRedis(client, "otp_confirm", confirmRule)
}

type routes struct {
	health   *handlers.Handlers
	auth     *handlers.AuthHandlers
	share    *handlers.ShareHandlers
	snippets *handlers.SnippetHandlers
}

func setupRoutes(e *echo.Echo, r *routes) {
	e.GET("/health", r.health.Health)

	// Public
	e.POST("/signup", r.auth.Signup)
	e.POST("/verify-otp", r.auth.VerifyOTP)
	e.POST("/request-otp", r.auth.RequestOTP)
	e.POST("/login", r.auth.Login)
	e.POST("/logout", r.auth.Logout)
	e.GET("/share/:token", r.share.Resolve)

	// Session required
	e.GET("/me", r.auth.Me, appmw.RequireSession)
	e.POST("/share", r.share.Create, appmw.RequireSession)
	e.POST("/code", r.snippets.Save, appmw.RequireSession)
	e.GET("/code", r.snippets.List, appmw.RequireSession)
	e.DELETE("/code/:id", r.snippets.Delete, appmw.RequireSession)
}

// CollectGarbage deletes records that can no longer be used.
func (a *App) CollectGarbage(ctx context.Context) (repository.PurgeStats, error) {
	return collectGarbage(ctx, a.repo, a.now())
}

// runGC collects garbage every interval until ctx is done.
func (a *App) runGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.CollectGarbage(ctx); err != nil && ctx.Err() == nil {
				slog.Error("gc_failed", "error", err)
			}
		}
	}
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func collectGarbage(ctx context.Context, repo *repository.Repository, now time.Time) (repository.PurgeStats, error) {
	stats, err := repo.PurgeExpired(ctx, now)
	if err != nil {
		return stats, err
	}
	slog.Info("gc_completed",
		"passcodes", stats.Passcodes,
		"sessions", stats.Sessions,
		"share_links", stats.ShareLinks,
		"total", stats.Total(),
	)
	return stats, nil
}
