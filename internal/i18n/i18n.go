// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n localizes API messages and passcode emails.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	mu     sync.RWMutex
	bundle *i18n.Bundle
)

// Supported lists the languages with a translation file, default first.
var Supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(Supported)

type localeContextKey struct{}
type localizerContextKey struct{}

// Init loads every embedded translation file. It is safe to call more than once.
func Init() error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(translationFS, "translations/active.*.toml")
	if err != nil {
		return err
	}
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}

	mu.Lock()
	bundle = b
	mu.Unlock()
	return nil
}

func currentBundle() *i18n.Bundle {
	mu.RLock()
	defer mu.RUnlock()
	return bundle
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	base, _ := lang.Base()
	locale := base.String()
	ctx = context.WithValue(ctx, localeContextKey{}, locale)
	b := currentBundle()
	if b == nil {
		return ctx
	}
	return context.WithValue(ctx, localizerContextKey{}, i18n.NewLocalizer(b, locale))
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "en"
}

// T translates a message by ID, returning the ID when no translation exists.
func T(ctx context.Context, messageID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID}, messageID)
}

// TOr translates a message by ID, returning fallback when no translation exists.
func TOr(ctx context.Context, messageID, fallback string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID}, fallback)
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	}, messageID)
}

// TPlural translates a message with plural support. Count is available to the template.
func TPlural(ctx context.Context, messageID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	}, messageID)
}

// MatchLanguage matches the best language from Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig, fallback string) string {
	localizer := getLocalizer(ctx)
	if localizer == nil {
		return fallback
	}
	msg, err := localizer.Localize(cfg)
	if err != nil {
		return fallback
	}
	return msg
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(localizerContextKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	b := currentBundle()
	if b == nil {
		return nil
	}
	return i18n.NewLocalizer(b, "en")
}
