// Package sentry reports handler panics and failures to any
// Sentry-compatible backend (Sentry, GlitchTip, Better Stack Errors).
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/geo-linebot-go/internal/ctxutil"
)

// Config holds Sentry configuration. An empty DSN disables reporting.
type Config struct {
	DSN         string
	Environment string
	Release     string
	SampleRate  float64 // 0 means report everything
	Debug       bool
}

// Init configures the global hub. It reports whether reporting is on.
func Init(cfg Config) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}
	if _, err := sentry.NewDsn(cfg.DSN); err != nil {
		return false, fmt.Errorf("invalid sentry dsn: %w", err)
	}
	if err := sentry.Init(clientOptions(cfg)); err != nil {
		return false, err
	}
	return true, nil
}

func clientOptions(cfg Config) sentry.ClientOptions {
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	}
}

// dropCanceled discards errors caused by a caller going away, such as a
// reply abandoned on shutdown.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Enabled reports whether the global hub has a client.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Flush waits up to timeout for queued events and reports whether all were sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Capture reports err from module, tagged with the chat tracing values in ctx.
// It uses the hub attached to ctx when there is one.
func Capture(ctx context.Context, module string, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags(ctx, module))
		if userID := ctxutil.GetUserID(ctx); userID != "" {
			scope.SetUser(sentry.User{ID: userID})
		}
		hub.CaptureException(err)
	})
}

func tags(ctx context.Context, module string) map[string]string {
	t := make(map[string]string, 3)
	if module != "" {
		t["module"] = module
	}
	if chatID := ctxutil.GetChatID(ctx); chatID != "" {
		t["chat_id"] = chatID
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		t["request_id"] = requestID
	}
	return t
}
