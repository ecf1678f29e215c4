package sentryutil

import (
	"context"
	"fmt"
	"time"

	sentry "github.com/getsentry/sentry-go"

	"github.com/propella-labs/go-propella/env"
	"github.com/propella-labs/go-propella/service/logger"
)

// InitSentry sets up the global sentry hub. It's a no-op when no DSN is configured
// (i.e. local environments).
func InitSentry() {
	dsn := env.GetString("SENTRY_DSN")
	if dsn == "" {
		logger.For(nil).Info("SENTRY_DSN not set, skipping sentry init")
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env.GetString("ENV"),
		TracesSampleRate: env.GetFloat64("SENTRY_TRACES_SAMPLE_RATE"),
		AttachStacktrace: true,
	})
	if err != nil {
		logger.For(nil).WithError(err).Error("failed to init sentry")
	}
}

// RecoverAndRaise reports a panic to sentry and then re-panics so the process still
// crashes the way it would have without reporting.
func RecoverAndRaise(ctx context.Context) {
	rec := recover()
	if rec == nil {
		return
	}

	hub := sentry.CurrentHub()
	if ctx != nil {
		if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
			hub = ctxHub
		}
	}

	if hub != nil {
		hub.Recover(rec)
		hub.Flush(2 * time.Second)
	}

	panic(rec)
}

// ReportError captures a non-fatal error on the hub attached to the context
func ReportError(ctx context.Context, err error) {
	hub := sentry.CurrentHub()
	if ctx != nil {
		if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
			hub = ctxHub
		}
	}
	if hub == nil {
		return
	}
	hub.CaptureException(fmt.Errorf("reported: %w", err))
}
