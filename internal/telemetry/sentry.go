package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dukerupert/mercato/internal/domain"
)

const sentryFlushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking.
type SentryConfig struct {
	DSN         string
	Enabled     bool
	Environment string
	Release     string

	// SampleRate is the share of errors sent, 0 meaning all of them.
	SampleRate float64
	Debug      bool
}

var sentryEnabled atomic.Bool

// InitSentry initializes the Sentry client. The returned func flushes
// buffered events and must run on shutdown.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	sentryEnabled.Store(false)

	if !cfg.Enabled {
		logger.Info("Sentry disabled")
		return func() {}, nil
	}
	if cfg.DSN == "" {
		logger.Warn("Sentry DSN not configured, disabling error tracking")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate == 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  sampleRate,
		Debug:       cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
	)

	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

// IsEnabled reports whether errors are being sent to Sentry.
func IsEnabled() bool {
	return sentryEnabled.Load()
}

// ShouldCapture reports whether err is worth reporting. Errors caused by
// the caller (bad input, missing or conflicting resources, auth) are not.
func ShouldCapture(err error) bool {
	if err == nil {
		return false
	}
	switch domain.ErrorCode(err) {
	case domain.EINVALID, domain.ENOTFOUND, domain.ECONFLICT,
		domain.EUNAUTHORIZED, domain.EFORBIDDEN:
		return false
	}
	return true
}

// CaptureError reports err on the hub of ctx, falling back to the global hub.
// The domain code, op and saga step of err become tags so failures group by
// operation. It is a no-op when Sentry is disabled or err is not reportable.
func CaptureError(ctx context.Context, err error, extras map[string]any) {
	if !IsEnabled() || !ShouldCapture(err) {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(errorTags(err))
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

func errorTags(err error) map[string]string {
	tags := map[string]string{"error.code": domain.ErrorCode(err)}
	if op := domain.ErrorOp(err); op != "" {
		tags["error.op"] = op
	}
	if step := domain.ErrorStep(err); step != "" {
		tags["saga.step"] = step
	}
	return tags
}

// SetTags tags the request hub of ctx so anything captured later in the
// request carries them. Contexts without a hub are left alone.
func SetTags(ctx context.Context, tags map[string]string) {
	if !IsEnabled() {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTags(tags)
	}
}

// SentryMiddleware attaches a per-request hub and reports panics.
func SentryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.Scope().SetRequest(r)
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if p := recover(); p != nil {
					hub.RecoverWithContext(ctx, p)
					sentry.Flush(sentryFlushTimeout)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
