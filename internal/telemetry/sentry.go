// Package telemetry wires optional Sentry error reporting. Nothing is sent
// unless sentry.enabled is set and a DSN is configured.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// flushTimeout bounds how long shutdown waits for queued events
const flushTimeout = 2 * time.Second

var (
	initMu      sync.Mutex
	initialized bool
)

// Option customizes Sentry client options before Init.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, used by tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// Init starts the Sentry client and installs it as the error reporter.
// The returned flush function drains pending events and is safe to call
// when telemetry is disabled.
func Init(settings *conf.SentrySettings, version string, opts ...Option) (flush func(), err error) {
	noop := func() {}
	if settings == nil || !settings.Enabled {
		GetLogger().Debug("sentry reporting disabled")
		errors.SetTelemetryReporter(nil)
		return noop, nil
	}

	initMu.Lock()
	defer initMu.Unlock()

	options := sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       settings.SampleRate,
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("labelgrid@%s", version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return noop, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}
	initialized = true

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("sentry reporting enabled",
		logger.String("environment", settings.Environment),
		logger.Float64("sample_rate", settings.SampleRate))

	return func() {
		if !sentry.Flush(flushTimeout) {
			GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
		}
	}, nil
}

// IsInitialized reports whether Init has started a Sentry client.
func IsInitialized() bool {
	initMu.Lock()
	defer initMu.Unlock()
	return initialized
}

// applyPrivacyFilters strips host identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
