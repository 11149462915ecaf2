// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package mongo // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo"

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo/internal/command"
)

type config struct {
	tracerProvider trace.TracerProvider
	logger         *zap.Logger
	maxQueryLength int
}

// Option configures the MongoDB command monitor.
type Option func(*config)

// WithTracerProvider sets the provider spans are created from. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithLogger sets the logger used for diagnostics such as finished events
// arriving without a matching started event. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxNormalizedQueryLength caps the normalized command text recorded
// as db.statement, in bytes. Defaults to 32768.
func WithMaxNormalizedQueryLength(n int) Option {
	return func(c *config) {
		c.maxQueryLength = n
	}
}

func newConfig(opts ...Option) (config, error) {
	cfg := config{
		tracerProvider: otel.GetTracerProvider(),
		logger:         zap.NewNop(),
		maxQueryLength: command.DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	var err error
	if c.maxQueryLength < 0 {
		err = multierr.Append(err, errors.New("max normalized query length must not be negative"))
	}
	return err
}
