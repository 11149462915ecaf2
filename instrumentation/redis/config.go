// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package redis // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/redis"

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/open-telemetry/opentelemetry-go-instrumentation/pkg/sanitize"
)

type config struct {
	tracerProvider trace.TracerProvider
	dbStatement    bool
	removeAllArgs  bool

	// filled from the client options by InstrumentTracing.
	peerHost string
	peerPort int
	dbIndex  int
}

// Option configures the Redis tracing hook.
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

// WithDBStatement records the command line as the db.statement attribute.
// Argument values are sanitized before recording; they never appear
// verbatim.
func WithDBStatement() Option {
	return func(c *config) {
		c.dbStatement = true
	}
}

// WithRemoveAllArgs drops command arguments from recorded statements
// entirely, leaving only the command name.
func WithRemoveAllArgs() Option {
	return func(c *config) {
		c.removeAllArgs = true
	}
}

func withConnection(host string, port, dbIndex int) Option {
	return func(c *config) {
		c.peerHost = host
		c.peerPort = port
		c.dbIndex = dbIndex
	}
}

func newConfig(opts ...Option) config {
	cfg := config{tracerProvider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c config) sanitizer() *sanitize.Sanitizer {
	return sanitize.New(sanitize.Config{
		RedisEnabled:       true,
		RedisRemoveAllArgs: c.removeAllArgs,
	})
}
