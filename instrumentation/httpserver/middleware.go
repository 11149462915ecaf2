// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpserver traces inbound net/http requests. It is the server
// side counterpart to the database client instrumentations in this
// repository and deliberately much simpler: one server span per request,
// remote context extracted from the incoming headers.
package httpserver // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/httpserver"

import (
	"fmt"
	"net"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const scopeName = "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/httpserver"

type config struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	logger         *zap.Logger
	spanName       func(*http.Request) string
}

// Option configures the middleware.
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

// WithPropagator sets the propagator used to extract the remote span
// context from request headers. Defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) {
		if p != nil {
			c.propagator = p
		}
	}
}

// WithLogger sets the logger used for diagnostics. Defaults to a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSpanNameFunc overrides span naming. The default is "HTTP <method>",
// which keeps span names low cardinality when no route template is
// available.
func WithSpanNameFunc(f func(*http.Request) string) Option {
	return func(c *config) {
		if f != nil {
			c.spanName = f
		}
	}
}

// NewMiddleware returns a middleware that traces every request served by
// the wrapped handler.
func NewMiddleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := config{
		tracerProvider: otel.GetTracerProvider(),
		propagator:     otel.GetTextMapPropagator(),
		logger:         zap.NewNop(),
		spanName: func(r *http.Request) string {
			return "HTTP " + r.Method
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	tracer := cfg.tracerProvider.Tracer(scopeName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := cfg.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, cfg.spanName(r),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttrs(r, cfg.logger)...))

			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec != nil && !rw.committed {
					// An unhandled failure before the response is
					// committed is served as a 500 by the stack above
					// us, so record it as one.
					rw.status = http.StatusInternalServerError
				}
				if rw.status == 0 {
					rw.status = http.StatusOK
				}
				span.SetAttributes(semconv.HTTPStatusCode(rw.status))
				if rec != nil {
					span.RecordError(fmt.Errorf("panic: %v", rec))
					span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", rec))
				} else if rw.status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, "")
				}
				span.End()
				if rec != nil {
					panic(rec)
				}
			}()

			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

func requestAttrs(r *http.Request, logger *zap.Logger) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPMethod(r.Method),
		semconv.HTTPURL(requestURL(r)),
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		attrs = append(attrs, semconv.NetSockPeerAddr(host))
	} else if r.RemoteAddr != "" {
		logger.Debug("failed to split remote address", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		attrs = append(attrs, semconv.NetSockPeerAddr(r.RemoteAddr))
	}
	return attrs
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}

// responseWriter observes the status written by the handler. committed
// reports whether the header has already gone out, which decides whether
// an unhandled failure can still be reported as a 500.
type responseWriter struct {
	http.ResponseWriter
	status    int
	committed bool
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.committed {
		w.status = status
		w.committed = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.committed {
		w.status = http.StatusOK
		w.committed = true
	}
	return w.ResponseWriter.Write(b)
}
