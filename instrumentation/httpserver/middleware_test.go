// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setup(t *testing.T, opts ...Option) (*tracetest.SpanRecorder, func(http.Handler) http.Handler) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	opts = append(opts,
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}))
	return sr, NewMiddleware(opts...)
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestMiddlewareTracesRequest(t *testing.T) {
	sr, mw := setup(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, TraceID(r.Context()))
		assert.NotEmpty(t, SpanID(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/users?page=2", nil)
	req.RemoteAddr = "10.1.2.3:51234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	ended := sr.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "HTTP GET", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())

	attrs := attrMap(span)
	assert.Equal(t, "GET", attrs["http.method"].AsString())
	assert.Equal(t, "http://api.example.com/users?page=2", attrs["http.url"].AsString())
	assert.Equal(t, int64(http.StatusNoContent), attrs["http.status_code"].AsInt64())
	assert.Equal(t, "10.1.2.3", attrs["net.sock.peer.addr"].AsString())
}

func TestMiddlewareExtractsRemoteParent(t *testing.T) {
	sr, mw := setup(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", ended[0].SpanContext().TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", ended[0].Parent().SpanID().String())
}

func TestMiddlewareServerErrorStatus(t *testing.T) {
	sr, mw := setup(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, int64(http.StatusBadGateway), attrMap(ended[0])["http.status_code"].AsInt64())
}

func TestMiddlewarePanicBeforeCommitIsA500(t *testing.T) {
	sr, mw := setup(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	require.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	ended := sr.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, int64(http.StatusInternalServerError), attrMap(span)["http.status_code"].AsInt64())
}

func TestMiddlewarePanicAfterCommitKeepsStatus(t *testing.T) {
	sr, mw := setup(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("kaboom")
	}))

	require.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})

	ended := sr.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, int64(http.StatusAccepted), attrMap(span)["http.status_code"].AsInt64())
}

func TestMiddlewareSpanNameFunc(t *testing.T) {
	sr, mw := setup(t, WithSpanNameFunc(func(r *http.Request) string {
		return r.Method + " /users/{id}"
	}))

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/7", nil))

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /users/{id}", ended[0].Name())
}
