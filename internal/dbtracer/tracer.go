// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package dbtracer implements the span lifecycle and semantic attribute
// population shared by every database client instrumentation in this
// repository. Protocol adapters build an Operation from whatever event
// shape their client library exposes and hand it to a Tracer; the Tracer
// owns span naming, attribute mapping and error status.
package dbtracer // import "github.com/open-telemetry/opentelemetry-go-instrumentation/internal/dbtracer"

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Operation describes one database client call. Optional fields left at
// their zero value cause the corresponding span attribute to be omitted;
// no placeholder value is ever emitted.
type Operation struct {
	// Name is the command or operation name. Used as the span name and as
	// the db.operation attribute.
	Name string
	// System is the db.system identifier constant for the database
	// product, e.g. "mongodb".
	System string
	// Statement is the normalized, redacted query text.
	Statement string
	// Database is the logical database name. Not considered sensitive;
	// recorded verbatim when present.
	Database string
	// PeerHost and PeerPort identify the server endpoint when the source
	// event carried a connection descriptor.
	PeerHost string
	PeerPort int
	// ConnString is the db.connection_string value. Build it with
	// ConnectionString so that partially formed strings never appear.
	ConnString string
	// Attributes carries adapter specific attributes, such as
	// db.mongodb.collection or db.redis.database_index.
	Attributes []attribute.KeyValue
}

// Tracer starts and ends client spans for database operations. A Tracer is
// immutable after construction and safe for concurrent use.
type Tracer struct {
	tracer trace.Tracer
}

// New returns a Tracer creating spans from the given provider under the
// given instrumentation scope name.
func New(tp trace.TracerProvider, scopeName string) *Tracer {
	return &Tracer{tracer: tp.Tracer(scopeName)}
}

// Start begins a client span for op and returns the context carrying it.
func (t *Tracer) Start(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, op.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(op.attributes()...))
}

// End completes the span. A non-nil err is recorded on the span and sets
// its status to Error before ending.
func (t *Tracer) End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (op Operation) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 7+len(op.Attributes))
	if op.System != "" {
		attrs = append(attrs, semconv.DBSystemKey.String(op.System))
	}
	if op.Name != "" {
		attrs = append(attrs, semconv.DBOperation(op.Name))
	}
	if op.Statement != "" {
		attrs = append(attrs, semconv.DBStatement(op.Statement))
	}
	if op.Database != "" {
		attrs = append(attrs, semconv.DBName(op.Database))
	}
	if op.PeerHost != "" {
		attrs = append(attrs, semconv.NetPeerName(op.PeerHost))
		if op.PeerPort != 0 {
			attrs = append(attrs, semconv.NetPeerPort(op.PeerPort))
		}
	}
	if op.ConnString != "" {
		attrs = append(attrs, semconv.DBConnectionString(op.ConnString))
	}
	return append(attrs, op.Attributes...)
}

// ConnectionString builds a scheme://host:port connection string. It
// reports false when host is empty or port is zero; callers must then omit
// the attribute rather than record a malformed value.
func ConnectionString(scheme, host string, port int) (string, bool) {
	if host == "" || port == 0 {
		return "", false
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port), true
}
