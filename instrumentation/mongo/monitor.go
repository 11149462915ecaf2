// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package mongo traces commands issued through the official MongoDB Go
// driver. Attach the monitor when building the client:
//
//	monitor, err := mongo.NewMonitor()
//	if err != nil {
//		// only configuration errors end up here
//	}
//	opts := options.Client().ApplyURI(uri).SetMonitor(monitor)
//
// Each command becomes one client span carrying the MongoDB semantic
// conventions. The command text recorded on the span is normalized first:
// every value is scrubbed, so documents, filters and updates never leak
// into trace storage.
package mongo // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo"

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/event"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo/internal/command"
	"github.com/open-telemetry/opentelemetry-go-instrumentation/internal/dbtracer"
)

const (
	scopeName = "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo"

	defaultPort = 27017
)

// NewMonitor returns a command monitor that creates a span per MongoDB
// command. The returned monitor is safe for use by concurrent
// connections.
func NewMonitor(opts ...Option) (*event.CommandMonitor, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}
	m := &monitor{
		tracer:         dbtracer.New(cfg.tracerProvider, scopeName),
		logger:         cfg.logger,
		maxQueryLength: cfg.maxQueryLength,
		spans:          make(map[spanKey]trace.Span),
	}
	return &event.CommandMonitor{
		Started:   m.started,
		Succeeded: m.succeeded,
		Failed:    m.failed,
	}, nil
}

// spanKey identifies one in-flight command. The driver guarantees request
// ids are unique per connection.
type spanKey struct {
	connectionID string
	requestID    int64
}

type monitor struct {
	tracer         *dbtracer.Tracer
	logger         *zap.Logger
	maxQueryLength int

	mu    sync.Mutex
	spans map[spanKey]trace.Span
}

func (m *monitor) started(ctx context.Context, evt *event.CommandStartedEvent) {
	host, port := peerInfo(evt.ConnectionID)
	op := dbtracer.Operation{
		Name:      evt.CommandName,
		System:    semconv.DBSystemMongoDB.Value.AsString(),
		Statement: command.Normalize(evt.Command, m.maxQueryLength),
		Database:  evt.DatabaseName,
		PeerHost:  host,
		PeerPort:  port,
	}
	// https://docs.mongodb.com/manual/reference/connection-string/
	if cs, ok := dbtracer.ConnectionString("mongodb", host, port); ok {
		op.ConnString = cs
	}
	if coll, ok := command.CollectionName(evt.CommandName, evt.Command); ok {
		op.Attributes = append(op.Attributes, semconv.DBMongoDBCollection(coll))
	}

	_, span := m.tracer.Start(ctx, op)

	key := spanKey{evt.ConnectionID, evt.RequestID}
	m.mu.Lock()
	m.spans[key] = span
	m.mu.Unlock()
}

func (m *monitor) succeeded(_ context.Context, evt *event.CommandSucceededEvent) {
	m.finished(&evt.CommandFinishedEvent, nil)
}

func (m *monitor) failed(_ context.Context, evt *event.CommandFailedEvent) {
	m.finished(&evt.CommandFinishedEvent, errors.New(evt.Failure))
}

func (m *monitor) finished(evt *event.CommandFinishedEvent, err error) {
	key := spanKey{evt.ConnectionID, evt.RequestID}
	m.mu.Lock()
	span, ok := m.spans[key]
	if ok {
		delete(m.spans, key)
	}
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("no started span for finished command",
			zap.String("command", evt.CommandName),
			zap.Int64("request_id", evt.RequestID))
		return
	}
	m.tracer.End(span, err)
}

// peerInfo extracts host and port from the event's connection id, which
// the driver formats as host:port, optionally suffixed with a bracketed
// local id such as "localhost:27017[-4]".
func peerInfo(connectionID string) (string, int) {
	addr := connectionID
	if i := strings.IndexByte(addr, '['); i >= 0 {
		addr = addr[:i]
	}
	if addr == "" {
		return "", 0
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
