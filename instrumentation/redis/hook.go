// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package redis traces commands issued through github.com/redis/go-redis/v9.
//
//	import (
//	    "github.com/redis/go-redis/v9"
//
//	    redistrace "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/redis"
//	)
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	if err := redistrace.InstrumentTracing(rdb); err != nil {
//		// handle
//	}
//
// Each command becomes one client span named after the command. By
// default no command arguments are recorded at all; WithDBStatement opts
// in to a sanitized command line.
package redis // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/redis"

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/open-telemetry/opentelemetry-go-instrumentation/internal/dbtracer"
	"github.com/open-telemetry/opentelemetry-go-instrumentation/pkg/sanitize"
)

const scopeName = "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/redis"

// InstrumentTracing adds the tracing hook to a client, reading the peer
// address and database index from the client's own options.
func InstrumentTracing(rdb *redis.Client, opts ...Option) error {
	ropts := rdb.Options()
	host, port := splitAddr(ropts.Addr)
	opts = append(opts, withConnection(host, port, ropts.DB))
	hook, err := NewHook(opts...)
	if err != nil {
		return err
	}
	rdb.AddHook(hook)
	return nil
}

// NewHook builds the tracing hook directly. Most callers should prefer
// InstrumentTracing, which wires the connection details for them.
func NewHook(opts ...Option) (redis.Hook, error) {
	cfg := newConfig(opts...)
	return &tracingHook{
		tracer:    dbtracer.New(cfg.tracerProvider, scopeName),
		sanitizer: cfg.sanitizer(),
		cfg:       cfg,
	}, nil
}

type tracingHook struct {
	tracer    *dbtracer.Tracer
	sanitizer *sanitize.Sanitizer
	cfg       config
}

func (h *tracingHook) DialHook(next redis.DialHook) redis.DialHook {
	// Connection management is not a database operation; no span.
	return next
}

func (h *tracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		op := h.operation(strings.ToUpper(cmd.Name()))
		if h.cfg.dbStatement {
			op.Statement = h.sanitizer.Redis(cmdString(cmd))
		}
		ctx, span := h.tracer.Start(ctx, op)
		err := next(ctx, cmd)
		h.tracer.End(span, commandError(err))
		return err
	}
}

func (h *tracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		op := h.operation("PIPELINE")
		op.Attributes = append(op.Attributes,
			attribute.Int("db.redis.pipeline_length", len(cmds)))
		if h.cfg.dbStatement {
			lines := make([]string, len(cmds))
			for i, cmd := range cmds {
				lines[i] = h.sanitizer.Redis(cmdString(cmd))
			}
			op.Statement = strings.Join(lines, "\n")
		}
		ctx, span := h.tracer.Start(ctx, op)
		err := next(ctx, cmds)
		h.tracer.End(span, commandError(err))
		return err
	}
}

func (h *tracingHook) operation(name string) dbtracer.Operation {
	op := dbtracer.Operation{
		Name:     name,
		System:   semconv.DBSystemRedis.Value.AsString(),
		PeerHost: h.cfg.peerHost,
		PeerPort: h.cfg.peerPort,
	}
	if cs, ok := dbtracer.ConnectionString("redis", h.cfg.peerHost, h.cfg.peerPort); ok {
		op.ConnString = cs
	}
	if h.cfg.dbIndex != 0 {
		op.Attributes = append(op.Attributes, semconv.DBRedisDBIndex(h.cfg.dbIndex))
	}
	return op
}

// commandError filters out redis.Nil, which signals a missing key rather
// than a failed operation.
func commandError(err error) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func cmdString(cmd redis.Cmder) string {
	args := cmd.Args()
	parts := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			parts[i] = v
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, " ")
}

func splitAddr(addr string) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 0
	}
	return host, port
}
