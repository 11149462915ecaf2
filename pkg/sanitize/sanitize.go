// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package sanitize scrubs literal values out of database statements that
// arrive as flat text rather than structured documents. It is used by the
// Redis instrumentation before a command line is recorded on a span, and
// is exported for host applications that record SQL statements
// themselves.
package sanitize // import "github.com/open-telemetry/opentelemetry-go-instrumentation/pkg/sanitize"

import (
	"github.com/DataDog/datadog-agent/pkg/obfuscate"
)

// Config selects which statement languages a Sanitizer handles. A zero
// Config produces a Sanitizer that passes everything through unchanged.
type Config struct {
	// SQLEnabled turns on SQL literal obfuscation.
	SQLEnabled bool
	// RedisEnabled turns on Redis argument obfuscation.
	RedisEnabled bool
	// RedisRemoveAllArgs drops every command argument instead of
	// replacing argument values with placeholders.
	RedisRemoveAllArgs bool
}

// Sanitizer rewrites statements so that literal values never survive.
// Immutable after construction and safe for concurrent use.
type Sanitizer struct {
	obf *obfuscate.Obfuscator
	cfg Config
}

// New builds a Sanitizer for the enabled statement languages.
func New(cfg Config) *Sanitizer {
	return &Sanitizer{
		obf: obfuscate.NewObfuscator(obfuscate.Config{
			SQL: obfuscate.SQLConfig{
				ReplaceDigits:    true,
				KeepSQLAlias:     true,
				DollarQuotedFunc: true,
				ObfuscationMode:  "obfuscate_only",
			},
			Redis: obfuscate.RedisConfig{
				Enabled:       cfg.RedisEnabled,
				RemoveAllArgs: cfg.RedisRemoveAllArgs,
			},
		}),
		cfg: cfg,
	}
}

// SQL obfuscates literals in a SQL statement. The statement is returned
// unchanged when SQL handling is disabled.
func (s *Sanitizer) SQL(stmt string) (string, error) {
	if !s.cfg.SQLEnabled {
		return stmt, nil
	}
	oq, err := s.obf.ObfuscateSQLString(stmt)
	if err != nil {
		return "", err
	}
	return oq.Query, nil
}

// Redis obfuscates argument values in a Redis command line, or removes
// the arguments entirely when configured to. The statement is returned
// unchanged when Redis handling is disabled.
func (s *Sanitizer) Redis(stmt string) string {
	if !s.cfg.RedisEnabled {
		return stmt
	}
	if s.cfg.RedisRemoveAllArgs {
		return s.obf.RemoveAllRedisArgs(stmt)
	}
	return s.obf.ObfuscateRedisString(stmt)
}
