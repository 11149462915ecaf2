// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package command turns raw MongoDB command documents into span-safe text.
// Normalize scrubs every scalar value out of a command before it is
// recorded as the db.statement attribute, and CollectionName recovers the
// collection a command operates on so it can be recorded separately.
package command // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo/internal/command"

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// DefaultMaxLength bounds the normalized command text when no explicit
// limit is configured. Span attribute pipelines enforce their own value
// length caps; staying under them here avoids exporting truncated JSON
// fragments of unbounded size.
const DefaultMaxLength = 32 * 1024

// hiddenValue replaces every scrubbed scalar in the output.
const hiddenValue = `"?"`

// Normalize renders doc as a JSON-like string in which every scalar value
// is replaced by a "?" marker. Field names and document/array structure
// are preserved in document order. The one exemption is the root
// document's first field: when its value is a string it is written
// verbatim, since for MongoDB commands that field carries the command
// name or collection name and is not sensitive.
//
// The returned string is never longer than maxLength bytes. Traversal
// stops early once the limit is reached, so arbitrarily large commands do
// not cost more than maxLength bytes of output work.
//
// The document is assumed structurally valid, as produced by the driver's
// own decoder; documents are bounded by the server's wire message size
// limit, so plain recursion is safe here. If iteration over a malformed
// document fails midway, whatever was written up to that point is
// returned, still subject to the length cap.
func Normalize(doc bson.Raw, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	w := newLimitWriter(maxLength)
	writeDocument(w, doc, true)
	s := w.String()
	// The writer already enforces the cap; the cut below is the safety
	// net the contract requires.
	if len(s) > maxLength {
		s = s[:maxLength]
	}
	return s
}

func writeDocument(w *limitWriter, doc bson.Raw, root bool) bool {
	w.writeString("{")
	elems, err := doc.Elements()
	if err != nil {
		return w.truncated
	}
	for i, elem := range elems {
		if i > 0 {
			w.writeString(", ")
		}
		w.writeString(strconv.Quote(elem.Key()))
		w.writeString(": ")
		val := elem.Value()
		// The first field of the root document is the command name, so
		// its value is preserved. It is usually the collection name.
		if root && i == 0 && val.Type == bsontype.String {
			w.writeString(strconv.Quote(val.StringValue()))
			if w.truncated {
				return true
			}
			continue
		}
		if writeValue(w, val) {
			return true
		}
	}
	w.writeString("}")
	return w.truncated
}

func writeArray(w *limitWriter, arr bson.Raw) bool {
	w.writeString("[")
	vals, err := arr.Values()
	if err != nil {
		return w.truncated
	}
	for i, val := range vals {
		if i > 0 {
			w.writeString(", ")
		}
		if writeValue(w, val) {
			return true
		}
	}
	w.writeString("]")
	return w.truncated
}

func writeValue(w *limitWriter, val bson.RawValue) bool {
	switch val.Type {
	case bsontype.EmbeddedDocument:
		if doc, ok := val.DocumentOK(); ok {
			return writeDocument(w, doc, false)
		}
	case bsontype.Array:
		if arr, ok := val.ArrayOK(); ok {
			return writeArray(w, arr)
		}
	default:
		w.writeString(hiddenValue)
	}
	return w.truncated
}

// limitWriter appends to a buffer up to a fixed byte budget. Once the
// budget is exhausted it drops the remainder and reports truncation, so
// the output is always a byte prefix of the full serialization.
type limitWriter struct {
	buf       strings.Builder
	max       int
	truncated bool
}

func newLimitWriter(max int) *limitWriter {
	w := &limitWriter{max: max}
	w.buf.Grow(min(max, 128))
	return w
}

func (w *limitWriter) writeString(s string) {
	if w.truncated {
		return
	}
	remaining := w.max - w.buf.Len()
	if len(s) > remaining {
		w.buf.WriteString(s[:remaining])
		w.truncated = true
		return
	}
	w.buf.WriteString(s)
}

func (w *limitWriter) String() string {
	return w.buf.String()
}
