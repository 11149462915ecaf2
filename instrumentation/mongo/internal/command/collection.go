// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package command // import "github.com/open-telemetry/opentelemetry-go-instrumentation/instrumentation/mongo/internal/command"

import "go.mongodb.org/mongo-driver/bson"

// collectionNameCommands are the commands whose value, under the field
// named after the command itself, is the collection name.
var collectionNameCommands = map[string]struct{}{
	"aggregate":     {},
	"count":         {},
	"distinct":      {},
	"mapReduce":     {},
	"geoSearch":     {},
	"delete":        {},
	"find":          {},
	"killCursors":   {},
	"findAndModify": {},
	"insert":        {},
	"update":        {},
	"create":        {},
	"drop":          {},
	"createIndexes": {},
	"listIndexes":   {},
}

// UnscrubbedFields enumerates the root level field names whose values are
// known not to carry user data, which is what allows collection names to
// surface in normalized output at all.
var UnscrubbedFields = map[string]struct{}{
	"ordered": {},
	"insert":  {},
	"count":   {},
	"find":    {},
	"create":  {},
}

// CollectionName returns the collection a command operates on, when the
// command encodes one as a string. getMore carries it in a dedicated
// "collection" field; the commands in collectionNameCommands carry it as
// the value of the field named after the command. Anything else reports
// false.
func CollectionName(commandName string, doc bson.Raw) (string, bool) {
	field := commandName
	if commandName == "getMore" {
		field = "collection"
	} else if _, ok := collectionNameCommands[commandName]; !ok {
		return "", false
	}
	val, err := doc.LookupErr(field)
	if err != nil {
		return "", false
	}
	return val.StringValueOK()
}
