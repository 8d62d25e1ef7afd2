package main

import (
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/transport"
)

// transportColumns flattens an extended schema into the physical column
// list a transport.TableService needs to create or widen a table.
func transportColumns(s schema.Schema) []transport.Column {
	basic := schema.BasicColumns(schema.RewriteSchema(s))
	out := make([]transport.Column, len(basic))
	for i, b := range basic {
		out[i] = transport.Column{
			Name:     b.Name,
			Type:     transportColumnType(b.Type),
			Required: b.Required,
		}
	}
	return out
}

func transportColumnType(t schema.FieldType) transport.ColumnType {
	switch t {
	case schema.TypeInteger:
		return transport.ColumnInteger
	case schema.TypeFloat:
		return transport.ColumnFloat
	case schema.TypeBoolean:
		return transport.ColumnBoolean
	case schema.TypeTimestamp:
		return transport.ColumnTimestamp
	default:
		return transport.ColumnString
	}
}
