package mysqladapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/encql/encql/internal/transport"
)

// sqlColumnName makes a dotted leaf path (a plaintext leaf kept nested by
// schema.RewriteSchema, e.g. "job.title") safe as a bare MySQL identifier.
// Hoisted encrypted leaves already arrive with no dots (wireColumnName
// replaced them at rewrite time), so this is a no-op for them.
func sqlColumnName(path string) string {
	return strings.ReplaceAll(path, ".", "_dot_")
}

func mysqlType(t transport.ColumnType) string {
	switch t {
	case transport.ColumnInteger, transport.ColumnTimestamp:
		return "BIGINT"
	case transport.ColumnFloat:
		return "DOUBLE"
	case transport.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func createTableDDL(tableName string, columns []transport.Column) string {
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		null := "NULL"
		if c.Required {
			null = "NOT NULL"
		}
		defs = append(defs, fmt.Sprintf("`%s` %s %s", sqlColumnName(c.Name), mysqlType(c.Type), null))
	}
	return fmt.Sprintf("CREATE TABLE `%s` (\n  %s\n)", tableName, strings.Join(defs, ",\n  "))
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
