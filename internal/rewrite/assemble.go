package rewrite

import (
	"fmt"
	"strconv"
	"strings"
)

// assembleSQL stitches together the final server query. ORDER BY is
// deliberately never emitted here: the server only ever sees ciphertext
// for encrypted sort keys, so ordering is always applied client-side by
// the result reassembler after decryption (spec.md §4.7).
func assembleSQL(selectParts []string, from string, joins []string, where string, groupBy []string, having string, limit *int64) string {
	if len(selectParts) == 0 {
		// Every select item was a client-only constant; the server still
		// needs something to select so row cardinality is preserved.
		selectParts = []string{"1"}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selectParts, ", "))
	b.WriteString(" FROM ")
	b.WriteString(from)

	for _, j := range joins {
		b.WriteString(" ")
		b.WriteString(j)
	}

	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}

	if having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(having)
	}

	if limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.FormatInt(*limit, 10))
	}

	return b.String()
}

func joinClause(table, condition string) string {
	return fmt.Sprintf("JOIN %s ON %s", table, condition)
}
