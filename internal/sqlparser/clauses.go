package sqlparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/encql/encql/internal/token"
)

// SelectItem is one entry of the SELECT list: a postfix expression plus an
// optional alias assigned via AS.
type SelectItem struct {
	Expr  []token.Token
	Alias string
}

// Join is a single JOIN <table> ON <condition> clause.
type Join struct {
	Table     string
	Condition []token.Token
}

// OrderKey is one ORDER BY entry.
type OrderKey struct {
	Name       string
	Descending bool
}

// Query is the fully parsed clause map for one SELECT statement.
type Query struct {
	Select  []SelectItem
	From    string
	Within  string
	Joins   []Join
	Where   []token.Token
	GroupBy []string
	Having  []token.Token
	OrderBy []OrderKey
	Limit   *int64
}

var clauseKeywords = []string{"GROUP BY", "ORDER BY", "SELECT", "FROM", "WITHIN", "JOIN", "WHERE", "HAVING", "LIMIT"}

// Parse parses a single restricted SELECT statement into a Query clause
// map, wrapping any failure as an InvalidQueryError-flavored message.
func Parse(sql string) (*Query, error) {
	segments, err := splitClauses(sql)
	if err != nil {
		return nil, fmt.Errorf("sqlparser: %w", err)
	}

	q := &Query{}

	selectSeg, ok := firstSegment(segments, "SELECT")
	if !ok {
		return nil, fmt.Errorf("sqlparser: query has no SELECT clause")
	}
	items, err := parseSelectList(selectSeg)
	if err != nil {
		return nil, err
	}
	q.Select = items

	if fromSeg, ok := firstSegment(segments, "FROM"); ok {
		q.From = strings.TrimSpace(fromSeg)
	}
	if withinSeg, ok := firstSegment(segments, "WITHIN"); ok {
		q.Within = strings.TrimSpace(withinSeg)
	}
	for _, joinSeg := range segmentsFor(segments, "JOIN") {
		j, err := parseJoin(joinSeg)
		if err != nil {
			return nil, err
		}
		q.Joins = append(q.Joins, j)
	}
	if whereSeg, ok := firstSegment(segments, "WHERE"); ok {
		expr, err := ParseExpression(whereSeg)
		if err != nil {
			return nil, fmt.Errorf("sqlparser: WHERE: %w", err)
		}
		q.Where = expr
	}
	if groupSeg, ok := firstSegment(segments, "GROUP BY"); ok {
		for _, part := range splitTopLevel(groupSeg, ',') {
			q.GroupBy = append(q.GroupBy, strings.TrimSpace(part))
		}
	}
	if havingSeg, ok := firstSegment(segments, "HAVING"); ok {
		expr, err := ParseExpression(havingSeg)
		if err != nil {
			return nil, fmt.Errorf("sqlparser: HAVING: %w", err)
		}
		q.Having = expr
	}
	if orderSeg, ok := firstSegment(segments, "ORDER BY"); ok {
		for _, part := range splitTopLevel(orderSeg, ',') {
			key, err := parseOrderKey(part)
			if err != nil {
				return nil, err
			}
			q.OrderBy = append(q.OrderBy, key)
		}
	}
	if limitSeg, ok := firstSegment(segments, "LIMIT"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(limitSeg), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sqlparser: LIMIT: invalid integer %q", limitSeg)
		}
		q.Limit = &n
	}

	return q, nil
}

type clauseSegment struct {
	keyword string
	text    string
}

func firstSegment(segs []clauseSegment, keyword string) (string, bool) {
	for _, s := range segs {
		if s.keyword == keyword {
			return s.text, true
		}
	}
	return "", false
}

func segmentsFor(segs []clauseSegment, keyword string) []string {
	var out []string
	for _, s := range segs {
		if s.keyword == keyword {
			out = append(out, s.text)
		}
	}
	return out
}

// splitClauses walks sql tracking paren depth and quote state, recognizing
// clause keywords only when they appear at depth 0 outside a string
// literal, and returns the text following each keyword up to the next one.
func splitClauses(sql string) ([]clauseSegment, error) {
	type boundary struct {
		keyword string
		start   int // index right after the keyword
	}
	var boundaries []boundary

	depth := 0
	inString := false
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '\'' && !inString:
			inString = true
			i++
		case c == '\'' && inString:
			inString = false
			i++
		case inString:
			i++
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case depth == 0:
			matched := false
			for _, kw := range clauseKeywords {
				if matchesKeywordAt(sql, i, kw) {
					boundaries = append(boundaries, boundary{kw, i + len(kw)})
					i += len(kw)
					matched = true
					break
				}
			}
			if !matched {
				i++
			}
		default:
			i++
		}
	}

	if len(boundaries) == 0 {
		return nil, fmt.Errorf("no recognizable clauses")
	}

	segs := make([]clauseSegment, 0, len(boundaries))
	for idx, b := range boundaries {
		end := len(sql)
		if idx+1 < len(boundaries) {
			end = boundaries[idx+1].start - len(boundaries[idx+1].keyword)
		}
		segs = append(segs, clauseSegment{keyword: b.keyword, text: strings.TrimSpace(sql[b.start:end])})
	}
	return segs, nil
}

func matchesKeywordAt(sql string, i int, keyword string) bool {
	if i+len(keyword) > len(sql) {
		return false
	}
	if !strings.EqualFold(sql[i:i+len(keyword)], keyword) {
		return false
	}
	if i > 0 && isWordByte(sql[i-1]) {
		return false
	}
	after := i + len(keyword)
	if after < len(sql) && isWordByte(sql[after]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// splitTopLevel splits s on sep, ignoring occurrences inside parens or
// string literals.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseSelectList(seg string) ([]SelectItem, error) {
	var items []SelectItem
	for _, part := range splitTopLevel(seg, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		exprText, alias := splitAlias(part)
		expr, err := ParseExpression(exprText)
		if err != nil {
			return nil, fmt.Errorf("sqlparser: SELECT item %q: %w", part, err)
		}
		items = append(items, SelectItem{Expr: expr, Alias: alias})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("sqlparser: SELECT list is empty")
	}
	return items, nil
}

// splitAlias finds a trailing "AS <ident>" at depth 0 and returns the
// expression text before it and the alias, or the whole text and "" if no
// alias is present.
func splitAlias(s string) (expr, alias string) {
	depth := 0
	inString := false
	upperS := strings.ToUpper(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && matchesKeywordAt(upperS, i, "AS"):
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+2:])
		}
	}
	return s, ""
}

func parseJoin(seg string) (Join, error) {
	upperSeg := strings.ToUpper(seg)
	idx := strings.Index(upperSeg, " ON ")
	if idx < 0 {
		return Join{}, fmt.Errorf("sqlparser: JOIN clause missing ON condition")
	}
	table := strings.TrimSpace(seg[:idx])
	cond, err := ParseExpression(seg[idx+4:])
	if err != nil {
		return Join{}, fmt.Errorf("sqlparser: JOIN ... ON: %w", err)
	}
	return Join{Table: table, Condition: cond}, nil
}

func parseOrderKey(s string) (OrderKey, error) {
	s = strings.TrimSpace(s)
	upperS := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upperS, " DESC"):
		return OrderKey{Name: strings.TrimSpace(s[:len(s)-5]), Descending: true}, nil
	case strings.HasSuffix(upperS, " ASC"):
		return OrderKey{Name: strings.TrimSpace(s[:len(s)-4]), Descending: false}, nil
	default:
		return OrderKey{Name: s}, nil
	}
}
