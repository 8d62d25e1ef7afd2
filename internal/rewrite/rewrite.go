// Package rewrite lowers a parsed SELECT statement over the logical
// (plaintext) schema into a server-executable query over the encrypted
// wire schema, plus a rewrite plan the result reassembler replays against
// whatever rows come back.
package rewrite

import (
	"fmt"
	"strings"

	"github.com/encql/encql/internal/cipher"
	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/manifest"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/sqlparser"
	"github.com/encql/encql/internal/token"
)

// Context carries everything the rewriter needs to resolve a column's
// cryptographic treatment: the logical schema, the table's key material,
// and an optional manifest for stable result-column aliasing.
type Context struct {
	Schema    schema.Schema
	MasterKey []byte
	TableID   string
	Manifest  *manifest.Manifest
}

// columnKeyInput is the PRF input used to derive a column's non-related
// cipher key: scoped to both the table (so recreated tables rotate keys)
// and the column itself (so no two columns share key material).
func (ctx *Context) columnKeyInput(name string) string {
	return ctx.TableID + "_" + name
}

func prefixFor(kind token.EncryptedKind) string {
	switch kind {
	case token.EncryptedProbabilistic:
		return schema.PrefixProbabilistic
	case token.EncryptedPseudonym:
		return schema.PrefixPseudonym
	case token.EncryptedSearchwords:
		return schema.PrefixSearchwords
	case token.EncryptedHomomorphicInt:
		return schema.PrefixHomomorphicInt
	case token.EncryptedHomomorphicFloat:
		return schema.PrefixHomomorphicFloat
	default:
		return ""
	}
}

func wireColumnName(prefix, name string) string {
	full := prefix + name
	return strings.ReplaceAll(full, ".", schema.PeriodReplacement)
}

func (ctx *Context) pseudonymCipher(enc *token.Encrypted) *cipher.PseudonymCipher {
	var key []byte
	if enc.Related != "" {
		key = cipher.DerivePseudonymKey(ctx.MasterKey, enc.Related)
	} else {
		key = cipher.DerivePseudonymKey(ctx.MasterKey, ctx.columnKeyInput(enc.OriginalName()))
	}
	return cipher.NewPseudonymCipher(key)
}

func (ctx *Context) stringHash(enc *token.Encrypted) *cipher.StringHash {
	key := cipher.DeriveSearchwordsHashKey(ctx.MasterKey, ctx.columnKeyInput(enc.OriginalName()))
	return cipher.NewStringHash(key)
}

func (ctx *Context) homomorphicIntCipher(enc *token.Encrypted) (*cipher.HomomorphicIntCipher, error) {
	seed := cipher.DeriveHomomorphicSeed(ctx.MasterKey, ctx.columnKeyInput(enc.OriginalName()))
	return cipher.NewHomomorphicIntCipher(seed)
}

func (ctx *Context) homomorphicFloatCipher(enc *token.Encrypted) (*cipher.HomomorphicFloatCipher, error) {
	seed := cipher.DeriveHomomorphicSeed(ctx.MasterKey, ctx.columnKeyInput(enc.OriginalName()))
	return cipher.NewHomomorphicFloatCipher(seed)
}

func (ctx *Context) homomorphicIntNSquareHex(enc *token.Encrypted) (string, error) {
	c, err := ctx.homomorphicIntCipher(enc)
	if err != nil {
		return "", err
	}
	return c.NSquareHex(), nil
}

func (ctx *Context) homomorphicFloatNSquareHex(enc *token.Encrypted) (string, error) {
	c, err := ctx.homomorphicFloatCipher(enc)
	if err != nil {
		return "", err
	}
	return c.NSquareHex(), nil
}

func (ctx *Context) probabilisticCipher(enc *token.Encrypted) *cipher.ProbabilisticCipher {
	key := cipher.DeriveProbabilisticKey(ctx.MasterKey, ctx.columnKeyInput(enc.OriginalName()))
	return cipher.NewProbabilisticCipher(key)
}

// The following exported accessors let internal/reassemble derive the same
// per-column ciphers the rewriter used, without duplicating key derivation.

func (ctx *Context) PseudonymCipher(enc *token.Encrypted) *cipher.PseudonymCipher {
	return ctx.pseudonymCipher(enc)
}

func (ctx *Context) ProbabilisticCipher(enc *token.Encrypted) *cipher.ProbabilisticCipher {
	return ctx.probabilisticCipher(enc)
}

func (ctx *Context) HomomorphicIntCipher(enc *token.Encrypted) (*cipher.HomomorphicIntCipher, error) {
	return ctx.homomorphicIntCipher(enc)
}

func (ctx *Context) HomomorphicFloatCipher(enc *token.Encrypted) (*cipher.HomomorphicFloatCipher, error) {
	return ctx.homomorphicFloatCipher(enc)
}

// StringHash exposes the searchwords keyed-hash derivation so internal/load
// can index a cell the same way the query rewriter hashes a CONTAINS
// literal.
func (ctx *Context) StringHash(enc *token.Encrypted) *cipher.StringHash {
	return ctx.stringHash(enc)
}

// WireColumnName exposes the flat, dot-replaced wire column naming scheme so
// internal/load can target the exact column schema.RewriteSchema assigned
// an encrypted leaf.
func WireColumnName(prefix, path string) string {
	return wireColumnName(prefix, path)
}

// Plan is the complete output of rewriting one query: the server SQL plus
// everything the result reassembler needs to decode the response.
type Plan struct {
	SQL          string
	Aggregations []*token.AggregationQuery
	Residuals    []SelectResidual
	GroupBy      []string
	OrderBy      []sqlparser.OrderKey
	Manifest     *manifest.Manifest
}

// SelectResidual is the per-row client-side expression for one SELECT
// list entry, keyed by the server-visible alias the reassembler uses to
// find its inputs in a result row.
type SelectResidual struct {
	Alias string
	Expr  []token.Token
}

// Rewrite lowers a parsed query into a Plan.
func Rewrite(q *sqlparser.Query, ctx *Context) (*Plan, error) {
	aliasExprs := make(map[string][]token.Token)
	var lowered [][]token.Token
	var aggregations []*token.AggregationQuery

	for i, item := range q.Select {
		for _, tok := range item.Expr {
			f, ok := tok.(*token.Field)
			if !ok || aliasExprs[f.Name] != nil {
				continue
			}
			for _, later := range q.Select[i+1:] {
				if later.Alias == f.Name {
					return nil, invalidQuery("select item refers to alias " + f.Name + " of a later select item")
				}
			}
		}
		expr, err := substituteAliases(item.Expr, aliasExprs)
		if err != nil {
			return nil, err
		}
		expr, err = tagEncrypted(expr, ctx.Schema)
		if err != nil {
			return nil, err
		}
		expr, err = collapseBuiltins(expr)
		if err != nil {
			return nil, err
		}
		expr, err = collapseAggregations(expr, ctx, &aggregations)
		if err != nil {
			return nil, err
		}
		lowered = append(lowered, expr)
		if item.Alias != "" {
			aliasExprs[item.Alias] = expr
		}
	}

	var selectParts []string
	var residuals []SelectResidual
	serverNameOf := make(map[string]string)
	for i, expr := range lowered {
		alias := q.Select[i].Alias
		part, residual, err := classifySelectItem(expr, alias, i, ctx)
		if err != nil {
			return nil, err
		}
		// A constant select item, and one that reduced to a bare
		// AggregationQuery (whose fragments were already hoisted into
		// aggParts below), need no server column of their own.
		if part != "" {
			selectParts = append(selectParts, part)
		}
		residuals = append(residuals, residual)
		if alias != "" {
			if f, ok := residual.Expr[0].(*token.Field); ok && len(residual.Expr) == 1 {
				serverNameOf[alias] = f.Name
			} else if uq, ok := residual.Expr[0].(*token.UnencryptedQuery); ok && len(residual.Expr) == 1 {
				serverNameOf[alias] = uq.Alias
			}
		}
	}

	var aggParts []string
	for aggIdx, agg := range aggregations {
		for fragIdx := range agg.Fragments {
			alias := fmt.Sprintf("agg%d_%d_", aggIdx, fragIdx)
			agg.Fragments[fragIdx].Alias = alias
			aggParts = append(aggParts, fmt.Sprintf("%s AS %s", agg.Fragments[fragIdx].SQL, alias))
		}
	}
	selectParts = append(aggParts, selectParts...)

	var joins []string
	for _, j := range q.Joins {
		cond, err := rewriteCondition(j.Condition, ctx, false)
		if err != nil {
			return nil, err
		}
		joins = append(joins, joinClause(j.Table, cond))
	}

	where := ""
	if len(q.Where) > 0 {
		w, err := rewriteCondition(q.Where, ctx, false)
		if err != nil {
			return nil, err
		}
		where = w
	}

	having := ""
	if len(q.Having) > 0 {
		h, err := rewriteCondition(q.Having, ctx, true)
		if err != nil {
			return nil, err
		}
		having = h
	}

	groupBy, err := rewriteGroupBy(q.GroupBy, ctx, serverNameOf)
	if err != nil {
		return nil, err
	}

	sql := assembleSQL(selectParts, q.From, joins, where, groupBy, having, q.Limit)

	return &Plan{
		SQL:          sql,
		Aggregations: aggregations,
		Residuals:    residuals,
		GroupBy:      groupBy,
		OrderBy:      q.OrderBy,
		Manifest:     ctx.Manifest,
	}, nil
}

func invalidQuery(reason string) error {
	return fmt.Errorf("rewrite: %w", errs.InvalidQueryError{Reason: reason})
}
