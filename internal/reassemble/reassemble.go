// Package reassemble replays a rewrite.Plan against the raw rows a table
// service query returned: decrypting wire columns with the right cipher,
// evaluating each SELECT item's residual expression, and applying the
// client-side ORDER BY the rewriter deliberately never sends to the server.
package reassemble

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/interp"
	"github.com/encql/encql/internal/rewrite"
	"github.com/encql/encql/internal/sqlparser"
	"github.com/encql/encql/internal/token"
)

// Row is one raw response row, keyed by response column name. Values come
// straight off the table service driver (string, []byte, int64, float64,
// bool, or nil), before any decryption or expression evaluation.
type Row map[string]any

// Reassembler decodes rows returned for a single rewritten query.
type Reassembler struct {
	ctx  *rewrite.Context
	plan *rewrite.Plan
}

func New(ctx *rewrite.Context, plan *rewrite.Plan) *Reassembler {
	return &Reassembler{ctx: ctx, plan: plan}
}

// Decode turns one raw response row into the final column values, keyed by
// each SELECT item's output alias, in plan.Residuals order.
func (r *Reassembler) Decode(row Row) (map[string]any, error) {
	out := make(map[string]any, len(r.plan.Residuals))
	for _, residual := range r.plan.Residuals {
		v, err := r.decodeResidual(residual, row)
		if err != nil {
			return nil, err
		}
		out[residual.Alias] = v
	}
	return out, nil
}

// DecodeAll decodes every row and then applies ORDER BY client-side, since
// the rewriter never forwards it to the server.
func (r *Reassembler) DecodeAll(rows []Row) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		decoded, err := r.Decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	sortRows(out, r.plan.OrderBy)
	return out, nil
}

func (r *Reassembler) decodeResidual(residual rewrite.SelectResidual, row Row) (any, error) {
	if len(residual.Expr) != 1 {
		// Only a constant-folded expression reaches reassemble with more
		// than one token; it needs no row at all.
		v, err := interp.Evaluate(residual.Expr, nil)
		if err != nil {
			return nil, fmt.Errorf("reassemble: %s: %w", residual.Alias, err)
		}
		return valueToAny(v), nil
	}

	switch t := residual.Expr[0].(type) {
	case *token.AggregationQuery:
		v, err := r.decodeAggregation(t, row)
		if err != nil {
			return nil, fmt.Errorf("reassemble: %s: %w", residual.Alias, err)
		}
		return valueToAny(v), nil
	case *token.Encrypted:
		v, err := r.decodeEncryptedField(t, row)
		if err != nil {
			return nil, fmt.Errorf("reassemble: %s: %w", residual.Alias, err)
		}
		return v, nil
	case *token.Field:
		raw, ok := row[t.Name]
		if !ok {
			return nil, fmt.Errorf("reassemble: %s: missing response column %q", residual.Alias, t.Name)
		}
		return raw, nil
	case *token.UnencryptedQuery:
		raw, ok := row[t.Alias]
		if !ok {
			return nil, fmt.Errorf("reassemble: %s: missing response column %q", residual.Alias, t.Alias)
		}
		return raw, nil
	default:
		v, err := interp.Evaluate(residual.Expr, nil)
		if err != nil {
			return nil, fmt.Errorf("reassemble: %s: %w", residual.Alias, err)
		}
		return valueToAny(v), nil
	}
}

func (r *Reassembler) decodeEncryptedField(enc *token.Encrypted, row Row) (any, error) {
	raw, ok := row[enc.Name]
	if !ok {
		return nil, fmt.Errorf("missing response column %q", enc.Name)
	}
	if raw == nil {
		return nil, nil
	}
	s := toString(raw)

	switch enc.Kind {
	case token.EncryptedPseudonym:
		pt, err := r.ctx.PseudonymCipher(enc).Decrypt(s)
		if err != nil {
			return nil, errs.DecryptError{Column: enc.OriginalName(), Err: err}
		}
		return pt, nil
	case token.EncryptedProbabilistic:
		pt, err := r.ctx.ProbabilisticCipher(enc).Decrypt(s)
		if err != nil {
			return nil, errs.DecryptError{Column: enc.OriginalName(), Err: err}
		}
		return pt, nil
	case token.EncryptedHomomorphicInt:
		c, err := r.ctx.HomomorphicIntCipher(enc)
		if err != nil {
			return nil, err
		}
		v, err := c.Decrypt(s)
		if err != nil {
			return nil, errs.DecryptError{Column: enc.OriginalName(), Err: err}
		}
		return v, nil
	case token.EncryptedHomomorphicFloat:
		c, err := r.ctx.HomomorphicFloatCipher(enc)
		if err != nil {
			return nil, err
		}
		v, err := c.Decrypt(s)
		if err != nil {
			return nil, errs.DecryptError{Column: enc.OriginalName(), Err: err}
		}
		return v, nil
	default:
		// Searchwords columns hash one-way; there is nothing to decrypt,
		// so a direct select just surfaces the raw wire cell.
		return s, nil
	}
}

func (r *Reassembler) decodeAggregation(agg *token.AggregationQuery, row Row) (interp.Value, error) {
	env := make(interp.Env, len(agg.Fragments))
	for i, frag := range agg.Fragments {
		raw, ok := row[frag.Alias]
		if !ok {
			return interp.Value{}, fmt.Errorf("missing response column %q", frag.Alias)
		}
		v, err := r.decodeFragment(frag, raw)
		if err != nil {
			return interp.Value{}, err
		}
		env[fmt.Sprintf("$%d", i)] = v
	}
	return interp.Evaluate(agg.Residual, env)
}

func (r *Reassembler) decodeFragment(frag token.AggregationFragment, raw any) (interp.Value, error) {
	if raw == nil {
		return interp.Value{Kind: interp.KindNull}, nil
	}

	switch frag.Decode {
	case token.DecodeOpaque:
		return opaqueToValue(raw), nil
	case token.DecodePseudonym:
		pt, err := r.ctx.PseudonymCipher(frag.Field).Decrypt(toString(raw))
		if err != nil {
			return interp.Value{}, errs.DecryptError{Column: frag.Field.OriginalName(), Err: err}
		}
		return interp.Value{Kind: interp.KindString, Str: pt}, nil
	case token.DecodeGroupConcatEncrypted:
		return r.decodeGroupConcat(frag.Field, toString(raw))
	case token.DecodePaillierSum:
		return r.decodePaillierSum(frag.Field, toString(raw))
	default:
		return interp.Value{}, fmt.Errorf("reassemble: unknown fragment decode %q", frag.Decode)
	}
}

func (r *Reassembler) decodeGroupConcat(field *token.Encrypted, joined string) (interp.Value, error) {
	if joined == "" {
		return interp.Value{Kind: interp.KindString, Str: ""}, nil
	}
	parts := strings.Split(joined, ",")
	decrypt, err := r.cipherDecryptFor(field)
	if err != nil {
		return interp.Value{}, err
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		pt, err := decrypt(p)
		if err != nil {
			return interp.Value{}, errs.DecryptError{Column: field.OriginalName(), Err: err}
		}
		out[i] = pt
	}
	return interp.Value{Kind: interp.KindString, Str: strings.Join(out, ",")}, nil
}

func (r *Reassembler) cipherDecryptFor(enc *token.Encrypted) (func(string) (string, error), error) {
	switch enc.Kind {
	case token.EncryptedPseudonym:
		return r.ctx.PseudonymCipher(enc).Decrypt, nil
	case token.EncryptedProbabilistic:
		return r.ctx.ProbabilisticCipher(enc).Decrypt, nil
	default:
		return nil, fmt.Errorf("reassemble: GROUP_CONCAT cannot decrypt column of kind %v", enc.Kind)
	}
}

func (r *Reassembler) decodePaillierSum(field *token.Encrypted, ciphertext string) (interp.Value, error) {
	if field.Kind == token.EncryptedHomomorphicInt {
		c, err := r.ctx.HomomorphicIntCipher(field)
		if err != nil {
			return interp.Value{}, err
		}
		v, err := c.Decrypt(ciphertext)
		if err != nil {
			return interp.Value{}, errs.DecryptError{Column: field.OriginalName(), Err: err}
		}
		return interp.Value{Kind: interp.KindInt, Int: v}, nil
	}
	c, err := r.ctx.HomomorphicFloatCipher(field)
	if err != nil {
		return interp.Value{}, err
	}
	v, err := c.Decrypt(ciphertext)
	if err != nil {
		return interp.Value{}, errs.DecryptError{Column: field.OriginalName(), Err: err}
	}
	return interp.Value{Kind: interp.KindFloat, Flt: v}, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// opaqueToValue converts a driver-typed response value (already the
// server's own COUNT/SUM/TOP/etc result, untouched by any cipher) into the
// interp.Value the aggregation's residual expression operates on.
func opaqueToValue(v any) interp.Value {
	switch t := v.(type) {
	case int64:
		return interp.Value{Kind: interp.KindInt, Int: t}
	case int:
		return interp.Value{Kind: interp.KindInt, Int: int64(t)}
	case float64:
		return interp.Value{Kind: interp.KindFloat, Flt: t}
	case bool:
		return interp.Value{Kind: interp.KindBool, Bool: t}
	case []byte:
		return stringOrNumber(string(t))
	case string:
		return stringOrNumber(t)
	case nil:
		return interp.Value{Kind: interp.KindNull}
	default:
		return interp.Value{Kind: interp.KindString, Str: fmt.Sprint(t)}
	}
}

func stringOrNumber(s string) interp.Value {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return interp.Value{Kind: interp.KindInt, Int: i}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return interp.Value{Kind: interp.KindFloat, Flt: f}
	}
	return interp.Value{Kind: interp.KindString, Str: s}
}

func valueToAny(v interp.Value) any {
	switch v.Kind {
	case interp.KindString:
		return v.Str
	case interp.KindInt:
		return v.Int
	case interp.KindFloat:
		return v.Flt
	case interp.KindBool:
		return v.Bool
	default:
		return nil
	}
}

func sortRows(rows []map[string]any, keys []sqlparser.OrderKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareValues(rows[i][k.Name], rows[j][k.Name])
			if cmp == 0 {
				continue
			}
			if k.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv, ok := b.(float64)
		if !ok {
			break
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			break
		}
		return strings.Compare(av, bv)
	case bool:
		bv, ok := b.(bool)
		if !ok {
			break
		}
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
