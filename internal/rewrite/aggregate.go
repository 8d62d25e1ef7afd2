package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/encql/encql/internal/interp"
	"github.com/encql/encql/internal/token"
)

// collapseAggregations walks expr bottom-up, replacing every AggregationFn
// call with a single AggregationQuery token carrying the server-side
// fragment(s) needed to compute it and, for the SUM/AVG-over-homomorphic
// case, the residual client-side combination of several fragments. Newly
// produced AggregationQuery tokens are also appended to *out, in
// first-seen order, so the caller can hoist their fragments into the
// final SELECT list.
func collapseAggregations(expr []token.Token, ctx *Context, out *[]*token.AggregationQuery) ([]token.Token, error) {
	var stack [][]token.Token
	for _, tok := range expr {
		fn, isAgg := tok.(*token.AggregationFn)
		if !isAgg {
			arity, ok := arityOf(tok)
			if !ok {
				return nil, invalidQuery("unrecognized token in expression")
			}
			if arity == 0 {
				stack = append(stack, []token.Token{tok})
				continue
			}
			if len(stack) < arity {
				return nil, invalidQuery("malformed expression")
			}
			operands := stack[len(stack)-arity:]
			merged := flatten(operands)
			merged = append(merged, tok)
			stack = stack[:len(stack)-arity]
			stack = append(stack, merged)
			continue
		}

		if len(stack) < fn.Argc {
			return nil, invalidQuery("malformed call to " + fn.Name)
		}
		args := append([][]token.Token{}, stack[len(stack)-fn.Argc:]...)
		stack = stack[:len(stack)-fn.Argc]

		agg, err := lowerAggregation(fn, args, ctx)
		if err != nil {
			return nil, err
		}
		*out = append(*out, agg)
		stack = append(stack, []token.Token{agg})
	}

	if len(stack) != 1 {
		return nil, invalidQuery("expression did not reduce to a single value")
	}
	return stack[0], nil
}

func lowerAggregation(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	switch fn.Name {
	case "COUNT", "DISTINCTCOUNT":
		return lowerCount(fn, args, ctx)
	case "TOP":
		return lowerTop(fn, args, ctx)
	case "GROUP_CONCAT":
		return lowerGroupConcat(fn, args, ctx)
	case "SUM", "AVG":
		return lowerSumAvg(fn, args, ctx)
	default:
		return lowerPassthroughAggregation(fn, args, ctx)
	}
}

func infixOf(arg []token.Token, ctx *Context) (string, error) {
	return renderInfix(arg, ctx.serverLeaf)
}

// serverLeaf renders a leaf token the way it must appear in server SQL:
// encrypted fields become their prefixed wire column name, everything
// else keeps its ordinary surface form.
func (ctx *Context) serverLeaf(tok token.Token) (string, error) {
	if enc, ok := tok.(*token.Encrypted); ok {
		return wireColumnName(prefixFor(enc.Kind), enc.OriginalName()), nil
	}
	return defaultLeaf(tok)
}

func lowerCount(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	arg := args[0]
	if enc, ok := singleEncrypted(arg); ok {
		if fn.Name == "DISTINCTCOUNT" && enc.Kind != token.EncryptedPseudonym {
			return nil, invalidQuery("DISTINCTCOUNT over non-deterministic encryption is not supported")
		}
	} else if containsEncrypted(arg) {
		return nil, invalidQuery("COUNT over a composite encrypted expression is not supported")
	}
	infix, err := infixOf(arg, ctx)
	if err != nil {
		return nil, err
	}
	distinct := ""
	if fn.Name == "DISTINCTCOUNT" {
		distinct = "DISTINCT "
	}
	fragment := fmt.Sprintf("COUNT(%s%s)", distinct, infix)
	return &token.AggregationQuery{
		Fragments: []token.AggregationFragment{{SQL: fragment, Decode: token.DecodeOpaque}},
		Residual:  placeholder(0),
	}, nil
}

func lowerTop(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	arg := args[0]
	enc, encOk := singleEncrypted(arg)
	if encOk && enc.Kind != token.EncryptedPseudonym {
		return nil, invalidQuery("TOP requires a deterministic (pseudonym or plaintext) argument")
	} else if !encOk && containsEncrypted(arg) {
		return nil, invalidQuery("TOP over a composite encrypted expression is not supported")
	}
	var parts []string
	for _, a := range args {
		s, err := infixOf(a, ctx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	fragment := fmt.Sprintf("TOP(%s)", strings.Join(parts, ", "))
	decode := token.DecodeOpaque
	var field *token.Encrypted
	if encOk {
		decode = token.DecodePseudonym
		field = enc
	}
	return &token.AggregationQuery{
		Fragments: []token.AggregationFragment{{SQL: fragment, Decode: decode, Field: field}},
		Residual:  placeholder(0),
	}, nil
}

func lowerGroupConcat(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	arg := args[0]
	enc, encOk := singleEncrypted(arg)
	if encOk {
		if enc.Kind == token.EncryptedHomomorphicInt || enc.Kind == token.EncryptedHomomorphicFloat || enc.Kind == token.EncryptedSearchwords {
			return nil, invalidQuery("GROUP_CONCAT over a homomorphic or searchwords column is not supported")
		}
	} else if containsEncrypted(arg) {
		return nil, invalidQuery("GROUP_CONCAT over a composite encrypted expression is not supported")
	}
	infix, err := infixOf(arg, ctx)
	if err != nil {
		return nil, err
	}
	fragment := fmt.Sprintf("GROUP_CONCAT(%s)", infix)
	decode := token.DecodeOpaque
	var field *token.Encrypted
	encrypted := false
	if encOk {
		decode = token.DecodeGroupConcatEncrypted
		field = enc
		encrypted = true
	}
	return &token.AggregationQuery{
		Fragments:            []token.AggregationFragment{{SQL: fragment, Decode: decode, Field: field}},
		Residual:             placeholder(0),
		GroupConcatEncrypted: encrypted,
	}, nil
}

func lowerPassthroughAggregation(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	for _, a := range args {
		if containsEncrypted(a) {
			return nil, invalidQuery(fn.Name + " over an encrypted column is not supported")
		}
	}
	var parts []string
	for _, a := range args {
		s, err := infixOf(a, ctx)
		if err != nil {
			return nil, err
		}
		parts = append(parts, s)
	}
	fragment := fmt.Sprintf("%s(%s)", fn.Name, strings.Join(parts, ", "))
	return &token.AggregationQuery{
		Fragments: []token.AggregationFragment{{SQL: fragment, Decode: token.DecodeOpaque}},
		Residual:  placeholder(0),
	}, nil
}

// placeholder builds the one-token residual expression that simply
// forwards the i-th decoded fragment value unchanged.
func placeholder(i int) []token.Token {
	return []token.Token{fragmentPlaceholder(i)}
}

func fragmentPlaceholder(i int) *token.Field {
	return token.NewField(fmt.Sprintf("$%d", i))
}

// sumTerm is one additive term of a decomposed SUM/AVG argument.
type sumTerm struct {
	kind     string // "const", "plain", "homomorphic"
	constVal float64
	plain    []token.Token
	field    *token.Encrypted
	coeff    float64
}

func lowerSumAvg(fn *token.AggregationFn, args [][]token.Token, ctx *Context) (*token.AggregationQuery, error) {
	arg := args[0]
	if !containsEncrypted(arg) {
		infix, err := infixOf(arg, ctx)
		if err != nil {
			return nil, err
		}
		fragment := fmt.Sprintf("%s(%s)", fn.Name, infix)
		return &token.AggregationQuery{
			Fragments: []token.AggregationFragment{{SQL: fragment, Decode: token.DecodeOpaque}},
			Residual:  placeholder(0),
		}, nil
	}

	terms, err := decomposeSumTerms(arg, false)
	if err != nil {
		return nil, err
	}

	var fragments []token.AggregationFragment
	var residual []token.Token
	var repField *token.Encrypted
	haveResidual := false

	appendResidual := func(term []token.Token) {
		if !haveResidual {
			residual = term
			haveResidual = true
			return
		}
		residual = append(residual, term...)
		residual = append(residual, &token.Operator{Symbol: "+", Arity: 2})
	}

	var constSum float64
	haveConst := false

	for _, t := range terms {
		switch t.kind {
		case "const":
			constSum += t.constVal
			haveConst = true
		case "plain":
			infix, err := infixOf(t.plain, ctx)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, token.AggregationFragment{SQL: fmt.Sprintf("SUM(%s)", infix), Decode: token.DecodeOpaque})
			appendResidual(placeholder(len(fragments) - 1))
		case "homomorphic":
			if repField == nil {
				repField = t.field
			}
			frag, err := paillierSumFragment(t.field, ctx)
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, token.AggregationFragment{SQL: frag, Decode: token.DecodePaillierSum, Field: t.field})
			idx := len(fragments) - 1
			term := append(placeholder(idx), token.NewFloatLiteral(t.coeff), &token.Operator{Symbol: "*", Arity: 2})
			appendResidual(term)
		}
	}

	if haveConst {
		if repField == nil {
			return nil, invalidQuery("SUM/AVG constant term requires at least one homomorphic field to scale it against")
		}
		fragments = append(fragments, token.AggregationFragment{
			SQL:    fmt.Sprintf("COUNT(%s)", wireColumnName(prefixFor(repField.Kind), repField.OriginalName())),
			Decode: token.DecodeOpaque,
		})
		idx := len(fragments) - 1
		term := append(placeholder(idx), token.NewFloatLiteral(constSum), &token.Operator{Symbol: "*", Arity: 2})
		appendResidual(term)
	}

	if fn.Name == "AVG" {
		if repField == nil {
			return nil, invalidQuery("AVG over a homomorphic expression requires at least one homomorphic field")
		}
		fragments = append(fragments, token.AggregationFragment{
			SQL:    fmt.Sprintf("COUNT(%s)", wireColumnName(prefixFor(repField.Kind), repField.OriginalName())),
			Decode: token.DecodeOpaque,
		})
		countIdx := len(fragments) - 1
		residual = append(residual, placeholder(countIdx)...)
		residual = append(residual, &token.Operator{Symbol: "/", Arity: 2})
	}

	return &token.AggregationQuery{Fragments: fragments, Residual: residual, IsEncrypted: true}, nil
}

func paillierSumFragment(field *token.Encrypted, ctx *Context) (string, error) {
	wireCol := wireColumnName(prefixFor(field.Kind), field.OriginalName())
	var nSquareHex string
	var err error
	if field.Kind == token.EncryptedHomomorphicInt {
		nSquareHex, err = ctx.homomorphicIntNSquareHex(field)
	} else {
		nSquareHex, err = ctx.homomorphicFloatNSquareHex(field)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TO_BASE64(BYTES(PAILLIER_SUM(FROM_BASE64(%s), '%s')))", wireCol, nSquareHex), nil
}

// decomposeSumTerms flattens the +/- spine of a SUM/AVG argument into
// additive terms, classifying each as a bare constant, a homomorphic
// field scaled by a constant coefficient, or an arbitrary plaintext
// subexpression with no homomorphic field inside it.
func decomposeSumTerms(expr []token.Token, negate bool) ([]sumTerm, error) {
	if len(expr) > 0 {
		if op, ok := expr[len(expr)-1].(*token.Operator); ok && op.Arity == 2 && (op.Symbol == "+" || op.Symbol == "-") {
			parts, err := splitValues(expr[:len(expr)-1])
			if err == nil && len(parts) == 2 {
				left, err := decomposeSumTerms(parts[0], negate)
				if err != nil {
					return nil, err
				}
				rightNegate := negate
				if op.Symbol == "-" {
					rightNegate = !negate
				}
				right, err := decomposeSumTerms(parts[1], rightNegate)
				if err != nil {
					return nil, err
				}
				return append(left, right...), nil
			}
		}
	}

	if !containsEncrypted(expr) {
		if v, ok := interp.EvaluateConstant(expr); ok {
			val := asFloat(v)
			if negate {
				val = -val
			}
			return []sumTerm{{kind: "const", constVal: val}}, nil
		}
		plain := expr
		if negate {
			plain = append(append([]token.Token{}, expr...), &token.Operator{Symbol: "NEG", Arity: 1})
		}
		return []sumTerm{{kind: "plain", plain: plain}}, nil
	}

	field, coeff, ok := scaledHomomorphicField(expr)
	if !ok {
		return nil, invalidQuery("SUM/AVG argument is not a linear combination of homomorphic fields")
	}
	if negate {
		coeff = -coeff
	}
	return []sumTerm{{kind: "homomorphic", field: field, coeff: coeff}}, nil
}

// scaledHomomorphicField recognizes "<homomorphic field>" or "<constant>
// * <homomorphic field>" (in either operand order), returning the field
// and its coefficient.
func scaledHomomorphicField(expr []token.Token) (*token.Encrypted, float64, bool) {
	if len(expr) == 1 {
		if enc, ok := expr[0].(*token.Encrypted); ok && isHomomorphic(enc.Kind) {
			return enc, 1, true
		}
		return nil, 0, false
	}
	last, ok := expr[len(expr)-1].(*token.Operator)
	if !ok || last.Symbol != "*" || last.Arity != 2 {
		return nil, 0, false
	}
	parts, err := splitValues(expr[:len(expr)-1])
	if err != nil || len(parts) != 2 {
		return nil, 0, false
	}
	left, right := parts[0], parts[1]
	if v, ok := interp.EvaluateConstant(left); ok {
		field, coeff, ok2 := scaledHomomorphicField(right)
		if !ok2 {
			return nil, 0, false
		}
		return field, coeff * asFloat(v), true
	}
	if v, ok := interp.EvaluateConstant(right); ok {
		field, coeff, ok2 := scaledHomomorphicField(left)
		if !ok2 {
			return nil, 0, false
		}
		return field, coeff * asFloat(v), true
	}
	return nil, 0, false
}

func isHomomorphic(kind token.EncryptedKind) bool {
	return kind == token.EncryptedHomomorphicInt || kind == token.EncryptedHomomorphicFloat
}

func asFloat(v interp.Value) float64 {
	if v.Kind == interp.KindInt {
		return float64(v.Int)
	}
	return v.Flt
}

var _ = strconv.Itoa // formatCoeff intentionally left to token.NewFloatLiteral's own Surface() formatting
