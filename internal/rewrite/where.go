package rewrite

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/encql/encql/internal/cipher"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/token"
)

// condNode is one value on the WHERE/HAVING rendering stack: its rendered
// server-side SQL text, plus enough of its original shape to let
// combineCondition recognize the handful of operator patterns that are
// allowed to touch an encrypted operand.
type condNode struct {
	infix  string
	enc    *token.Encrypted
	strLit *string
}

// rewriteCondition lowers a WHERE or HAVING postfix expression into server
// SQL text. Builtins are collapsed exactly as in a SELECT item (plaintext
// only); aggregate functions are only permitted in HAVING, and even there
// PAILLIER_SUM and GROUP_CONCAT-over-encrypted residuals are forbidden
// since the server cannot apply them before filtering rows.
func rewriteCondition(expr []token.Token, ctx *Context, isHaving bool) (string, error) {
	tagged, err := tagEncrypted(expr, ctx.Schema)
	if err != nil {
		return "", err
	}

	if !isHaving {
		for _, t := range tagged {
			if _, ok := t.(*token.AggregationFn); ok {
				return "", invalidQuery("aggregate functions are not allowed in WHERE")
			}
		}
	}

	builtinsCollapsed, err := collapseBuiltins(tagged)
	if err != nil {
		return "", err
	}

	final := builtinsCollapsed
	if isHaving {
		var havingAggs []*token.AggregationQuery
		final, err = collapseAggregations(builtinsCollapsed, ctx, &havingAggs)
		if err != nil {
			return "", err
		}
		for _, agg := range havingAggs {
			if agg.IsEncrypted {
				return "", invalidQuery("HAVING cannot reference a homomorphic SUM/AVG")
			}
			if agg.GroupConcatEncrypted {
				return "", invalidQuery("HAVING cannot reference GROUP_CONCAT over an encrypted column")
			}
		}
	}

	return renderCondition(final, ctx)
}

func renderCondition(expr []token.Token, ctx *Context) (string, error) {
	var stack []condNode
	for _, tok := range expr {
		switch t := tok.(type) {
		case *token.Literal:
			node := condNode{infix: t.Surface()}
			if t.Kind == token.LiteralString {
				v := t.Str
				node.strLit = &v
			}
			stack = append(stack, node)
		case token.CountStar:
			stack = append(stack, condNode{infix: t.Surface()})
		case *token.Encrypted:
			wireCol := wireColumnName(prefixFor(t.Kind), t.OriginalName())
			stack = append(stack, condNode{infix: wireCol, enc: t})
		case *token.Field:
			stack = append(stack, condNode{infix: t.Name})
		case *token.AggregationQuery:
			stack = append(stack, condNode{infix: t.Surface()})
		case *token.Builtin:
			if len(stack) < t.Argc {
				return "", invalidQuery("malformed builtin call " + t.Name)
			}
			args := stack[len(stack)-t.Argc:]
			for _, a := range args {
				if a.enc != nil {
					return "", invalidQuery("builtin " + t.Name + " cannot take an encrypted argument")
				}
			}
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = a.infix
			}
			stack = stack[:len(stack)-t.Argc]
			stack = append(stack, condNode{infix: fmt.Sprintf("%s(%s)", t.Name, strings.Join(parts, ", "))})
		case *token.Operator:
			if t.Arity == 1 {
				if len(stack) < 1 {
					return "", invalidQuery("malformed expression")
				}
				operand := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if operand.enc != nil {
					return "", invalidQuery("operator " + t.Symbol + " cannot apply to an encrypted column")
				}
				stack = append(stack, condNode{infix: fmt.Sprintf("%s(%s)", t.Symbol, operand.infix)})
				continue
			}
			if len(stack) < 2 {
				return "", invalidQuery("malformed expression")
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			node, err := combineCondition(left, right, t.Symbol, ctx)
			if err != nil {
				return "", err
			}
			stack = append(stack, node)
		default:
			return "", invalidQuery("unsupported token in condition")
		}
	}
	if len(stack) != 1 {
		return "", invalidQuery("condition did not reduce to a single expression")
	}
	return stack[0].infix, nil
}

// combineCondition implements spec.md's WHERE/HAVING determinism rule: an
// encrypted operand only ever survives into an = / == / != comparison
// against a pseudonym column (ciphertext replaces the plaintext literal),
// or the left side of CONTAINS against a searchwords-capable column. Any
// other operator touching an encrypted operand is rejected.
func combineCondition(left, right condNode, op string, ctx *Context) (condNode, error) {
	if left.enc == nil && right.enc == nil {
		return condNode{infix: fmt.Sprintf("(%s %s %s)", left.infix, op, right.infix)}, nil
	}

	switch op {
	case "=", "==", "!=":
		if left.enc != nil && right.enc == nil {
			if left.enc.Kind != token.EncryptedPseudonym || right.strLit == nil {
				return condNode{}, invalidQuery("equality over an encrypted column requires a pseudonym field and a string literal")
			}
			ct, err := ctx.pseudonymCipherText(left.enc, *right.strLit)
			if err != nil {
				return condNode{}, err
			}
			return condNode{infix: fmt.Sprintf("(%s %s '%s')", left.infix, op, ct)}, nil
		}
		if right.enc != nil && left.enc == nil {
			if right.enc.Kind != token.EncryptedPseudonym || left.strLit == nil {
				return condNode{}, invalidQuery("equality over an encrypted column requires a pseudonym field and a string literal")
			}
			ct, err := ctx.pseudonymCipherText(right.enc, *left.strLit)
			if err != nil {
				return condNode{}, err
			}
			return condNode{infix: fmt.Sprintf("('%s' %s %s)", ct, op, right.infix)}, nil
		}
		if left.enc.Kind == token.EncryptedPseudonym && right.enc.Kind == token.EncryptedPseudonym {
			return condNode{infix: fmt.Sprintf("(%s %s %s)", left.infix, op, right.infix)}, nil
		}
		return condNode{}, invalidQuery("equality over encrypted columns is only supported for pseudonym fields")
	case "CONTAINS":
		if left.enc == nil || right.enc != nil || right.strLit == nil {
			return condNode{}, invalidQuery("contains requires a searchwords field on the left and a string literal on the right")
		}
		sCol, err := ctx.searchwordsColumnFor(left.enc)
		if err != nil {
			return condNode{}, err
		}
		keyedB64, err := ctx.searchwordsQueryHash(left.enc, *right.strLit)
		if err != nil {
			return condNode{}, err
		}
		frag := fmt.Sprintf(
			"(%s contains to_base64(left(bytes(sha1(concat(left(%s, 24), '%s'))), 8)))",
			sCol, sCol, keyedB64,
		)
		return condNode{infix: frag}, nil
	default:
		return condNode{}, invalidQuery("operator " + op + " cannot apply to an encrypted column")
	}
}

func (ctx *Context) pseudonymCipherText(enc *token.Encrypted, plaintext string) (string, error) {
	ct, err := ctx.pseudonymCipher(enc).Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("rewrite: %w", err)
	}
	return ct, nil
}

// searchwordsColumnFor resolves the DS_SEARCHWORDS_ wire column backing a
// searchwords or probabilistic_searchwords field reference.
func (ctx *Context) searchwordsColumnFor(enc *token.Encrypted) (string, error) {
	switch enc.Kind {
	case token.EncryptedSearchwords:
		return wireColumnName(schema.PrefixSearchwords, enc.OriginalName()), nil
	case token.EncryptedProbabilistic:
		col := ctx.Schema.Find(enc.OriginalName())
		if col == nil || col.Encrypt != schema.EncryptProbabilisticSearchwords {
			return "", invalidQuery("CONTAINS requires a searchwords-capable column")
		}
		return wireColumnName(schema.PrefixSearchwords, enc.OriginalName()), nil
	default:
		return "", invalidQuery("CONTAINS requires a searchwords-capable column")
	}
}

func (ctx *Context) searchwordsQueryHash(enc *token.Encrypted, phrase string) (string, error) {
	col := ctx.Schema.Find(enc.OriginalName())
	if col == nil {
		return "", invalidQuery("unknown column " + enc.OriginalName())
	}
	words := cipher.CleanUnicodeString(phrase)
	cleaned := strings.Join(words, " ")
	h := ctx.stringHash(enc)
	keyed := h.GetStringKeyHash(enc.OriginalName(), cleaned)
	return base64.StdEncoding.EncodeToString(keyed), nil
}
