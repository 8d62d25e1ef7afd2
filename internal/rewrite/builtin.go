package rewrite

import (
	"github.com/encql/encql/internal/interp"
	"github.com/encql/encql/internal/token"
)

// collapseBuiltins walks expr bottom-up, replacing every BuiltinFn call
// with either a literal (if none of its arguments reference a field) or
// an opaque Field token carrying the call's rendered infix text (if its
// arguments reference only plaintext fields). A builtin applied to an
// encrypted field is a hard error: builtins only ever run over plaintext.
func collapseBuiltins(expr []token.Token) ([]token.Token, error) {
	var stack [][]token.Token
	for _, tok := range expr {
		b, isBuiltin := tok.(*token.Builtin)
		if !isBuiltin {
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

		if len(stack) < b.Argc {
			return nil, invalidQuery("malformed builtin call " + b.Name)
		}
		args := append([][]token.Token{}, stack[len(stack)-b.Argc:]...)
		stack = stack[:len(stack)-b.Argc]

		for _, a := range args {
			if containsEncrypted(a) {
				return nil, invalidQuery("builtin " + b.Name + " cannot take an encrypted argument")
			}
		}

		full := flatten(args)
		full = append(full, b)

		anyField := false
		for _, a := range args {
			if interp.ContainsField(a) {
				anyField = true
				break
			}
		}

		if !anyField {
			v, ok := interp.EvaluateConstant(full)
			if !ok {
				return nil, invalidQuery("builtin " + b.Name + " is not supported for client-side evaluation")
			}
			stack = append(stack, []token.Token{valueToLiteral(v)})
			continue
		}

		surface, err := interp.ToInfix(full)
		if err != nil {
			return nil, err
		}
		stack = append(stack, []token.Token{token.NewField(surface)})
	}

	if len(stack) != 1 {
		return nil, invalidQuery("expression did not reduce to a single value")
	}
	return stack[0], nil
}

func valueToLiteral(v interp.Value) *token.Literal {
	switch v.Kind {
	case interp.KindString:
		return token.NewStringLiteral(v.Str)
	case interp.KindInt:
		return token.NewIntLiteral(v.Int)
	case interp.KindFloat:
		return token.NewFloatLiteral(v.Flt)
	case interp.KindBool:
		return token.NewBoolLiteral(v.Bool)
	default:
		return token.NewNullLiteral()
	}
}
