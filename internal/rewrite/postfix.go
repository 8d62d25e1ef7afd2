package rewrite

import (
	"fmt"
	"strings"

	"github.com/encql/encql/internal/token"
)

// arityOf reports how many preceding values a token consumes from the
// stack (0 for every leaf shape, Arity/Argc for operators and calls).
func arityOf(tok token.Token) (int, bool) {
	switch t := tok.(type) {
	case *token.Literal, *token.Field, *token.Encrypted, token.CountStar,
		*token.AggregationQuery, *token.UnencryptedQuery:
		return 0, true
	case *token.Operator:
		return t.Arity, true
	case *token.Builtin:
		return t.Argc, true
	case *token.AggregationFn:
		return t.Argc, true
	default:
		return 0, false
	}
}

// splitValues partitions a postfix token sequence representing the
// concatenation of several independent values (e.g. a call's argument
// list) back into its constituent value subsequences, in left-to-right
// order. It works by running the same stack machine an evaluator would,
// but pushing/popping whole token subsequences instead of values.
func splitValues(seq []token.Token) ([][]token.Token, error) {
	var stack [][]token.Token
	for _, tok := range seq {
		arity, ok := arityOf(tok)
		if !ok {
			return nil, fmt.Errorf("rewrite: unrecognized token %T", tok)
		}
		if arity == 0 {
			stack = append(stack, []token.Token{tok})
			continue
		}
		if len(stack) < arity {
			return nil, fmt.Errorf("rewrite: malformed expression near %T", tok)
		}
		operands := stack[len(stack)-arity:]
		merged := flatten(operands)
		merged = append(merged, tok)
		stack = stack[:len(stack)-arity]
		stack = append(stack, merged)
	}
	return stack, nil
}

func flatten(chunks [][]token.Token) []token.Token {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]token.Token, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// splitCallArgs extracts the argc argument subsequences preceding a call
// token (a Builtin or AggregationFn), which must be the final token of
// expr.
func splitCallArgs(expr []token.Token, argc int) ([][]token.Token, error) {
	args := expr[:len(expr)-1]
	if argc == 0 {
		if len(args) != 0 {
			return nil, fmt.Errorf("rewrite: call expects no arguments")
		}
		return nil, nil
	}
	parts, err := splitValues(args)
	if err != nil {
		return nil, err
	}
	if len(parts) != argc {
		return nil, fmt.Errorf("rewrite: call expects %d arguments, found %d", argc, len(parts))
	}
	return parts, nil
}

func containsEncrypted(seq []token.Token) bool {
	for _, tok := range seq {
		if _, ok := tok.(*token.Encrypted); ok {
			return true
		}
	}
	return false
}

// singleEncrypted reports whether seq reduces to exactly one token which
// is itself an encrypted field reference (the common "aggregate over a
// bare encrypted column" shape).
func singleEncrypted(seq []token.Token) (*token.Encrypted, bool) {
	if len(seq) != 1 {
		return nil, false
	}
	enc, ok := seq[0].(*token.Encrypted)
	return enc, ok
}

// renderInfix renders a postfix token sequence back to SQL infix text,
// consulting leaf for how each non-operator, non-builtin token should be
// rendered (so callers can substitute server-side wire column names for
// Encrypted/Field tokens instead of their plain surface form).
func renderInfix(expr []token.Token, leaf func(token.Token) (string, error)) (string, error) {
	var stack []string
	for _, tok := range expr {
		switch t := tok.(type) {
		case *token.Operator:
			if t.Arity == 1 {
				if len(stack) < 1 {
					return "", fmt.Errorf("rewrite: malformed expression")
				}
				operand := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				stack = append(stack, fmt.Sprintf("%s(%s)", t.Symbol, operand))
				continue
			}
			if len(stack) < 2 {
				return "", fmt.Errorf("rewrite: malformed expression")
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, fmt.Sprintf("(%s %s %s)", left, t.Symbol, right))
		case *token.Builtin:
			if len(stack) < t.Argc {
				return "", fmt.Errorf("rewrite: malformed builtin call %s", t.Name)
			}
			args := append([]string{}, stack[len(stack)-t.Argc:]...)
			stack = stack[:len(stack)-t.Argc]
			stack = append(stack, fmt.Sprintf("%s(%s)", t.Name, strings.Join(args, ", ")))
		default:
			s, err := leaf(tok)
			if err != nil {
				return "", err
			}
			stack = append(stack, s)
		}
	}
	if len(stack) != 1 {
		return "", fmt.Errorf("rewrite: expression did not reduce to a single surface string")
	}
	return stack[0], nil
}

func defaultLeaf(tok token.Token) (string, error) { return tok.Surface(), nil }
