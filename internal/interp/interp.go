// Package interp implements the client-side postfix expression evaluator
// and infix renderer shared by the query rewriter (which needs to decide
// whether a builtin call can be evaluated ahead of time) and the result
// reassembler (which needs to evaluate the residual expression left over
// after decrypting a row's columns).
package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/encql/encql/internal/token"
)

// ValueKind distinguishes the Go type a Value holds.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// Value is a runtime value produced by Evaluate.
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

func (v Value) asFloat() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Flt
	default:
		return math.NaN()
	}
}

func literalToValue(l *token.Literal) Value {
	switch l.Kind {
	case token.LiteralString:
		return Value{Kind: KindString, Str: l.Str}
	case token.LiteralInt:
		return Value{Kind: KindInt, Int: l.Int}
	case token.LiteralFloat:
		return Value{Kind: KindFloat, Flt: l.Flt}
	case token.LiteralBool:
		return Value{Kind: KindBool, Bool: l.Bool}
	default:
		return Value{Kind: KindNull}
	}
}

// Env resolves a Field token to its runtime value. Lookups are keyed by
// the field's surface name.
type Env map[string]Value

// Evaluate runs a postfix expression to completion against env, which may
// be nil if expr is known to contain no Field references.
func Evaluate(expr []token.Token, env Env) (Value, error) {
	var stack []Value
	pop := func() Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, tok := range expr {
		switch t := tok.(type) {
		case *token.Literal:
			stack = append(stack, literalToValue(t))
		case *token.Field:
			v, ok := env[t.Name]
			if !ok {
				return Value{}, fmt.Errorf("interp: no value bound for field %q", t.Name)
			}
			stack = append(stack, v)
		case *token.Operator:
			if t.Arity == 1 {
				if len(stack) < 1 {
					return Value{}, fmt.Errorf("interp: operator %q missing operand", t.Symbol)
				}
				operand := pop()
				if operand.Kind == KindNull {
					stack = append(stack, Value{Kind: KindNull})
					continue
				}
				v, err := applyUnary(t.Symbol, operand)
				if err != nil {
					return Value{}, err
				}
				stack = append(stack, v)
				continue
			}
			if len(stack) < 2 {
				return Value{}, fmt.Errorf("interp: operator %q missing operands", t.Symbol)
			}
			right := pop()
			left := pop()
			if (left.Kind == KindNull || right.Kind == KindNull) && !strings.EqualFold(t.Symbol, "IS") {
				stack = append(stack, Value{Kind: KindNull})
				continue
			}
			v, err := applyBinary(t.Symbol, left, right)
			if err != nil {
				return Value{}, err
			}
			stack = append(stack, v)
		case *token.Builtin:
			args := popN(&stack, t.Argc)
			nullArg := false
			for _, a := range args {
				nullArg = nullArg || a.Kind == KindNull
			}
			if nullArg {
				stack = append(stack, Value{Kind: KindNull})
				continue
			}
			v, err := applyBuiltin(t.Name, args)
			if err != nil {
				return Value{}, err
			}
			stack = append(stack, v)
		default:
			return Value{}, fmt.Errorf("interp: token %T cannot be evaluated", tok)
		}
	}

	if len(stack) != 1 {
		return Value{}, fmt.Errorf("interp: expression did not reduce to a single value")
	}
	return stack[0], nil
}

func popN(stack *[]Value, n int) []Value {
	s := *stack
	if n > len(s) {
		n = len(s)
	}
	args := append([]Value{}, s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	return args
}

// EvaluateConstant attempts to fold expr down to a single Value without any
// field bindings. It is how the rewriter decides whether a builtin call or
// sub-expression is field-free and can be collapsed into a literal before
// the query ever leaves the client, versus needing to be forwarded to the
// server as an opaque expression.
func EvaluateConstant(expr []token.Token) (Value, bool) {
	if ContainsField(expr) {
		return Value{}, false
	}
	v, err := Evaluate(expr, nil)
	if err != nil {
		return Value{}, false
	}
	return v, true
}

// ContainsField reports whether expr references any Field token, which is
// the rewriter's test for "can this builtin/expression be evaluated
// client-side right now, or must it be forwarded to the server".
func ContainsField(expr []token.Token) bool {
	for _, tok := range expr {
		if _, ok := tok.(*token.Field); ok {
			return true
		}
	}
	return false
}

// ToInfix renders a postfix expression back to SQL infix surface syntax.
func ToInfix(expr []token.Token) (string, error) {
	var stack []string
	pop := func() string {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, tok := range expr {
		switch t := tok.(type) {
		case *token.Operator:
			if t.Arity == 1 {
				operand := pop()
				stack = append(stack, fmt.Sprintf("%s(%s)", t.Symbol, operand))
				continue
			}
			right := pop()
			left := pop()
			stack = append(stack, fmt.Sprintf("(%s %s %s)", left, t.Symbol, right))
		case *token.Builtin:
			args := popN2(&stack, t.Argc)
			stack = append(stack, fmt.Sprintf("%s(%s)", t.Name, strings.Join(args, ", ")))
		default:
			stack = append(stack, tok.Surface())
		}
	}

	if len(stack) != 1 {
		return "", fmt.Errorf("interp: ToInfix: expression did not reduce to a single surface string")
	}
	return stack[0], nil
}

func popN2(stack *[]string, n int) []string {
	s := *stack
	if n > len(s) {
		n = len(s)
	}
	args := append([]string{}, s[len(s)-n:]...)
	*stack = s[:len(s)-n]
	return args
}
