package interp

import (
	"fmt"
	"strings"
)

func applyUnary(symbol string, v Value) (Value, error) {
	switch strings.ToUpper(symbol) {
	case "NEG", "-":
		switch v.Kind {
		case KindInt:
			return Value{Kind: KindInt, Int: -v.Int}, nil
		case KindFloat:
			return Value{Kind: KindFloat, Flt: -v.Flt}, nil
		default:
			return Value{}, fmt.Errorf("interp: unary - requires a numeric operand")
		}
	case "NOT":
		if v.Kind != KindBool {
			return Value{}, fmt.Errorf("interp: NOT requires a boolean operand")
		}
		return Value{Kind: KindBool, Bool: !v.Bool}, nil
	default:
		return Value{}, fmt.Errorf("interp: unsupported unary operator %q", symbol)
	}
}

func bothNumeric(a, b Value) bool {
	numeric := func(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }
	return numeric(a) && numeric(b)
}

func applyBinary(symbol string, a, b Value) (Value, error) {
	switch strings.ToUpper(symbol) {
	case "AND":
		return Value{Kind: KindBool, Bool: a.Bool && b.Bool}, nil
	case "OR":
		return Value{Kind: KindBool, Bool: a.Bool || b.Bool}, nil
	case "+":
		return arith(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	case "-":
		return arith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	case "*":
		return arith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	case "/":
		if !bothNumeric(a, b) {
			return Value{}, fmt.Errorf("interp: / requires numeric operands")
		}
		return Value{Kind: KindFloat, Flt: a.asFloat() / b.asFloat()}, nil
	case "%":
		if a.Kind != KindInt || b.Kind != KindInt {
			return Value{}, fmt.Errorf("interp: %% requires integer operands")
		}
		return Value{Kind: KindInt, Int: a.Int % b.Int}, nil
	case "&":
		return Value{Kind: KindInt, Int: a.Int & b.Int}, nil
	case "|":
		return Value{Kind: KindInt, Int: a.Int | b.Int}, nil
	case "^":
		return Value{Kind: KindInt, Int: a.Int ^ b.Int}, nil
	case "<<":
		return Value{Kind: KindInt, Int: a.Int << uint(b.Int)}, nil
	case ">>":
		return Value{Kind: KindInt, Int: a.Int >> uint(b.Int)}, nil
	case "=", "==":
		return Value{Kind: KindBool, Bool: equalValues(a, b)}, nil
	case "!=", "<>":
		return Value{Kind: KindBool, Bool: !equalValues(a, b)}, nil
	case "<":
		return compare(a, b, func(c int) bool { return c < 0 })
	case "<=":
		return compare(a, b, func(c int) bool { return c <= 0 })
	case ">":
		return compare(a, b, func(c int) bool { return c > 0 })
	case ">=":
		return compare(a, b, func(c int) bool { return c >= 0 })
	case "IS":
		return Value{Kind: KindBool, Bool: equalValues(a, b)}, nil
	case "CONTAINS":
		if a.Kind != KindString || b.Kind != KindString {
			return Value{}, fmt.Errorf("interp: CONTAINS requires string operands")
		}
		return Value{Kind: KindBool, Bool: strings.Contains(a.Str, b.Str)}, nil
	default:
		return Value{}, fmt.Errorf("interp: unsupported binary operator %q", symbol)
	}
}

func arith(a, b Value, intOp func(int64, int64) int64, fltOp func(float64, float64) float64) (Value, error) {
	if !bothNumeric(a, b) {
		return Value{}, fmt.Errorf("interp: arithmetic requires numeric operands")
	}
	if a.Kind == KindInt && b.Kind == KindInt {
		return Value{Kind: KindInt, Int: intOp(a.Int, b.Int)}, nil
	}
	return Value{Kind: KindFloat, Flt: fltOp(a.asFloat(), b.asFloat())}, nil
}

func equalValues(a, b Value) bool {
	if bothNumeric(a, b) {
		return a.asFloat() == b.asFloat()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindNull:
		return true
	default:
		return false
	}
}

func compare(a, b Value, pred func(int) bool) (Value, error) {
	switch {
	case bothNumeric(a, b):
		af, bf := a.asFloat(), b.asFloat()
		switch {
		case af < bf:
			return Value{Kind: KindBool, Bool: pred(-1)}, nil
		case af > bf:
			return Value{Kind: KindBool, Bool: pred(1)}, nil
		default:
			return Value{Kind: KindBool, Bool: pred(0)}, nil
		}
	case a.Kind == KindString && b.Kind == KindString:
		return Value{Kind: KindBool, Bool: pred(strings.Compare(a.Str, b.Str))}, nil
	default:
		return Value{}, fmt.Errorf("interp: comparison requires comparable operands")
	}
}

// applyBuiltin implements the small set of scalar SQL builtins that must be
// evaluable client-side so the rewriter can fold constant builtin calls
// (ones with no Field arguments) into literals before sending a query on.
func applyBuiltin(name string, args []Value) (Value, error) {
	switch strings.ToUpper(name) {
	case "TO_BASE64":
		return Value{}, fmt.Errorf("interp: TO_BASE64 cannot be constant-folded")
	case "CONCAT":
		var sb strings.Builder
		for _, a := range args {
			if a.Kind != KindString {
				return Value{}, fmt.Errorf("interp: CONCAT requires string arguments")
			}
			sb.WriteString(a.Str)
		}
		return Value{Kind: KindString, Str: sb.String()}, nil
	case "UPPER":
		if len(args) != 1 || args[0].Kind != KindString {
			return Value{}, fmt.Errorf("interp: UPPER requires one string argument")
		}
		return Value{Kind: KindString, Str: strings.ToUpper(args[0].Str)}, nil
	case "LOWER":
		if len(args) != 1 || args[0].Kind != KindString {
			return Value{}, fmt.Errorf("interp: LOWER requires one string argument")
		}
		return Value{Kind: KindString, Str: strings.ToLower(args[0].Str)}, nil
	case "ABS":
		if len(args) != 1 {
			return Value{}, fmt.Errorf("interp: ABS requires one argument")
		}
		switch args[0].Kind {
		case KindInt:
			v := args[0].Int
			if v < 0 {
				v = -v
			}
			return Value{Kind: KindInt, Int: v}, nil
		case KindFloat:
			v := args[0].Flt
			if v < 0 {
				v = -v
			}
			return Value{Kind: KindFloat, Flt: v}, nil
		default:
			return Value{}, fmt.Errorf("interp: ABS requires a numeric argument")
		}
	default:
		return Value{}, fmt.Errorf("interp: builtin %q cannot be constant-folded", name)
	}
}
