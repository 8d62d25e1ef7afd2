package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/token"
)

func TestEvaluateArithmeticPrecedenceResult(t *testing.T) {
	// postfix for: 1 + 2 * 3
	expr := []token.Token{
		token.NewIntLiteral(1),
		token.NewIntLiteral(2),
		token.NewIntLiteral(3),
		&token.Operator{Symbol: "*", Arity: 2},
		&token.Operator{Symbol: "+", Arity: 2},
	}
	v, err := Evaluate(expr, nil)
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind)
	assert.Equal(t, int64(7), v.Int)
}

func TestEvaluateFieldLookup(t *testing.T) {
	expr := []token.Token{
		token.NewField("age"),
		token.NewIntLiteral(21),
		&token.Operator{Symbol: ">", Arity: 2},
	}
	v, err := Evaluate(expr, Env{"age": {Kind: KindInt, Int: 42}})
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestEvaluateMissingFieldFails(t *testing.T) {
	expr := []token.Token{token.NewField("age")}
	_, err := Evaluate(expr, Env{})
	assert.Error(t, err)
}

func TestEvaluateUnaryNot(t *testing.T) {
	expr := []token.Token{
		token.NewBoolLiteral(false),
		&token.Operator{Symbol: "NOT", Arity: 1},
	}
	v, err := Evaluate(expr, nil)
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestEvaluateBuiltinConcat(t *testing.T) {
	expr := []token.Token{
		token.NewStringLiteral("foo"),
		token.NewStringLiteral("bar"),
		&token.Builtin{Name: "CONCAT", Argc: 2},
	}
	v, err := Evaluate(expr, nil)
	require.NoError(t, err)
	assert.Equal(t, "foobar", v.Str)
}

func TestEvaluateConstantFoldsFieldFreeExpression(t *testing.T) {
	expr := []token.Token{
		token.NewIntLiteral(2),
		token.NewIntLiteral(3),
		&token.Operator{Symbol: "+", Arity: 2},
	}
	v, ok := EvaluateConstant(expr)
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Int)
}

func TestEvaluateConstantRejectsFieldReference(t *testing.T) {
	expr := []token.Token{
		token.NewField("age"),
		token.NewIntLiteral(1),
		&token.Operator{Symbol: "+", Arity: 2},
	}
	_, ok := EvaluateConstant(expr)
	assert.False(t, ok)
}

func TestContainsField(t *testing.T) {
	assert.True(t, ContainsField([]token.Token{token.NewField("x")}))
	assert.False(t, ContainsField([]token.Token{token.NewIntLiteral(1)}))
}

func TestToInfixRendersBinaryOperator(t *testing.T) {
	expr := []token.Token{
		token.NewField("age"),
		token.NewIntLiteral(21),
		&token.Operator{Symbol: ">", Arity: 2},
	}
	s, err := ToInfix(expr)
	require.NoError(t, err)
	assert.Equal(t, "(age > 21)", s)
}

func TestToInfixRendersBuiltinCall(t *testing.T) {
	expr := []token.Token{
		token.NewField("name"),
		&token.Builtin{Name: "UPPER", Argc: 1},
	}
	s, err := ToInfix(expr)
	require.NoError(t, err)
	assert.Equal(t, "UPPER(name)", s)
}
