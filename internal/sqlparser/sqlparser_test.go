package sqlparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/token"
)

func TestParseExpressionPrecedence(t *testing.T) {
	expr, err := ParseExpression("1 + 2 * 3")
	require.NoError(t, err)

	require.Len(t, expr, 5)
	lit, ok := expr[0].(*token.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Int)

	op, ok := expr[4].(*token.Operator)
	require.True(t, ok)
	assert.Equal(t, "+", op.Symbol)
}

func TestParseExpressionParens(t *testing.T) {
	withParens, err := ParseExpression("(1 + 2) * 3")
	require.NoError(t, err)
	lastOp, ok := withParens[len(withParens)-1].(*token.Operator)
	require.True(t, ok)
	assert.Equal(t, "*", lastOp.Symbol)
}

func TestParseExpressionFieldAndLiteral(t *testing.T) {
	expr, err := ParseExpression("age > 21")
	require.NoError(t, err)
	require.Len(t, expr, 3)

	field, ok := expr[0].(*token.Field)
	require.True(t, ok)
	assert.Equal(t, "age", field.Name)
}

func TestParseExpressionBuiltinCall(t *testing.T) {
	expr, err := ParseExpression("to_base64(name)")
	require.NoError(t, err)
	require.Len(t, expr, 2)
	b, ok := expr[1].(*token.Builtin)
	require.True(t, ok)
	assert.Equal(t, "TO_BASE64", b.Name)
}

func TestParseExpressionAggregationCall(t *testing.T) {
	expr, err := ParseExpression("SUM(amount)")
	require.NoError(t, err)
	require.Len(t, expr, 2)
	agg, ok := expr[1].(*token.AggregationFn)
	require.True(t, ok)
	assert.Equal(t, "SUM", agg.Name)
}

func TestParseExpressionCountDistinct(t *testing.T) {
	expr, err := ParseExpression("COUNT(DISTINCT user_id)")
	require.NoError(t, err)
	agg, ok := expr[len(expr)-1].(*token.AggregationFn)
	require.True(t, ok)
	assert.Equal(t, "DISTINCTCOUNT", agg.Name)
}

func TestParseExpressionCountStar(t *testing.T) {
	expr, err := ParseExpression("COUNT(*)")
	require.NoError(t, err)
	require.Len(t, expr, 1)
	_, ok := expr[0].(token.CountStar)
	assert.True(t, ok)
}

func TestParseExpressionUnaryNot(t *testing.T) {
	expr, err := ParseExpression("NOT active")
	require.NoError(t, err)
	op, ok := expr[len(expr)-1].(*token.Operator)
	require.True(t, ok)
	assert.Equal(t, "NOT", op.Symbol)
	assert.Equal(t, 1, op.Arity)
}

func TestParseFullQuery(t *testing.T) {
	q, err := Parse(`SELECT name, SUM(amount) AS total FROM orders WHERE status = 'open' GROUP BY name ORDER BY total DESC LIMIT 10`)
	require.NoError(t, err)

	require.Len(t, q.Select, 2)
	assert.Equal(t, "total", q.Select[1].Alias)
	assert.Equal(t, "orders", q.From)
	require.NotNil(t, q.Where)
	assert.Equal(t, []string{"name"}, q.GroupBy)
	require.Len(t, q.OrderBy, 1)
	assert.True(t, q.OrderBy[0].Descending)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(10), *q.Limit)
}

func TestParseQueryWithJoin(t *testing.T) {
	q, err := Parse(`SELECT a.id FROM orders a JOIN customers b ON a.customer_id = b.id`)
	require.NoError(t, err)
	require.Len(t, q.Joins, 1)
	assert.Equal(t, "customers b", q.Joins[0].Table)
}

func TestParseQueryRejectsMissingSelect(t *testing.T) {
	_, err := Parse(`FROM orders WHERE 1 = 1`)
	assert.Error(t, err)
}

func TestSplitTopLevelRespectsParens(t *testing.T) {
	parts := splitTopLevel("f(a, b), c", ',')
	require.Len(t, parts, 2)
	assert.Equal(t, "f(a, b)", parts[0])
	assert.Equal(t, " c", parts[1])
}
