package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/sqlparser"
	"github.com/encql/encql/internal/token"
)

func testCtx(t *testing.T, s schema.Schema) *Context {
	t.Helper()
	return &Context{
		Schema:    s,
		MasterKey: make([]byte, 16),
		TableID:   "people_1700000000000",
	}
}

func TestRewritePlainSelectAndWhere(t *testing.T) {
	s := schema.Schema{{Name: "age", Type: schema.TypeInteger}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("age")}}},
		From:   "people",
		Where: []token.Token{
			token.NewField("age"),
			token.NewIntLiteral(18),
			&token.Operator{Symbol: ">=", Arity: 2},
		},
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT age FROM people WHERE (age >= 18)", plan.SQL)
}

func TestRewriteJoinClause(t *testing.T) {
	s := schema.Schema{{Name: "id", Type: schema.TypeInteger}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("id")}}},
		From:   "orders",
		Joins: []sqlparser.Join{{
			Table: "customers",
			Condition: []token.Token{
				token.NewField("orders.customer_id"),
				token.NewField("customers.id"),
				&token.Operator{Symbol: "=", Arity: 2},
			},
		}},
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders JOIN customers ON (orders.customer_id = customers.id)", plan.SQL)
}

func TestRewriteGroupByPlainColumn(t *testing.T) {
	s := schema.Schema{{Name: "region", Type: schema.TypeString}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select:  []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("region")}}},
		From:    "sales",
		GroupBy: []string{"region"},
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"region"}, plan.GroupBy)
	assert.Equal(t, "SELECT region FROM sales GROUP BY region", plan.SQL)
}

func TestRewriteGroupByPseudonymRejectsNonPseudonym(t *testing.T) {
	s := schema.Schema{{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptProbabilistic}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select:  []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("email")}}},
		From:    "people",
		GroupBy: []string{"email"},
	}

	_, err := Rewrite(q, ctx)
	require.Error(t, err)
	var iq errs.InvalidQueryError
	require.ErrorAs(t, err, &iq)
}

func TestRewriteCountAggregation(t *testing.T) {
	s := schema.Schema{{Name: "id", Type: schema.TypeInteger}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Alias: "n", Expr: []token.Token{
			token.NewField("id"),
			&token.AggregationFn{Name: "COUNT", Argc: 1},
		}}},
		From: "orders",
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	require.Len(t, plan.Aggregations, 1)
	require.Len(t, plan.Aggregations[0].Fragments, 1)
	assert.Equal(t, "COUNT(id)", plan.Aggregations[0].Fragments[0].SQL)
	assert.Equal(t, token.DecodeOpaque, plan.Aggregations[0].Fragments[0].Decode)
	assert.Contains(t, plan.SQL, "COUNT(id) AS agg0_0_")
}

func TestRewriteTopOverPseudonymColumn(t *testing.T) {
	s := schema.Schema{{Name: "country", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Alias: "top_country", Expr: []token.Token{
			token.NewField("country"),
			token.NewIntLiteral(5),
			&token.AggregationFn{Name: "TOP", Argc: 2},
		}}},
		From: "people",
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	require.Len(t, plan.Aggregations, 1)
	frag := plan.Aggregations[0].Fragments[0]
	assert.Contains(t, frag.SQL, "TOP(")
	assert.Equal(t, token.DecodePseudonym, frag.Decode)
	require.NotNil(t, frag.Field)
	assert.Equal(t, "country", frag.Field.OriginalName())
}

func TestRewriteGroupConcatOverPlaintext(t *testing.T) {
	s := schema.Schema{{Name: "city", Type: schema.TypeString}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Alias: "cities", Expr: []token.Token{
			token.NewField("city"),
			&token.AggregationFn{Name: "GROUP_CONCAT", Argc: 1},
		}}},
		From: "people",
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	require.Len(t, plan.Aggregations, 1)
	frag := plan.Aggregations[0].Fragments[0]
	assert.Equal(t, "GROUP_CONCAT(city)", frag.SQL)
	assert.Equal(t, token.DecodeOpaque, frag.Decode)
	assert.False(t, plan.Aggregations[0].GroupConcatEncrypted)
}

func TestRewriteSumOverHomomorphicColumnEmitsPaillierFragment(t *testing.T) {
	s := schema.Schema{{Name: "amount", Type: schema.TypeInteger, Encrypt: schema.EncryptHomomorphicInt}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Alias: "total", Expr: []token.Token{
			token.NewField("amount"),
			&token.AggregationFn{Name: "SUM", Argc: 1},
		}}},
		From: "orders",
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	require.Len(t, plan.Aggregations, 1)
	agg := plan.Aggregations[0]
	require.Len(t, agg.Fragments, 1)
	assert.Contains(t, agg.Fragments[0].SQL, "TO_BASE64(BYTES(PAILLIER_SUM(FROM_BASE64(")
	assert.Equal(t, token.DecodePaillierSum, agg.Fragments[0].Decode)
	assert.True(t, agg.IsEncrypted)
}

func TestRewriteContainsCondition(t *testing.T) {
	s := schema.Schema{{Name: "bio", Type: schema.TypeString, Encrypt: schema.EncryptSearchwords}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("bio")}}},
		From:   "people",
		Where: []token.Token{
			token.NewField("bio"),
			token.NewStringLiteral("gopher"),
			&token.Operator{Symbol: "CONTAINS", Arity: 2},
		},
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	assert.Contains(t, plan.SQL, " contains to_base64(left(bytes(sha1(concat(left(")
}

func TestRewritePseudonymEqualitySubstitutesCiphertext(t *testing.T) {
	s := schema.Schema{{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("email")}}},
		From:   "people",
		Where: []token.Token{
			token.NewField("email"),
			token.NewStringLiteral("alice@example.com"),
			&token.Operator{Symbol: "=", Arity: 2},
		},
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)

	enc := token.NewEncrypted("email", token.EncryptedPseudonym)
	ct, err := ctx.PseudonymCipher(enc).Encrypt("alice@example.com")
	require.NoError(t, err)
	assert.NotContains(t, plan.SQL, "alice@example.com")
	assert.Contains(t, plan.SQL, ct)
}

func TestRewriteRejectsForwardAliasReference(t *testing.T) {
	s := schema.Schema{{Name: "age", Type: schema.TypeInteger}}
	ctx := testCtx(t, s)

	// "later" refers to an alias defined by a subsequent select item; only
	// prior positions resolve, so the reference is rejected.
	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{
			{Expr: []token.Token{token.NewField("later")}},
			{Alias: "later", Expr: []token.Token{token.NewField("age")}},
		},
		From: "people",
	}

	_, err := Rewrite(q, ctx)
	require.Error(t, err)
	var iq errs.InvalidQueryError
	require.ErrorAs(t, err, &iq)
}

func TestRewriteRejectsCompositeEncryptedExpression(t *testing.T) {
	s := schema.Schema{{Name: "amount", Type: schema.TypeInteger, Encrypt: schema.EncryptHomomorphicInt}}
	ctx := testCtx(t, s)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{
			token.NewField("amount"),
			token.NewIntLiteral(1),
			&token.Operator{Symbol: "+", Arity: 2},
		}}},
		From: "orders",
	}

	_, err := Rewrite(q, ctx)
	require.Error(t, err)
	var iq errs.InvalidQueryError
	require.ErrorAs(t, err, &iq)
}

func TestRewriteLimit(t *testing.T) {
	s := schema.Schema{{Name: "id", Type: schema.TypeInteger}}
	ctx := testCtx(t, s)
	limit := int64(10)

	q := &sqlparser.Query{
		Select: []sqlparser.SelectItem{{Expr: []token.Token{token.NewField("id")}}},
		From:   "orders",
		Limit:  &limit,
	}

	plan, err := Rewrite(q, ctx)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders LIMIT 10", plan.SQL)
}
