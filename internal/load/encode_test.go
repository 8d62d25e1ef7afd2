package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/rewrite"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/token"
)

func testContext(s schema.Schema) *rewrite.Context {
	return &rewrite.Context{
		Schema:    s,
		MasterKey: make([]byte, 16),
		TableID:   "people_1700000000000",
	}
}

func TestEncodeRowPseudonymRoundTrips(t *testing.T) {
	s := schema.Schema{{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym}}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{"email": "alice@example.com"})
	require.NoError(t, err)

	wireCol := rewrite.WireColumnName(schema.PrefixPseudonym, "email")
	ct, ok := out[wireCol].(string)
	require.True(t, ok)

	enc := token.NewEncrypted("email", token.EncryptedPseudonym)
	pt, err := ctx.PseudonymCipher(enc).Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", pt)
}

func TestEncodeRowFlattensNestedEncryptedLeaf(t *testing.T) {
	s := schema.Schema{
		{
			Name: "citiesLived",
			Type: schema.TypeRecord,
			Mode: schema.ModeRepeated,
			Fields: []*schema.Column{
				{Name: "job", Type: schema.TypeRecord, Fields: []*schema.Column{
					{Name: "position", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym},
				}},
			},
		},
	}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{"citiesLived.job.position": "engineer"})
	require.NoError(t, err)

	wireCol := rewrite.WireColumnName(schema.PrefixPseudonym, "citiesLived.job.position")
	assert.Contains(t, wireCol, schema.PeriodReplacement)
	_, ok := out[wireCol]
	assert.True(t, ok)
}

func TestEncodeRowKeepsPlaintextLeafDotted(t *testing.T) {
	s := schema.Schema{
		{Name: "job", Type: schema.TypeRecord, Fields: []*schema.Column{
			{Name: "title", Type: schema.TypeString},
		}},
	}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{"job.title": "engineer"})
	require.NoError(t, err)
	assert.Equal(t, "engineer", out["job.title"])
}

func TestEncodeRowRejectsMissingRequiredValue(t *testing.T) {
	s := schema.Schema{{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym}}
	l := NewLoader(testContext(s))

	_, err := l.EncodeRow(map[string]any{})
	assert.Error(t, err)
}

func TestEncodeRowAllowsMissingNullable(t *testing.T) {
	s := schema.Schema{{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym, Mode: schema.ModeNullable}}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{})
	require.NoError(t, err)
	wireCol := rewrite.WireColumnName(schema.PrefixPseudonym, "email")
	assert.Nil(t, out[wireCol])
}

func TestEncodeRowProbabilisticSearchwordsEmitsBothColumns(t *testing.T) {
	s := schema.Schema{{Name: "bio", Type: schema.TypeString, Encrypt: schema.EncryptProbabilisticSearchwords}}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{"bio": "loves long walks on the beach"})
	require.NoError(t, err)

	assert.NotEmpty(t, out[rewrite.WireColumnName(schema.PrefixProbabilistic, "bio")])
	assert.NotEmpty(t, out[rewrite.WireColumnName(schema.PrefixSearchwords, "bio")])
}

func TestEncodeRowHomomorphicIntRoundTrips(t *testing.T) {
	s := schema.Schema{{Name: "amount", Type: schema.TypeInteger, Encrypt: schema.EncryptHomomorphicInt}}
	ctx := testContext(s)
	l := NewLoader(ctx)

	out, err := l.EncodeRow(map[string]any{"amount": float64(42)})
	require.NoError(t, err)

	wireCol := rewrite.WireColumnName(schema.PrefixHomomorphicInt, "amount")
	c, err := ctx.HomomorphicIntCipher(token.NewEncrypted("amount", token.EncryptedHomomorphicInt))
	require.NoError(t, err)
	v, err := c.Decrypt(out[wireCol].(string))
	require.NoError(t, err)
	assert.EqualValues(t, 42, v)
}

func TestEncodeRowTimestampAcceptsEpochSeconds(t *testing.T) {
	s := schema.Schema{{Name: "seen_at", Type: schema.TypeTimestamp}}
	l := NewLoader(testContext(s))

	out, err := l.EncodeRow(map[string]any{"seen_at": float64(1700000000)})
	require.NoError(t, err)
	assert.EqualValues(t, 1700000000*1e6, out["seen_at"])
}

func TestEncodeRowEmptyStringBecomesNull(t *testing.T) {
	s := schema.Schema{{Name: "seen_at", Type: schema.TypeTimestamp, Mode: schema.ModeNullable}}
	l := NewLoader(testContext(s))

	out, err := l.EncodeRow(map[string]any{"seen_at": ""})
	require.NoError(t, err)
	assert.Nil(t, out["seen_at"])
}
