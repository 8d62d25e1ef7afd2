package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() Schema {
	return Schema{
		{Name: "Year", Type: TypeInteger},
		{
			Name: "citiesLived",
			Type: TypeRecord,
			Mode: ModeRepeated,
			Fields: []*Column{
				{Name: "place", Type: TypeString, Encrypt: EncryptSearchwords},
				{
					Name: "job",
					Type: TypeRecord,
					Fields: []*Column{
						{Name: "position", Type: TypeString, Encrypt: EncryptPseudonym},
					},
				},
			},
		},
	}
}

func TestFind(t *testing.T) {
	s := sampleSchema()

	row := s.Find("Year")
	require.NotNil(t, row)
	assert.Equal(t, EncryptNone, row.Encrypt)

	row = s.Find("citiesLived.place")
	require.NotNil(t, row)
	assert.Equal(t, EncryptSearchwords, row.Encrypt)

	row = s.Find("citiesLived.job.position")
	require.NotNil(t, row)
	assert.Equal(t, EncryptPseudonym, row.Encrypt)

	assert.NotNil(t, s.Find("citiesLived.job"))
	assert.Nil(t, s.Find("citiesLived.nonExistentField"))
}

func TestValidateAcceptsSampleSchema(t *testing.T) {
	require.NoError(t, sampleSchema().Validate())
}

func TestValidateRejectsEncryptedTimestamp(t *testing.T) {
	s := Schema{{Name: "seen_at", Type: TypeTimestamp, Encrypt: EncryptProbabilistic}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestValidateRejectsSearchwordsOnNonString(t *testing.T) {
	s := Schema{{Name: "age", Type: TypeInteger, Encrypt: EncryptSearchwords}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string column")
}

func TestValidateRejectsHomomorphicTypeMismatch(t *testing.T) {
	s := Schema{{Name: "amount", Type: TypeString, Encrypt: EncryptHomomorphicInt}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer column")
}

func TestValidateAcceptsRelatedCrossTableTag(t *testing.T) {
	// related is an arbitrary domain tag, not a reference resolved within
	// this schema, so it need not match any column name here at all: the
	// whole point is sharing it with a column in some other table.
	s := Schema{{Name: "user_id", Type: TypeString, Encrypt: EncryptPseudonym, Related: "cars_name"}}
	require.NoError(t, s.Validate())
}

func TestValidateRejectsRelatedOnNonPseudonym(t *testing.T) {
	s := Schema{{Name: "plain", Type: TypeString, Encrypt: EncryptProbabilistic, Related: "cars_name"}}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pseudonym")
}

func TestValidateRejectsDuplicateColumnNames(t *testing.T) {
	s := Schema{
		{Name: "email", Type: TypeString},
		{Name: "email", Type: TypeString},
	}
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestRewriteSchemaFlattensEncryptedLeaves(t *testing.T) {
	rewritten := RewriteSchema(sampleSchema())

	// citiesLived held nothing but encrypted leaves (place, and job.position
	// nested one level deeper); once both are hoisted to flat top-level
	// columns the record itself has nothing left to keep nested.
	assert.Nil(t, rewritten.Find("citiesLived"))

	place := rewritten.Find(PrefixSearchwords + "citiesLived" + PeriodReplacement + "place")
	require.NotNil(t, place)
	assert.Equal(t, ModeRepeated, place.Mode) // inherited from the repeated citiesLived ancestor

	position := rewritten.Find(PrefixPseudonym + "citiesLived" + PeriodReplacement + "job" + PeriodReplacement + "position")
	require.NotNil(t, position)
	assert.Equal(t, ModeRepeated, position.Mode)
}

func TestRewriteSchemaKeepsPlaintextSiblingsNested(t *testing.T) {
	s := Schema{
		{
			Name: "job",
			Type: TypeRecord,
			Fields: []*Column{
				{Name: "title", Type: TypeString},
				{Name: "salary", Type: TypeInteger, Encrypt: EncryptHomomorphicInt},
			},
		},
	}
	rewritten := RewriteSchema(s)

	job := rewritten.Find("job")
	require.NotNil(t, job)
	require.Len(t, job.Fields, 1)
	assert.Equal(t, "title", job.Fields[0].Name)

	salary := rewritten.Find(PrefixHomomorphicInt + "job" + PeriodReplacement + "salary")
	require.NotNil(t, salary)
}

func TestRewriteSchemaExpandsProbabilisticSearchwords(t *testing.T) {
	s := Schema{{Name: "bio", Type: TypeString, Encrypt: EncryptProbabilisticSearchwords}}
	rewritten := RewriteSchema(s)

	require.Len(t, rewritten, 2)
	assert.Equal(t, PrefixSearchwords+"bio", rewritten[0].Name)
	assert.Equal(t, PrefixProbabilistic+"bio", rewritten[1].Name)
}
