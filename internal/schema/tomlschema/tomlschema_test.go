package tomlschema

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/schema"
)

const sampleTOML = `
[[fields]]
name = "Year"
type = "integer"

[[fields]]
name = "citiesLived"
type = "record"
mode = "repeated"

  [[fields.fields]]
  name = "place"
  type = "string"
  encrypt = "searchwords"

  [[fields.fields]]
  name = "job"
  type = "record"

    [[fields.fields.fields]]
    name = "position"
    type = "string"
    encrypt = "pseudonym"
`

func TestParseNestedSchema(t *testing.T) {
	s, err := NewParser().Parse(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	year := s.Find("Year")
	require.NotNil(t, year)
	assert.Equal(t, schema.TypeInteger, year.Type)

	place := s.Find("citiesLived.place")
	require.NotNil(t, place)
	assert.Equal(t, schema.EncryptSearchwords, place.Encrypt)

	position := s.Find("citiesLived.job.position")
	require.NotNil(t, position)
	assert.Equal(t, schema.EncryptPseudonym, position.Encrypt)
}

func TestParseRejectsInvalidSchema(t *testing.T) {
	const bad = `
[[fields]]
name = "seen_at"
type = "timestamp"
encrypt = "probabilistic"
`
	_, err := NewParser().Parse(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestWriteThenParseRoundTrips(t *testing.T) {
	s := schema.Schema{
		{Name: "email", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym},
		{Name: "amount", Type: schema.TypeInteger, Encrypt: schema.EncryptHomomorphicInt},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s))

	roundTripped, err := NewParser().Parse(&buf)
	require.NoError(t, err)
	require.Len(t, roundTripped, 2)
	assert.Equal(t, "email", roundTripped[0].Name)
	assert.Equal(t, schema.EncryptHomomorphicInt, roundTripped[1].Encrypt)
}
