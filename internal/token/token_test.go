package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteralSurface(t *testing.T) {
	cases := []struct {
		lit  *Literal
		want string
	}{
		{NewStringLiteral("it's fine"), "'it''s fine'"},
		{NewIntLiteral(42), "42"},
		{NewFloatLiteral(3.5), "3.5"},
		{NewBoolLiteral(true), "true"},
		{NewNullLiteral(), "null"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.lit.Surface())
	}
}

func TestFieldAliasIsFluent(t *testing.T) {
	f := NewField("foo")
	ret := f.SetAlias("bar")
	assert.Equal(t, "bar", f.Alias())
	assert.Same(t, f, ret)
}

func TestFieldOriginalNameDefaultsToName(t *testing.T) {
	f := NewField("citiesLived.place")
	assert.Equal(t, "citiesLived.place", f.OriginalName())

	f.SetOriginalName("citiesLived[0].place")
	assert.Equal(t, "citiesLived[0].place", f.OriginalName())
}

func TestEncryptedEmbedsField(t *testing.T) {
	e := NewEncrypted("ssn", EncryptedPseudonym)
	assert.Equal(t, "ssn", e.Surface())
	assert.Equal(t, EncryptedPseudonym, e.Kind)
}

func TestCountStarSurface(t *testing.T) {
	assert.Equal(t, "COUNT(*)", CountStar{}.Surface())
}
