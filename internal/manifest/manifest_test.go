package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasIsStableForSameColumn(t *testing.T) {
	m := New("query-1")
	a := m.Alias("amount")
	b := m.Alias("amount")
	assert.Equal(t, a, b)
}

func TestAliasDiffersAcrossQueries(t *testing.T) {
	a := New("query-1").Alias("amount")
	b := New("query-2").Alias("amount")
	assert.NotEqual(t, a, b)
}

func TestAliasHasHPPrefix(t *testing.T) {
	m := New("query-1")
	assert.Equal(t, "HP", m.Alias("amount")[:2])
}

func TestNameResolvesAlias(t *testing.T) {
	m := New("query-1")
	alias := m.Alias("amount")
	name, ok := m.Name(alias)
	require.True(t, ok)
	assert.Equal(t, "amount", name)
}

func TestNameUnknownAliasFails(t *testing.T) {
	m := New("query-1")
	_, ok := m.Name("HPdeadbeef")
	assert.False(t, ok)
}
