package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/schema"
)

func TestMasterKeyFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")

	key, err := GenerateMasterKey()
	require.NoError(t, err)

	require.NoError(t, WriteMasterKeyFile(path, key))

	got, err := ReadMasterKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestMasterKeyFileRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.txt")
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	require.NoError(t, WriteMasterKeyFile(path, key))

	err = WriteMasterKeyFile(path, key)
	assert.Error(t, err)
}

func TestMasterKeyHashIsStable(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	assert.Equal(t, key.Hash(), key.Hash())
}

func TestMasterKeyZeroClearsBytes(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	key.Zero()
	assert.Equal(t, MasterKey{}, key)
}

func sampleTableSchema() schema.Schema {
	return schema.Schema{
		{Name: "id", Type: schema.TypeString, Encrypt: schema.EncryptPseudonym},
		{Name: "amount", Type: schema.TypeInteger, Encrypt: schema.EncryptHomomorphicInt},
	}
}

func TestDescriptionEncodeParseRoundTrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)

	desc, err := Encode("a user-provided || description", key, sampleTableSchema())
	require.NoError(t, err)

	parsed, err := Parse(desc, key)
	require.NoError(t, err)
	assert.Equal(t, "a user-provided || description", parsed.UserText)
	assert.Equal(t, Version, parsed.Version)
	require.Len(t, parsed.Schema, 2)
	assert.Equal(t, "amount", parsed.Schema[1].Name)
}

func TestDescriptionParseRejectsWrongKey(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	other, err := GenerateMasterKey()
	require.NoError(t, err)

	desc, err := Encode("desc", key, sampleTableSchema())
	require.NoError(t, err)

	_, err = Parse(desc, other)
	assert.Error(t, err)
}

func TestDescriptionParseRejectsGarbage(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	_, err = Parse("not a real description", key)
	assert.Error(t, err)
}

func TestReadMasterKeyFileRejectsMissingFile(t *testing.T) {
	_, err := ReadMasterKeyFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
