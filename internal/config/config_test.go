package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsZeroValue(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, c)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encql.yaml")
	content := "default_master_key_file: /keys/mk\ndefault_dsn: root@tcp(127.0.0.1:3306)/encql\noutput_format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/keys/mk", c.DefaultMasterKeyFile)
	assert.Equal(t, "json", c.OutputFormat)
}

func TestFlagValueOverridesConfigDefault(t *testing.T) {
	c := &Config{DefaultMasterKeyFile: "/keys/mk", OutputFormat: "json"}
	assert.Equal(t, "/other/mk", c.MasterKeyFile("/other/mk"))
	assert.Equal(t, "/keys/mk", c.MasterKeyFile(""))
	assert.Equal(t, "table", (&Config{}).Format(""))
}
