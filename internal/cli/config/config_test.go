package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the test and restores it on
// cleanup; testing.T.Chdir is unavailable before Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	cfg := DefaultConfig()
	cfg.APIURL = "http://localhost:8080"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", loaded.APIURL)
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, DefaultAPIURL, DefaultConfig().APIURL)
}

func TestFindConfigFile_WalksParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), DefaultConfig()))

	chdir(t, nested)

	found, err := FindConfigFile()
	require.NoError(t, err)

	// Symlinked temp dirs make direct path comparison flaky; the
	// discovered file must simply load.
	loaded, err := Load(found)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, loaded.APIURL)
}

func TestResolveAPIURL(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	// No env, no config file: production default
	t.Setenv("DROPVAULT_API_URL", "")
	assert.Equal(t, DefaultAPIURL, ResolveAPIURL())

	// Config file in the working directory wins over the default
	require.NoError(t, Save(filepath.Join(dir, ConfigFileName), &Config{APIURL: "http://from-file"}))
	assert.Equal(t, "http://from-file", ResolveAPIURL())

	// Environment override wins over everything
	t.Setenv("DROPVAULT_API_URL", "http://from-env")
	assert.Equal(t, "http://from-env", ResolveAPIURL())
}
