package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points config.json at a temp dir and clears the env
// credentials for the duration of the test.
func useTempConfig(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	originalGetConfigDir := getConfigDirFunc
	originalGetConfigPath := getConfigPathFunc
	t.Cleanup(func() {
		getConfigDirFunc = originalGetConfigDir
		getConfigPathFunc = originalGetConfigPath
	})
	getConfigDirFunc = func() (string, error) { return tempDir, nil }
	getConfigPathFunc = func() (string, error) { return configPath, nil }

	t.Setenv(envToken, "")
	t.Setenv(envAPIURL, "")
	return configPath
}

func TestGetConfigDir(t *testing.T) {
	dir, err := defaultGetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "plotsearch"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useTempConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestSaveGlobalConfig_RoundTripAndPermissions(t *testing.T) {
	configPath := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{Token: "tok-123", APIURL: "http://api.test"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "tok-123", config.Token)
	assert.Equal(t, "http://api.test", config.APIURL)
}

func TestSaveGlobalConfig_Nil(t *testing.T) {
	useTempConfig(t)
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestLoadGlobalConfig_Malformed(t *testing.T) {
	configPath := useTempConfig(t)
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestDeleteGlobalConfig_MissingIsFine(t *testing.T) {
	useTempConfig(t)
	assert.NoError(t, DeleteGlobalConfig())
}

func TestResolveCredentials_Cascade(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{Token: "from-file", APIURL: "http://file.test"}))

	t.Run("config file", func(t *testing.T) {
		creds, err := ResolveCredentials("", "")
		require.NoError(t, err)
		assert.Equal(t, Credentials{Token: "from-file", APIURL: "http://file.test", Source: SourceGlobalConfig}, creds)
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv(envToken, "from-env")
		creds, err := ResolveCredentials("", "")
		require.NoError(t, err)
		assert.Equal(t, "from-env", creds.Token)
		assert.Equal(t, SourceEnv, creds.Source)
		assert.Equal(t, "http://file.test", creds.APIURL)
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(envToken, "from-env")
		t.Setenv(envAPIURL, "http://env.test")
		creds, err := ResolveCredentials("from-flag", "http://flag.test")
		require.NoError(t, err)
		assert.Equal(t, Credentials{Token: "from-flag", APIURL: "http://flag.test", Source: SourceFlag}, creds)
	})
}

func TestResolveCredentials_Nothing(t *testing.T) {
	useTempConfig(t)

	creds, err := ResolveCredentials("", "")
	require.NoError(t, err)
	assert.Equal(t, SourceNone, creds.Source)
	assert.Empty(t, creds.Token)
	assert.Equal(t, defaultAPIURL, creds.APIURL)
}

func TestAuthLogin_StoresTrimmedToken(t *testing.T) {
	useTempConfig(t)
	var out strings.Builder

	require.NoError(t, runAuthLogin(&out, "  tok-abc\n", "http://api.test"))
	assert.Contains(t, out.String(), "Successfully logged in")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", config.Token)
}

func TestAuthLogin_RejectsBadToken(t *testing.T) {
	useTempConfig(t)
	var out strings.Builder

	assert.Error(t, runAuthLogin(&out, "   ", "http://api.test"))
	assert.Error(t, runAuthLogin(&out, "two words", "http://api.test"))
}

func TestWriteAuthStatus_MasksToken(t *testing.T) {
	var out strings.Builder
	creds := Credentials{Token: "abcd0123456789wxyz", APIURL: "http://api.test", Source: SourceEnv}

	require.NoError(t, writeAuthStatus(&out, creds, false))
	assert.Contains(t, out.String(), "Token: abcd...wxyz")
	assert.NotContains(t, out.String(), "0123456789")
}
