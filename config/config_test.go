package config

import (
	"os"
	"path/filepath"
	"testing"

	"bakeslip/model"

	"github.com/stretchr/testify/require"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	old := Path()
	p := filepath.Join(t.TempDir(), "bakeslip.yaml")
	SetPath(p)
	t.Cleanup(func() { SetPath(old) })
	return p
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	useTempConfig(t)
	c, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, Defaults(), c)
	require.Equal(t, ":8080", c.ListenAddr)
	require.Equal(t, 8, c.MaxParallelExtractions)
}

func TestLoadConfigFillsMissingValues(t *testing.T) {
	p := useTempConfig(t)
	require.NoError(t, os.WriteFile(p, []byte("companyName: Test Bakery\ndefaultSliceMode: single\n"), 0600))

	c, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "Test Bakery", c.CompanyName)
	require.Equal(t, model.SliceSingle, c.DefaultSliceMode)
	require.Equal(t, "gemini-2.5-flash", c.GeminiModel)
	require.Equal(t, c, GetConfig())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	p := useTempConfig(t)
	require.NoError(t, os.WriteFile(p, []byte("defaultSliceMode: triple\n"), 0600))
	_, err := LoadConfig()
	require.Error(t, err)

	require.NoError(t, os.WriteFile(p, []byte("listenAddr: [oops\n"), 0600))
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	useTempConfig(t)
	c := Defaults()
	c.CompanyName = "Saved Bakery"
	c.MaxParallelExtractions = 3
	require.NoError(t, SaveConfig(c))

	loaded, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "Saved Bakery", loaded.CompanyName)
	require.Equal(t, 3, loaded.MaxParallelExtractions)

	bad := Defaults()
	bad.DefaultSliceMode = "triple"
	require.Error(t, SaveConfig(bad))
}

func TestAPIKeyPrefersEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	require.Equal(t, "from-file", APIKey(Config{GeminiAPIKey: "from-file"}))

	t.Setenv("API_KEY", "legacy")
	require.Equal(t, "legacy", APIKey(Config{GeminiAPIKey: "from-file"}))

	t.Setenv("GEMINI_API_KEY", "primary")
	require.Equal(t, "primary", APIKey(Config{}))
}
