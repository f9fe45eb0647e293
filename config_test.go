package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  headless: true\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 120, config.Browser.QRTimeoutSeconds)
	assert.Equal(t, 5, config.Delivery.ContactDelaySeconds)
	assert.Equal(t, 3, config.Delivery.OpenChatAttempts)
	assert.Equal(t, 500, config.Delivery.PausePollMillis)
	assert.Equal(t, "51", config.Phone.CountryCode)
	assert.Equal(t, 9, config.Phone.LocalDigits)
	assert.Equal(t, "sent.csv", config.Files.SentLogPath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phone:\n  country_code: \"51\"\n"), 0644))

	t.Setenv("WA_COUNTRY_CODE", "54")
	t.Setenv("WA_CHROME_PATH", "/opt/chrome/chrome")

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "54", config.Phone.CountryCode)
	assert.Equal(t, "/opt/chrome/chrome", config.Browser.ChromePath)
}

func TestLoadConfigUserDataDirBecomesAbsolute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  user_data_dir: chrome-data\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(config.Browser.UserDataDir))
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: [unclosed\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
