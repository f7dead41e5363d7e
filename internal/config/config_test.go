package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	config := Default()
	ApplyEnv(&config, envOf(map[string]string{
		"PORT":                           "9000",
		"LPR_TOKEN":                      "secret",
		"LPR_COOLDOWN_SECONDS":           "30",
		"LPR_ALLOWED_STATUSES":           "pending, activated ,",
		"LPR_ALLOW_REPEAT_AFTER_ENTERED": "true",
		"TZ":                             "Europe/Moscow",
	}))

	assert.Equal(t, ":9000", config.Server.Listen)
	assert.Equal(t, "secret", config.Gate.Token)
	assert.Equal(t, 30, config.Gate.CooldownSeconds)
	assert.Equal(t, []string{"pending", "activated"}, config.Gate.AllowedStatuses)
	assert.True(t, config.Gate.AllowRepeatAfterEntered)
	assert.Equal(t, "Europe/Moscow", config.Gate.Timezone)
}

func TestApplyEnvIgnoresGarbage(t *testing.T) {
	config := Default()
	ApplyEnv(&config, envOf(map[string]string{
		"LPR_COOLDOWN_SECONDS":           "soon",
		"LPR_ALLOW_REPEAT_AFTER_ENTERED": "yes",
	}))

	assert.Equal(t, 15, config.Gate.CooldownSeconds)
	assert.False(t, config.Gate.AllowRepeatAfterEntered)
}

func TestDefaults(t *testing.T) {
	defaults := Default().Gate.Defaults()

	assert.Equal(t, 15, defaults.CooldownSeconds)
	assert.Equal(t, []string{"pending"}, defaults.AllowedStatuses)
	assert.False(t, defaults.AllowRepeatAfterEntered)
	assert.Equal(t, "Asia/Almaty", defaults.Timezone)
}

func TestLoadYaml(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(`
server:
  postgresDsn: "host=db"
gate:
  cooldownSeconds: 42
notify:
  heartbeatSeconds: 7
`), 0o600)
	require.NoError(t, err)

	t.Setenv("LPR_COOLDOWN_SECONDS", "")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db", config.Server.PostgresDsn)
	assert.Equal(t, 42, config.Gate.CooldownSeconds)
	assert.Equal(t, 7, config.Notify.HeartbeatSeconds)
	assert.NotEmpty(t, config.Gate.Timezone)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
}
