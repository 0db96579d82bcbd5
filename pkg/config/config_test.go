package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "fallback", Env("HOMERENT_TEST_MISSING_KEY", "fallback"))
	assert.Nil(t, Env("HOMERENT_TEST_MISSING_KEY"))
}

func TestEnvPrefersProcessEnvironment(t *testing.T) {
	t.Setenv("HOMERENT_TEST_PORT", "8088")

	assert.Equal(t, "8088", Env("HOMERENT_TEST_PORT", "3000"))
}

func TestAddAndGetGroup(t *testing.T) {
	Add("unit", func() map[string]interface{} {
		return map[string]interface{}{
			"name":    Env("HOMERENT_TEST_UNIT_NAME", "homerent"),
			"retries": Env("HOMERENT_TEST_UNIT_RETRIES", 3),
			"debug":   Env("HOMERENT_TEST_UNIT_DEBUG", true),
		}
	})
	loadConfig()

	assert.Equal(t, "homerent", GetString("unit.name"))
	assert.Equal(t, 3, GetInt("unit.retries"))
	assert.True(t, GetBool("unit.debug"))
	assert.Equal(t, 7, GetInt("unit.missing", 7))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	assert.NoError(t, os.Chdir(dir))

	content := "HOMERENT_TEST_FROM_FILE=from-file\n"
	assert.NoError(t, os.WriteFile(filepath.Join(dir, ".env.testing"), []byte(content), 0o600))

	loadEnv("testing")

	assert.Equal(t, "from-file", GetString("HOMERENT_TEST_FROM_FILE"))
}
