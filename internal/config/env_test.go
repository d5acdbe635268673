package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpers_Defaults(t *testing.T) {
	assert.Equal(t, "x", String("UNSET_FOR_TEST", "x"))
	assert.Equal(t, 3, Int("UNSET_FOR_TEST", 3))
	assert.Equal(t, 0.5, Float("UNSET_FOR_TEST", 0.5))
	assert.True(t, Bool("UNSET_FOR_TEST", true))
	assert.Equal(t, time.Second, Duration("UNSET_FOR_TEST", time.Second))
}

func TestHelpers_Overrides(t *testing.T) {
	t.Setenv(Prefix+"NAME", "studio")
	t.Setenv(Prefix+"FPS", " 24 ")
	t.Setenv(Prefix+"GAIN", "1.25")
	t.Setenv(Prefix+"AUDIO", "false")
	t.Setenv(Prefix+"DEBOUNCE", "150ms")

	assert.Equal(t, "studio", String("NAME", ""))
	assert.Equal(t, 24, Int("FPS", 30))
	assert.Equal(t, 1.25, Float("GAIN", 1))
	assert.False(t, Bool("AUDIO", true))
	assert.Equal(t, 150*time.Millisecond, Duration("DEBOUNCE", 0))
}

func TestHelpers_InvalidFallsBack(t *testing.T) {
	t.Setenv(Prefix+"FPS", "fast")
	t.Setenv(Prefix+"AUDIO", "maybe")

	assert.Equal(t, 30, Int("FPS", 30))
	assert.True(t, Bool("AUDIO", true))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(Prefix+"DOTENV_PORT=9999\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv(Prefix + "DOTENV_PORT") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, 9999, Int("DOTENV_PORT", 0))
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
