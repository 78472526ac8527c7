package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/inoxlang/eventlist/internal/codec"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {

	t.Run("no file", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "")

		config, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, codec.JSON_CODEC, config.Codec)
		assert.Equal(t, zerolog.InfoLevel, config.Level())
		assert.Equal(t, DEFAULT_SOAK_OPERATIONS, config.Soak.Operations)
		assert.Empty(t, config.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		config, err := LoadFile(filepath.Join(t.TempDir(), CONFIG_FILE_NAME))
		require.NoError(t, err)
		assert.Equal(t, Default().Codec, config.Codec)
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "")
		t.Setenv("NO_COLOR", "")
		t.Setenv("FORCE_COLOR", "")

		path := filepath.Join(t.TempDir(), CONFIG_FILE_NAME)
		content := "log-level: debug\ncolor: false\ncodec: yaml\ncompress: true\nsoak:\n  operations: 10\n  cursors: 2\n  seed: 7\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		config, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, zerolog.DebugLevel, config.Level())
		assert.False(t, config.ShouldColorize())
		assert.Equal(t, codec.YAML_CODEC, config.Codec)
		assert.True(t, config.Compress)
		assert.Equal(t, SoakConfig{Operations: 10, Cursors: 2, Seed: 7}, config.Soak)
		assert.Equal(t, path, config.Path)
	})

	t.Run("log levels by source", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "")

		path := filepath.Join(t.TempDir(), CONFIG_FILE_NAME)
		content := "log-level: warn\nlog-levels:\n  memds/list: trace\n  scenario: debug\ninternal-debug-logs: true\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		config, err := LoadFile(path)
		require.NoError(t, err)

		levels := config.Levels()
		assert.Equal(t, zerolog.WarnLevel, levels.DefaultLevel())
		assert.Equal(t, zerolog.TraceLevel, levels.LevelFor("memds/list"))
		assert.Equal(t, zerolog.DebugLevel, levels.LevelFor("scenario"))
		assert.Equal(t, zerolog.WarnLevel, levels.LevelFor("soak"))
		assert.True(t, levels.AreInternalDebugLogsEnabled())
	})

	t.Run("internal debug logs should be disabled by default", func(t *testing.T) {
		assert.False(t, Default().Levels().AreInternalDebugLogsEnabled())
	})

	t.Run("invalid level of a source", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "")

		path := filepath.Join(t.TempDir(), CONFIG_FILE_NAME)
		require.NoError(t, os.WriteFile(path, []byte("log-levels:\n  soak: loud\n"), 0o600))

		_, err := LoadFile(path)
		if assert.ErrorIs(t, err, ErrInvalidConfig) {
			assert.Contains(t, err.Error(), "soak")
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "trace")
		t.Setenv("FORCE_COLOR", "1")
		t.Setenv("NO_COLOR", "")

		path := filepath.Join(t.TempDir(), CONFIG_FILE_NAME)
		require.NoError(t, os.WriteFile(path, []byte("log-level: warn\ncolor: false\n"), 0o600))

		config, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, zerolog.TraceLevel, config.Level())
		assert.True(t, config.ShouldColorize())
	})

	t.Run("invalid file", func(t *testing.T) {
		t.Setenv(LOG_LEVEL_ENV_VARNAME, "")

		path := filepath.Join(t.TempDir(), CONFIG_FILE_NAME)
		require.NoError(t, os.WriteFile(path, []byte("codec: xml\n"), 0o600))

		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		require.NoError(t, os.WriteFile(path, []byte("soak: [\n"), 0o600))
		_, err = LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
