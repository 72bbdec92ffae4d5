package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "")
	t.Setenv("BOOKMETA_CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "BOOKMETA_CACHE_FILE_PATH")
	assert.Contains(t, err.Error(), "cache_file_path")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "/tmp/books.jsonl")
	t.Setenv("BOOKMETA_CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/books.jsonl", cfg.CacheFilePath)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
cache_file_path: /data/books.db
cache_backend: sqlite
archive_extension: .kepub
verify_mime_type: true
workers: 8
watch_debounce: 2s
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("BOOKMETA_CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/books.db", cfg.CacheFilePath)
	assert.Equal(t, CacheBackendSQLite, cfg.CacheBackend)
	assert.Equal(t, ".kepub", cfg.ArchiveExtension)
	assert.True(t, cfg.VerifyMimeType)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
cache_file_path: /data/from-file.jsonl
workers: 8
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("BOOKMETA_CONFIG_FILE", configPath)
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "/data/from-env.jsonl")
	t.Setenv("BOOKMETA_WORKERS", "2")

	cfg, err := New()
	require.NoError(t, err)
	// Env vars should override config file
	assert.Equal(t, "/data/from-env.jsonl", cfg.CacheFilePath)
	assert.Equal(t, 2, cfg.Workers)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "/tmp/books.jsonl")
	t.Setenv("BOOKMETA_CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, ".epub", cfg.ArchiveExtension)
	assert.Equal(t, CacheBackendFile, cfg.CacheBackend)
	assert.False(t, cfg.DatabaseDebug)
	assert.False(t, cfg.VerifyMimeType)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
}

func TestNew_InvalidBackend(t *testing.T) {
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "/tmp/books.jsonl")
	t.Setenv("BOOKMETA_CACHE_BACKEND", "redis")
	t.Setenv("BOOKMETA_CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_backend")
}

func TestLoad_DoesNotValidate(t *testing.T) {
	t.Setenv("BOOKMETA_CACHE_FILE_PATH", "")
	t.Setenv("BOOKMETA_CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.CacheFilePath)

	cfg.CacheFilePath = "/tmp/override.jsonl"
	require.NoError(t, cfg.Validate())
}

func TestValidate_ExtensionNeedsDot(t *testing.T) {
	t.Parallel()

	cfg := NewForTest("/tmp/books.jsonl")
	cfg.ArchiveExtension = "epub"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive_extension")
}

func TestNewForTest(t *testing.T) {
	t.Parallel()

	cfg := NewForTest("/tmp/books.jsonl")
	assert.Equal(t, "/tmp/books.jsonl", cfg.CacheFilePath)
	assert.Equal(t, ".epub", cfg.ArchiveExtension)
	require.NoError(t, cfg.Validate())
}

func TestEnvName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BOOKMETA_CACHE_FILE_PATH", envName("cache_file_path"))
	assert.Equal(t, "archive_extension", toSnakeCase("ArchiveExtension"))
	assert.Equal(t, "verify_mime_type", toSnakeCase("VerifyMimeType"))
}
