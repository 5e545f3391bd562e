package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5, cfg.App.PageSize)
	assert.Equal(t, "products.json", cfg.Storage.Path)
	assert.Equal(t, FormatJSON, cfg.Storage.Format)
	assert.Equal(t, "stderr", cfg.Log.File)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CATALOG_STORAGE_PATH", "/tmp/catalog.yaml")
	t.Setenv("CATALOG_STORAGE_FORMAT", "YAML")
	t.Setenv("CATALOG_APP_PAGE_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/catalog.yaml", cfg.Storage.Path)
	assert.Equal(t, FormatYAML, cfg.Storage.Format)
	assert.Equal(t, 10, cfg.App.PageSize)
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := "app:\n  env: production\nstorage:\n  path: data/catalog.db\n  format: sqlite\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yaml"), []byte(content), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.App.Env)
	assert.Equal(t, "data/catalog.db", cfg.Storage.Path)
	assert.Equal(t, FormatSQLite, cfg.Storage.Format)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CATALOG_STORAGE_FORMAT", "xml")

	_, err := Load()
	assert.ErrorContains(t, err, "unsupported storage format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{App: AppConfig{PageSize: 5}, Storage: StorageConfig{Path: "p.json", Format: FormatJSON}}, false},
		{"zero page size", Config{App: AppConfig{PageSize: 0}, Storage: StorageConfig{Path: "p.json", Format: FormatJSON}}, true},
		{"blank path", Config{App: AppConfig{PageSize: 5}, Storage: StorageConfig{Path: "  ", Format: FormatJSON}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
