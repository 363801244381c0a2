package config_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/config"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader(`
systemsDirectory: /srv/systems
repository: /srv/repo
distro:
  name: Example
  versionID: "42"
image:
  fs: btrfs
`))
	require.NoError(t, err)

	assert.Equal(t, "/srv/systems", cfg.SystemsDirectory)
	assert.Equal(t, "/srv/repo", cfg.Repository)
	assert.Equal(t, config.DefaultWorkDirectory, cfg.WorkDirectory)
	assert.Equal(t, config.DefaultJarCacheSize, cfg.JarCacheSize)
	assert.Equal(t, "Example", cfg.Distro.Name)
	assert.Equal(t, "clrm", cfg.Distro.ID)

	settings := cfg.Settings()
	assert.Equal(t, "/srv/systems", settings.SystemsDir)
	assert.Equal(t, "42", settings.Distro.VersionID)
	assert.Equal(t, "btrfs", settings.Image.FS)
	assert.Equal(t, "rw", settings.Image.Options)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := config.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := config.LoadConfig(strings.NewReader("jarCacheSize: 0\n"))
	assert.Error(t, err)

	_, err = config.LoadConfig(strings.NewReader("systemsDirectory: [\n"))
	assert.Error(t, err)
}

func TestLoadConfigFile_Missing(t *testing.T) {
	cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "clrm.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}
