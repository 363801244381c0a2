package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/thepwagner/clrm/system"
	"gopkg.in/yaml.v3"
)

const (
	DefaultWorkDirectory = "/var/tmp/clrm"
	DefaultJarCacheSize  = 64
)

type Distro struct {
	Name       string `yaml:"name"`
	PrettyName string `yaml:"prettyName"`
	ID         string `yaml:"id"`
	Version    string `yaml:"version"`
	VersionID  string `yaml:"versionID"`
}

type Image struct {
	VolumeGroup string `yaml:"volumeGroup"`
	FS          string `yaml:"fs"`
	Options     string `yaml:"options"`
	Device      string `yaml:"device"`
}

type Config struct {
	SystemsDirectory string `yaml:"systemsDirectory"`
	WorkDirectory    string `yaml:"workDirectory"`
	Repository       string `yaml:"repository"`
	JarCacheSize     int    `yaml:"jarCacheSize"`
	RedisURL         string `yaml:"redisURL"`
	Distro           Distro `yaml:"distro"`
	Image            Image  `yaml:"image"`
}

func Default() *Config {
	return &Config{
		WorkDirectory: DefaultWorkDirectory,
		JarCacheSize:  DefaultJarCacheSize,
		Distro: Distro{
			Name:       "Cleanroom",
			PrettyName: "Cleanroom Linux",
			ID:         "clrm",
		},
		Image: Image{
			VolumeGroup: "vg_clrm",
			FS:          "ext4",
			Options:     "rw",
		},
	}
}

// LoadConfigFile reads fn, falling back to the defaults when it does not exist.
func LoadConfigFile(fn string) (*Config, error) {
	f, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()
	return LoadConfig(f)
}

func LoadConfig(in io.Reader) (*Config, error) {
	cfg := Default()
	if err := yaml.NewDecoder(in).Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.JarCacheSize <= 0 {
		return nil, fmt.Errorf("jarCacheSize must be positive, got %d", cfg.JarCacheSize)
	}
	return cfg, nil
}

// Settings converts the config into the settings shared by every system.
func (c *Config) Settings() system.Settings {
	return system.Settings{
		SystemsDir:    c.SystemsDirectory,
		RepositoryDir: c.Repository,
		Distro: system.Distro{
			Name:       c.Distro.Name,
			PrettyName: c.Distro.PrettyName,
			ID:         c.Distro.ID,
			Version:    c.Distro.Version,
			VersionID:  c.Distro.VersionID,
		},
		Image: system.Image{
			VolumeGroup: c.Image.VolumeGroup,
			FS:          c.Image.FS,
			Options:     c.Image.Options,
			Device:      c.Image.Device,
		},
	}
}
