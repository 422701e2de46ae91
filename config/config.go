/*
Package config loads the YAML settings file that supplies default paths and
options to the citrii command.

Every value may be overridden on the command line; the file only saves
typing the same paths on each run.
*/
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Default file names, relative to the working directory.
const (
	DefaultAsset    = "CFL_Res.dat"
	DefaultDatabase = "CFL_DB.dat"
	DefaultCatalog  = "citrii.db"
)

// Export controls texture export.
type Export struct {
	Format  string `yaml:"format"`
	Workers int    `yaml:"workers"`
}

// Config is the contents of the settings file.
type Config struct {
	// Asset is the resource container. When RomFS is set it is a path
	// within the image instead.
	Asset    string `yaml:"asset"`
	Database string `yaml:"database"`
	Catalog  string `yaml:"catalog"`
	RomFS    string `yaml:"romfs"`
	Verbose  bool   `yaml:"verbose"`
	Export   Export `yaml:"export"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Asset:    DefaultAsset,
		Database: DefaultDatabase,
		Catalog:  DefaultCatalog,
		Export: Export{
			Format:  "png",
			Workers: 4,
		},
	}
}

// Load reads the file at path. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}

	return c, nil
}

// Validate checks the values that have a restricted range.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "png", "gif":
	default:
		return errors.Errorf("unknown export format %q", c.Export.Format)
	}
	if c.Export.Workers < 1 {
		return errors.Errorf("export needs at least one worker, not %d", c.Export.Workers)
	}
	return nil
}

// Save writes c to path.
func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
