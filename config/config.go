// Package config handles dxdis.toml configuration.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// FileName is the configuration file FindAndLoad looks for.
const FileName = "dxdis.toml"

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatCBOR = "cbor"
)

// Config represents a dxdis.toml file.
type Config struct {
	Reader Reader `toml:"reader"`
	Output Output `toml:"output"`
	Log    Log    `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Reader configures the bitcode reader.
type Reader struct {
	LazyMetadata bool `toml:"lazy-metadata"`
}

// Output configures how a module is written.
type Output struct {
	Format string `toml:"format"`
}

// Log configures commonlog. Verbosity 0 logs errors only; a missing file
// means stderr.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{Output: Output{Format: FormatText}}
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}

	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve path %s", path)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(filepath.Dir(c.Path), c.Log.File)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a dxdis.toml file and loads
// it. Defaults are returned if there is none.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks values the TOML decoder cannot.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatText, FormatYAML, FormatCBOR:
	default:
		return errors.Errorf("unknown output format %q", c.Output.Format)
	}
	if c.Log.Verbosity < 0 {
		return errors.Errorf("negative log verbosity %d", c.Log.Verbosity)
	}
	return nil
}
