// Package config contains the settings of the icsparse command and the code
// that reads them from a file or from key=value overrides.
package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/BurntSushi/xdg"
	"github.com/luxifer/ics"
	"github.com/pkg/errors"
	"github.com/tkrajina/go-reflector/reflector"
	"gopkg.in/yaml.v3"
)

// Output formats for parsed documents.
const (
	FormatTree = "tree"
	FormatYAML = "yaml"
)

// FileName is the name of the configuration file searched in the XDG
// configuration directories.
const FileName = "icsparse.toml"

// Config holds all settings of the command.
type Config struct {
	MaxDepth int    `name:"max_depth" toml:"max_depth" yaml:"max_depth"`
	Format   string `name:"format" toml:"format" yaml:"format"`
	Color    bool   `name:"color" toml:"color" yaml:"color"`
}

// Default returns the settings used when no file is found.
func Default() Config {
	return Config{
		MaxDepth: ics.DefaultMaxDepth,
		Format:   FormatTree,
		Color:    true,
	}
}

// Find looks for FileName below $XDG_CONFIG_HOME/icsparse and
// $XDG_CONFIG_DIRS/icsparse.
func Find() (string, error) {
	paths := xdg.Paths{XDGSuffix: "icsparse"}
	return paths.ConfigFile(FileName)
}

// Load reads filename on top of the defaults. Files ending in .yaml or .yml
// are YAML, everything else is TOML.
func Load(filename string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = toml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, errors.WithMessage(err, filename)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, errors.WithMessage(err, filename)
	}

	return cfg, nil
}

// Validate checks that every setting has a usable value.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return errors.Errorf("max_depth must be at least 1, got %d", c.MaxDepth)
	}

	switch c.Format {
	case FormatTree, FormatYAML:
	default:
		return errors.Errorf("unknown format %q, want %q or %q", c.Format, FormatTree, FormatYAML)
	}

	return nil
}

// Options returns the parser options matching c.
func (c Config) Options() []ics.Option {
	return []ics.Option{ics.MaxDepth(c.MaxDepth)}
}

// Apply parses each "key=value" assignment and sets the field named key.
func (c *Config) Apply(assignments []string) error {
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok {
			return errors.Errorf("invalid assignment %q, want key=value", a)
		}

		if err := c.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}

	return c.Validate()
}

// Set updates the field whose name tag, or lower-cased field name, is key.
// The value is converted according to the field's type.
func (c *Config) Set(key, value string) error {
	obj := reflector.New(c)

	field, err := fieldForName(obj, key, "name")
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		return field.Set(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "%s", key)
		}
		return field.Set(b)
	}

	return field.Set(value)
}

// fieldForName returns the field matching the name, either directly (via
// strings.ToLower()) or via the tag.
func fieldForName(obj *reflector.Obj, name, tag string) (*reflector.ObjField, error) {
	for _, field := range obj.FieldsAll() {
		if name == strings.ToLower(field.Name()) {
			return &field, nil
		}

		fieldTag, err := field.Tag(tag)
		if err == nil && name == fieldTag {
			return &field, nil
		}
	}

	return nil, errors.Errorf("unknown setting %q", name)
}
