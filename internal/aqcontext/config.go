package aqcontext

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is a hierarchical string-keyed configuration tree (spec.md §4.4):
// deep lookup by dotted path, structural merge of multiple sources in
// priority order, and string interpolation referencing other keys and
// environment variables.
type Config struct {
	v       *viper.Viper
	sources []string
}

// NewConfig returns an empty configuration tree.
func NewConfig() *Config {
	v := viper.New()
	v.SetConfigType("toml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return &Config{v: v}
}

// Sources returns a log of every merge/override operation applied to this
// Config, in application order, for the CLI's `config --sources` surface
// (spec.md §6). Each entry is a short human-readable description, not a
// machine-parseable format.
func (c *Config) Sources() []string {
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

// MergeTOML layers a TOML document on top of whatever is already loaded,
// later calls taking priority over earlier ones (spec.md §4.4, "structural
// merging of multiple sources in priority order"). Decoding uses
// github.com/BurntSushi/toml directly rather than viper's built-in TOML
// support, per SPEC_FULL.md's ambient stack section.
func (c *Config) MergeTOML(data []byte) error {
	var decoded map[string]any
	if _, err := toml.Decode(string(data), &decoded); err != nil {
		return fmt.Errorf("decode toml config: %w", err)
	}
	if err := c.v.MergeConfigMap(decoded); err != nil {
		return err
	}
	c.sources = append(c.sources, "merge:inline-toml")
	return nil
}

// LoadTOMLFile decodes a TOML file with github.com/BurntSushi/toml and
// merges it into this Config (see MergeTOML).
func (c *Config) LoadTOMLFile(path string) error {
	var decoded map[string]any
	if _, err := toml.DecodeFile(path, &decoded); err != nil {
		return fmt.Errorf("decode toml config file %s: %w", path, err)
	}
	if err := c.v.MergeConfigMap(decoded); err != nil {
		return err
	}
	c.sources = append(c.sources, fmt.Sprintf("file:%s", path))
	return nil
}

// Set binds a single dotted-path key, used for the CLI's `--overrides k=v`
// layer (spec.md §6), which always wins over file-sourced configuration.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
	c.sources = append(c.sources, fmt.Sprintf("override:%s=%v", key, value))
}

// Has reports whether a deep dotted-path key resolves to anything, mirroring
// original_source/src/aqueduct/config/__init__.py's has_deep_key.
func (c *Config) Has(key string) bool {
	return c.v.IsSet(key)
}

// Get performs a deep dotted-path lookup (spec.md §4.4), interpolating
// ${...} references against this same config tree and the process
// environment before returning string values.
func (c *Config) Get(key string) (any, bool) {
	if !c.v.IsSet(key) {
		return nil, false
	}
	val := c.v.Get(key)
	if s, ok := val.(string); ok {
		return c.interpolate(s), true
	}
	return val, true
}

// GetDefault is Get with a fallback, mirroring original_source's
// get_deep_key(..., default=...).
func (c *Config) GetDefault(key string, def any) any {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Section returns the sub-configuration rooted at a dotted path (spec.md
// §4.4: "the result is a sub-configuration (possibly empty)"). A missing
// section yields an empty, non-nil Config rather than an error — per
// original_source/src/aqueduct/config/taskargs.py, an absent section is a
// legitimate "no defaults declared" state, not a ConfigResolution failure;
// that error only occurs when a specific key inside the section is needed
// and absent (see aqueduct.ApplyConfigDefaults).
func (c *Config) Section(path string) *Config {
	sub := c.v.Sub(path)
	if sub == nil {
		sub = viper.New()
	}
	return &Config{v: sub}
}

var interpolationPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_.]+)\}`)

// interpolate expands ${key} references against this config tree, falling
// back to the process environment, matching spec.md §4.4's "string
// interpolation referencing other keys and environment variables".
func (c *Config) interpolate(s string) string {
	return interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := interpolationPattern.FindStringSubmatch(match)[1]
		if v, ok := c.Get(key); ok {
			return fmt.Sprintf("%v", v)
		}
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return match
	})
}

// AllSettings returns the fully-resolved tree, used by the CLI's
// `config --show` surface.
func (c *Config) AllSettings() map[string]any {
	return c.v.AllSettings()
}
