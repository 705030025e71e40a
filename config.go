package cfgenius

import (
	"fmt"
	"math/bits"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the compilation configuration that cfg(...) conditions resolve
// against: a set of bare flags plus key/value pairs. A key may carry several
// values at once (like a feature list), so values accumulate rather than
// replace.
type Config struct {
	flags  map[string]struct{}
	values map[string]map[string]struct{}
}

// NewConfig creates an empty configuration.
func NewConfig() *Config {
	return &Config{
		flags:  map[string]struct{}{},
		values: map[string]map[string]struct{}{},
	}
}

// Set adds a bare flag. Returns the config for chaining.
func (c *Config) Set(name string) *Config {
	c.flags[name] = struct{}{}
	return c
}

// SetValue adds a value under a key. Returns the config for chaining.
func (c *Config) SetValue(key, value string) *Config {
	vs, ok := c.values[key]
	if !ok {
		vs = map[string]struct{}{}
		c.values[key] = vs
	}
	vs[value] = struct{}{}
	return c
}

// Has reports whether a bare flag is set.
func (c *Config) Has(name string) bool {
	_, ok := c.flags[name]
	return ok
}

// HasValue reports whether a key carries a value.
func (c *Config) HasValue(key, value string) bool {
	vs, ok := c.values[key]
	if !ok {
		return false
	}
	_, ok = vs[value]
	return ok
}

// Eval resolves an attribute condition against the configuration.
func (c *Config) Eval(expr CfgExpr) bool {
	switch e := expr.(type) {
	case CfgFlag:
		return c.Has(e.Name)
	case CfgValue:
		return c.HasValue(e.Key, e.Value)
	case CfgNot:
		return !c.Eval(e.Inner)
	case CfgAll:
		for _, op := range e.Operands {
			if !c.Eval(op) {
				return false
			}
		}
		return true
	case CfgAny:
		for _, op := range e.Operands {
			if c.Eval(op) {
				return true
			}
		}
		return false
	}
	return false
}

// unixLike lists the GOOS values that get the unix family flag.
var unixLike = map[string]struct{}{
	"aix": {}, "android": {}, "darwin": {}, "dragonfly": {}, "freebsd": {},
	"illumos": {}, "ios": {}, "linux": {}, "netbsd": {}, "openbsd": {},
	"solaris": {},
}

// bigEndian lists the GOARCH values with big-endian byte order.
var bigEndian = map[string]struct{}{
	"mips": {}, "mips64": {}, "ppc64": {}, "s390x": {},
}

// HostConfig derives a configuration from the running toolchain: the GOOS
// name as a bare flag plus target_os, target_arch, target_family,
// target_pointer_width and target_endian values.
func HostConfig() *Config {
	c := NewConfig()
	c.Set(runtime.GOOS)
	c.SetValue("target_os", runtime.GOOS)
	c.SetValue("target_arch", runtime.GOARCH)
	c.SetValue("target_pointer_width", strconv.Itoa(bits.UintSize))

	family := runtime.GOOS
	if _, ok := unixLike[runtime.GOOS]; ok {
		family = "unix"
		c.Set("unix")
	}
	c.SetValue("target_family", family)

	endian := "little"
	if _, ok := bigEndian[runtime.GOARCH]; ok {
		endian = "big"
	}
	c.SetValue("target_endian", endian)
	return c
}

// configFile is the YAML schema accepted by LoadConfig.
type configFile struct {
	Flags  []string            `yaml:"flags"`
	Values map[string][]string `yaml:"values"`
}

// LoadConfig reads a configuration from a YAML file of the form:
//
//	flags:
//	  - unix
//	values:
//	  target_pointer_width: ["64"]
//	  feature: ["simd", "alloc"]
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	c := NewConfig()
	for _, flag := range file.Flags {
		c.Set(flag)
	}
	for key, vals := range file.Values {
		for _, val := range vals {
			c.SetValue(key, val)
		}
	}
	return c, nil
}
