// Package config loads and saves CapsGlow.ini.
package config

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/phinze/capsglow/internal/display"
	"github.com/phinze/capsglow/internal/theme"
)

/*
Settings are resolved with the following precedence (highest first):

1. CAPSGLOW_<KEY> environment variables
2. .env next to the config file, then in the working directory
3. CapsGlow.ini, section [Settings]
4. Built-in defaults
*/

const (
	AppName   = "CapsGlow"
	FileName  = "CapsGlow.ini"
	EnvPrefix = "CAPSGLOW"

	section = "settings"
)

// Settings is the [Settings] section.
type Settings struct {
	Theme    string `mapstructure:"theme" validate:"oneof=follow_indicator_area follow_system light dark"`
	Monitor  string `mapstructure:"monitor" validate:"oneof=mouse primary"`
	Size     int    `mapstructure:"size" validate:"min=16,max=512"`
	OffsetX  int    `mapstructure:"offset_x" validate:"min=-16384,max=16384"`
	OffsetY  int    `mapstructure:"offset_y" validate:"min=-16384,max=16384"`
	UIAccess bool   `mapstructure:"uiaccess"`
	Debug    bool   `mapstructure:"debug"`
}

var defaults = Settings{
	Theme:    theme.FollowIndicatorArea.String(),
	Monitor:  display.UnderMouse.String(),
	Size:     64,
	UIAccess: true,
}

// legacyKeys maps keys written by earlier CapsGlow releases to their
// current names. A current key in the file always wins.
var legacyKeys = map[string]string{
	"monitorselector":      "monitor",
	"themedetectionsource": "theme",
}

// Config is the loaded settings plus the file they belong to. Keys whose
// value was rejected are tracked in invalid and never written back, so the
// user's text survives a Save. Keys changed through setters are tracked in
// dirty.
type Config struct {
	Settings
	path    string
	invalid map[string]bool
	dirty   map[string]bool
}

func newConfig(path string) *Config {
	return &Config{
		Settings: defaults,
		path:     path,
		invalid:  map[string]bool{},
		dirty:    map[string]bool{},
	}
}

// Load reads the config at path, or at DefaultPath when path is empty. A
// missing file is created with defaults. Values that fail validation are
// replaced by their defaults individually; only an unreadable file is an
// error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	loadDotEnv(filepath.Dir(path))

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	setDefaults(v)

	// Env keys are upper-cased before replacement.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(strings.ToUpper(section)+".", ""))
	v.AutomaticEnv()

	_, statErr := os.Stat(path)
	missing := os.IsNotExist(statErr)
	if !missing {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
	}
	applyLegacyKeys(v)

	c := newConfig(path)
	c.decode(v)
	c.normalize()
	c.repair()

	if missing {
		if err := c.Save(); err != nil {
			log.Printf("Could not write default config: %v", err)
		} else {
			log.Printf("Wrote default config to %s", path)
		}
	}
	return c, nil
}

// Defaults returns the built-in settings bound to path.
func Defaults(path string) *Config {
	return newConfig(path)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(section+".theme", defaults.Theme)
	v.SetDefault(section+".monitor", defaults.Monitor)
	v.SetDefault(section+".size", defaults.Size)
	v.SetDefault(section+".offset_x", defaults.OffsetX)
	v.SetDefault(section+".offset_y", defaults.OffsetY)
	v.SetDefault(section+".uiaccess", defaults.UIAccess)
	v.SetDefault(section+".debug", defaults.Debug)
}

// applyLegacyKeys installs legacy file values as defaults, which ranks them
// below both the current key and its environment override.
func applyLegacyKeys(v *viper.Viper) {
	for old, key := range legacyKeys {
		if !v.InConfig(section + "." + old) {
			continue
		}
		if v.InConfig(section + "." + key) {
			log.Printf("Ignoring legacy %s, %s is set", old, key)
			continue
		}
		log.Printf("Reading legacy %s as %s", old, key)
		v.SetDefault(section+"."+key, v.Get(section+"."+old))
	}
}

// loadDotEnv loads .env files without overriding variables already set.
func loadDotEnv(dir string) {
	for _, p := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("Ignoring %s: %v", p, err)
		}
	}
}

// field binds a config key to the Settings field it fills.
type field struct {
	key  string
	name string
	ptr  any
}

func (s *Settings) fields() []field {
	return []field{
		{"theme", "Theme", &s.Theme},
		{"monitor", "Monitor", &s.Monitor},
		{"size", "Size", &s.Size},
		{"offset_x", "OffsetX", &s.OffsetX},
		{"offset_y", "OffsetY", &s.OffsetY},
		{"uiaccess", "UIAccess", &s.UIAccess},
		{"debug", "Debug", &s.Debug},
	}
}

// decode fills each field on its own so one malformed value leaves the
// others intact.
func (c *Config) decode(v *viper.Viper) {
	for _, f := range c.fields() {
		if err := v.UnmarshalKey(section+"."+f.key, f.ptr); err != nil {
			log.Printf("Ignoring %s: %v", f.key, err)
			c.reset(f.name)
		}
	}
}

// normalize rewrites accepted aliases to their canonical tokens.
func (c *Config) normalize() {
	c.Theme = strings.ToLower(strings.TrimSpace(c.Theme))
	c.Monitor = strings.ToLower(strings.TrimSpace(c.Monitor))
	if m, err := theme.ParseMode(c.Theme); err == nil {
		c.Theme = m.String()
	}
	if m, err := display.ParseMode(c.Monitor); err == nil {
		c.Monitor = m.String()
	}
}

// repair replaces every field that fails validation with its default.
func (c *Config) repair() {
	err := validator.New().Struct(c.Settings)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return
	}
	for _, fe := range verrs {
		log.Printf("Ignoring invalid %s %q, using default", strings.ToLower(fe.Field()), fmt.Sprint(fe.Value()))
		c.reset(fe.Field())
	}
}

// reset restores the named field to its default and marks it invalid.
func (c *Config) reset(name string) {
	d := defaults
	want := d.fields()
	for i, f := range c.fields() {
		if f.name != name {
			continue
		}
		reflect.ValueOf(f.ptr).Elem().Set(reflect.ValueOf(want[i].ptr).Elem())
		c.invalid[f.key] = true
	}
}

// Save writes the settings to the config file. A new file receives every
// valid setting. An existing file is merged: only keys changed through
// setters are written and everything else in it is preserved. A file that
// cannot be parsed is never overwritten.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	v := viper.New()
	v.SetConfigFile(c.path)
	v.SetConfigType("ini")

	all := true
	if _, err := os.Stat(c.path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "refusing to overwrite unreadable %s", c.path)
		}
		all = false
	}

	for _, f := range c.fields() {
		if c.invalid[f.key] || !(all || c.dirty[f.key]) {
			continue
		}
		v.Set(section+"."+f.key, reflect.ValueOf(f.ptr).Elem().Interface())
	}

	if err := v.WriteConfigAs(c.path); err != nil {
		return errors.Wrapf(err, "failed to write %s", c.path)
	}
	return nil
}

// Path returns the config file location.
func (c *Config) Path() string { return c.path }

// Dir returns the directory holding the config file.
func (c *Config) Dir() string { return filepath.Dir(c.path) }

// ThemeMode returns the configured theme mode.
func (c *Config) ThemeMode() theme.Mode {
	m, err := theme.ParseMode(c.Theme)
	if err != nil {
		return theme.FollowIndicatorArea
	}
	return m
}

// MonitorMode returns the configured monitor mode.
func (c *Config) MonitorMode() display.Mode {
	m, err := display.ParseMode(c.Monitor)
	if err != nil {
		return display.UnderMouse
	}
	return m
}

// Offset returns the custom offset from the centered position.
func (c *Config) Offset() image.Point {
	return image.Pt(c.OffsetX, c.OffsetY)
}

// SetModes records new modes. Call Save to persist them.
func (c *Config) SetModes(t theme.Mode, m display.Mode) {
	c.Theme = t.String()
	c.Monitor = m.String()
	for _, key := range []string{"theme", "monitor"} {
		delete(c.invalid, key)
		c.dirty[key] = true
	}
}

// DefaultPath returns CapsGlow.ini next to the executable when that
// directory is writable, otherwise under the user config directory.
func DefaultPath() string {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if writable(dir) {
			return filepath.Join(dir, FileName)
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName, FileName)
	}
	return FileName
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".capsglow-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
