// Package config loads ucp settings from YAML files layered over built-in
// defaults: defaults, then ~/.config/ucp/config.yaml, then
// ./.ucp/config.yaml, then an explicit file. Command-line flags are applied
// by the caller on top of the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/ucp/core/errors"
	"github.com/FocuswithJustin/ucp/internal/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/ucp"
	projectConfigDir = ".ucp"
	configFileName   = "config.yaml"

	// maxCacheSize bounds ucl.cacheSize.
	maxCacheSize = 1 << 20
)

// Config holds resolved settings.
type Config struct {
	Log    LogConfig
	Output OutputConfig
	UCL    UCLConfig
}

// LogConfig selects the logging level and format.
type LogConfig struct {
	Level  string
	Format string
}

// OutputConfig controls how documents are written. An empty Compression
// infers the container from the output file extension.
type OutputConfig struct {
	Indent      bool
	Compression string
}

// UCLConfig tunes the command executor. A zero CacheTTL keeps parsed
// commands until they are evicted.
type UCLConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// fileConfig mirrors the YAML layout. Pointers distinguish "unset" from
// zero values so that a layer can turn a setting off.
type fileConfig struct {
	Log struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`
	Output struct {
		Indent      *bool   `yaml:"indent"`
		Compression *string `yaml:"compression"`
	} `yaml:"output"`
	UCL struct {
		CacheSize *int           `yaml:"cacheSize"`
		CacheTTL  *time.Duration `yaml:"cacheTTL"`
	} `yaml:"ucl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "warn", Format: "text"},
		Output: OutputConfig{Indent: true},
		UCL:    UCLConfig{CacheSize: 256},
	}
}

// Load layers the user and project files, then explicitPath when it is not
// empty, over the defaults. Missing user and project files are skipped; a
// missing explicit file is an error. The result is validated.
func Load(explicitPath string) (Config, error) {
	cfg := Default()

	for _, locate := range []func() (string, error){getUserConfigPath, getProjectConfigPath} {
		path, err := locate()
		if err != nil {
			logging.Debug("config path unavailable", "error", err)
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if cfg, err = applyFile(cfg, path); err != nil {
			return Config{}, err
		}
	}

	if explicitPath != "" {
		var err error
		if cfg, err = applyFile(cfg, explicitPath); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func applyFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewIO("read config", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, &errors.ParseError{Format: "YAML", Path: path, Message: err.Error(), Err: err}
	}
	logging.Debug("config file applied", "path", path)
	return merge(base, fc), nil
}

// merge applies every field set in overlay to base.
func merge(base Config, overlay fileConfig) Config {
	merged := base
	if overlay.Log.Level != nil {
		merged.Log.Level = *overlay.Log.Level
	}
	if overlay.Log.Format != nil {
		merged.Log.Format = *overlay.Log.Format
	}
	if overlay.Output.Indent != nil {
		merged.Output.Indent = *overlay.Output.Indent
	}
	if overlay.Output.Compression != nil {
		merged.Output.Compression = *overlay.Output.Compression
	}
	if overlay.UCL.CacheSize != nil {
		merged.UCL.CacheSize = *overlay.UCL.CacheSize
	}
	if overlay.UCL.CacheTTL != nil {
		merged.UCL.CacheTTL = *overlay.UCL.CacheTTL
	}
	return merged
}

// Validate checks every setting and reports the first bad one.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return errors.NewValidation("log.format", err.Error())
	}
	switch c.Output.Compression {
	case "", "none", "gzip", "xz":
	default:
		return errors.NewValidation("output.compression", fmt.Sprintf("unknown compression %q (want none, gzip or xz)", c.Output.Compression))
	}
	if c.UCL.CacheSize < 0 || c.UCL.CacheSize > maxCacheSize {
		return errors.NewValidation("ucl.cacheSize", fmt.Sprintf("must be between 0 and %d", maxCacheSize))
	}
	if c.UCL.CacheTTL < 0 {
		return errors.NewValidation("ucl.cacheTTL", "must not be negative")
	}
	return nil
}

// ApplyLogging initializes the global logger from c.
func (c Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return errors.NewValidation("log.level", err.Error())
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		return errors.NewValidation("log.format", err.Error())
	}
	logging.InitLogger(level, format)
	return nil
}

// UserConfigDir returns the user configuration directory path.
func UserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
