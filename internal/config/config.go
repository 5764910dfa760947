// Package config loads ftrac configuration.
//
// Configuration is a YAML file whose values are laid over the defaults and
// then checked against an embedded CUE schema. Command-line flags override
// whatever the file sets; that merging happens in the CLI.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable consulted when no path is given.
const EnvVar = "FTRAC_CONFIG"

//go:embed schema.cue
var schemaSrc []byte

// Config is the resolved configuration.
type Config struct {
	Database  string    `yaml:"database" json:"database"`
	LogLevel  string    `yaml:"log_level" json:"log_level"`
	LogFormat string    `yaml:"log_format" json:"log_format"`
	CDF       CDFConfig `yaml:"cdf" json:"cdf"`
}

// CDFConfig holds CDF defaults.
type CDFConfig struct {
	VThreshold float64 `yaml:"vthreshold" json:"vthreshold"`
	RThreshold float64 `yaml:"rthreshold" json:"rthreshold"`
	Weight     string  `yaml:"weight" json:"weight"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database:  "ftrac.db",
		LogLevel:  "info",
		LogFormat: "text",
		CDF:       CDFConfig{Weight: "sum"},
	}
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string // dotted path, e.g. "cdf.weight"
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Message)
}

// Load reads configuration from path, or from $FTRAC_CONFIG when path is
// empty. With neither set the defaults are returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected. Empty input yields the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the CUE schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// Level maps LogLevel to a slog level. Unknown names fall back to INFO.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// formatCUEError turns the first CUE validation error into a ConfigError
// naming the offending field.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	var path []string
	for _, sel := range first.Path() {
		if !strings.HasPrefix(sel, "#") {
			path = append(path, sel)
		}
	}
	field := strings.Join(path, ".")
	if field == "" {
		field = "value"
	}
	format, args := first.Msg()
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}
