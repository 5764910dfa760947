package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ftrac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
}

func TestLoad_NoSourceGivesDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/ftrac/traces.db
log_level: debug
cdf:
  vthreshold: 0.05
  weight: count
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ftrac/traces.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep their defaults")
	assert.Equal(t, 0.05, cfg.CDF.VThreshold)
	assert.Equal(t, 0.0, cfg.CDF.RThreshold)
	assert.Equal(t, "count", cfg.CDF.Weight)
}

func TestLoad_FromEnvironment(t *testing.T) {
	path := writeConfig(t, "log_format: json\n")
	t.Setenv(EnvVar, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_ExplicitPathWinsOverEnvironment(t *testing.T) {
	t.Setenv(EnvVar, writeConfig(t, "log_format: json\n"))

	cfg, err := Load(writeConfig(t, "log_level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("databse: x.db\n"))
	assert.ErrorContains(t, err, "databse")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"bad level", "log_level: verbose\n", "log_level"},
		{"bad format", "log_format: xml\n", "log_format"},
		{"empty database", "database: \"\"\n", "database"},
		{"negative vthreshold", "cdf:\n  vthreshold: -0.1\n", "cdf.vthreshold"},
		{"negative rthreshold", "cdf:\n  rthreshold: -1\n", "cdf.rthreshold"},
		{"bad weight", "cdf:\n  weight: mass\n", "cdf.weight"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
			assert.NotEmpty(t, cerr.Message)
		})
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Config{LogLevel: "debug"}.Level())
	assert.Equal(t, slog.LevelWarn, Config{LogLevel: "WARN"}.Level())
	assert.Equal(t, slog.LevelError, Config{LogLevel: "error"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{LogLevel: "info"}.Level())
	assert.Equal(t, slog.LevelInfo, Config{}.Level())
}
