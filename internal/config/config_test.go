package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.Periods.Months) != 3 {
		t.Errorf("expected 3 months, got %v", cfg.Periods.Months)
	}
	if cfg.Periods.Baseline != "2025年5月" {
		t.Errorf("expected baseline 2025年5月, got %q", cfg.Periods.Baseline)
	}
	if cfg.Periods.Latest != "2025年7月" {
		t.Errorf("expected latest 2025年7月, got %q", cfg.Periods.Latest)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
periods:
  months: [2025年8月, 2025年9月]
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, "2025年8月", cfg.Periods.Baseline)
	assert.Equal(t, "2025年9月", cfg.Periods.Latest)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "./data/processed", cfg.Output.ExportDir)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Periods.Baseline = "2024年1月"
	assert.ErrorContains(t, cfg.Validate(), "periods.baseline")

	cfg = Default()
	cfg.Periods.Latest = "2030年1月"
	assert.ErrorContains(t, cfg.Validate(), "periods.latest")

	cfg = Default()
	cfg.Logging.Level = "chatty"
	assert.ErrorContains(t, cfg.Validate(), "logging.level")

	cfg = Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvDataPath:  "/tmp/survey.tsv",
		EnvExportDir: "/tmp/out",
		EnvLogLevel:  "debug",
	}
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "/tmp/survey.tsv", cfg.Data.Path)
	assert.Equal(t, "/tmp/out", cfg.Output.ExportDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	t.Setenv(EnvDataPath, "")
	t.Setenv(EnvExportDir, "")
	t.Setenv(EnvLogLevel, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Data.Path == "" {
		t.Error("expected data path to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(Logging{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(Logging{Level: "nope"})
	assert.Error(t, err)
}
