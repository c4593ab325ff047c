package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Data    Data    `yaml:"data"`
	Output  Output  `yaml:"output"`
	Periods Periods `yaml:"periods"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Data struct {
	Path string `yaml:"path"`
}

type Output struct {
	ExportDir  string `yaml:"export_dir"`
	DataDir    string `yaml:"data_dir"`
	ReportPath string `yaml:"report_path"`
}

// Periods lists the survey months compared by the dashboards. Baseline and
// Latest are the two ends of the improvement comparison.
type Periods struct {
	Months   []string `yaml:"months"`
	Baseline string   `yaml:"baseline"`
	Latest   string   `yaml:"latest"`
}

type Server struct {
	Port  int  `yaml:"port"`
	Watch bool `yaml:"watch"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Environment variables that override file settings.
const (
	EnvDataPath  = "AISURVEY_DATA_PATH"
	EnvExportDir = "AISURVEY_EXPORT_DIR"
	EnvLogLevel  = "AISURVEY_LOG_LEVEL"
)

// ConfigDir returns the XDG config directory for aisurvey.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "aisurvey")
}

// DataDir returns the XDG data directory for aisurvey.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "aisurvey")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/aisurvey/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'aisurvey init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Data:   Data{Path: "./data/AI活用アンケートデータ.tsv"},
		Output: Output{ExportDir: "./data/processed", ReportPath: "./data/report.md"},
		Server: Server{Port: 8000},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Periods.Months) == 0 {
		cfg.Periods.Months = []string{"2025年5月", "2025年6月", "2025年7月"}
	}
	if cfg.Periods.Baseline == "" {
		cfg.Periods.Baseline = cfg.Periods.Months[0]
	}
	if cfg.Periods.Latest == "" {
		cfg.Periods.Latest = cfg.Periods.Months[len(cfg.Periods.Months)-1]
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvDataPath); v != "" {
		c.Data.Path = v
	}
	if v := getenv(EnvExportDir); v != "" {
		c.Output.ExportDir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if !slices.Contains(c.Periods.Months, c.Periods.Baseline) {
		return fmt.Errorf("periods.baseline %q is not one of periods.months", c.Periods.Baseline)
	}
	if !slices.Contains(c.Periods.Months, c.Periods.Latest) {
		return fmt.Errorf("periods.latest %q is not one of periods.months", c.Periods.Latest)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// NewLogger builds the process logger. "json" format gives the production
// encoder, anything else the human-readable development one.
func NewLogger(l Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	var zc zap.Config
	if strings.EqualFold(l.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
