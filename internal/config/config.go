package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	General       GeneralConfig       `toml:"general"`
	Tool          ToolConfig          `toml:"tool"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	ProjectRoot  string `toml:"project_root"`
	OutputDir    string `toml:"output_dir"`
	DatabasePath string `toml:"database_path"`
}

// ToolConfig holds the external analyzer toolchain settings
type ToolConfig struct {
	AnalyzerPath  string   `toml:"analyzer_path"`
	ConverterPath string   `toml:"converter_path"`
	ExtraArgs     []string `toml:"extra_args"`
	ReportFormat  string   `toml:"report_format"`
}

// ScheduleConfig holds periodic project analysis settings
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			ProjectRoot:  "",
			OutputDir:    filepath.Join(home, ".analyzer-orch", "output"),
			DatabasePath: filepath.Join(home, ".analyzer-orch", "runs.db"),
		},
		Tool: ToolConfig{
			AnalyzerPath:  "pvs-studio-analyzer",
			ConverterPath: "plog-converter",
			ReportFormat:  "json",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 2 * * *",
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Expand paths
	cfg.General.ProjectRoot = ExpandPath(cfg.General.ProjectRoot)
	cfg.General.OutputDir = ExpandPath(cfg.General.OutputDir)
	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)

	return cfg, nil
}

// ReportPath returns the location of the raw analyzer report
func (c *Config) ReportPath() string {
	return filepath.Join(c.General.OutputDir, "report.plog")
}

// RenderedPath returns where the converter writes its parsed output.
// Kept in a subdirectory the report watcher does not descend into, so a
// parse run never re-triggers the watcher feeding it.
func (c *Config) RenderedPath() string {
	return filepath.Join(c.General.OutputDir, "rendered", "report."+c.Tool.ReportFormat)
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "analyzer-orch", "config.toml")
}
