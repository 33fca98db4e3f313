package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// IMAPConfig holds IMAP server settings. The password is not stored here;
// it lives in the system keyring (see internal/credential).
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	UseTLS   bool   `mapstructure:"use_tls" yaml:"use_tls"`
	Folder   string `mapstructure:"folder" yaml:"folder"`
}

// GmailConfig holds the OAuth2 client secret and token cache locations.
type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
}

// SearchConfig identifies the release announcement emails to look for.
type SearchConfig struct {
	Sender          string `mapstructure:"sender" yaml:"sender"`
	SubjectContains string `mapstructure:"subject_contains" yaml:"subject_contains"`
}

// SyncConfig bounds a single cache-population run.
type SyncConfig struct {
	MaxResults int `mapstructure:"max_results" yaml:"max_results"`
	BatchSize  int `mapstructure:"batch_size" yaml:"batch_size"`
}

// WatchConfig schedules the daily background sync.
type WatchConfig struct {
	// Time is the daily run time in HH:MM.
	Time string `mapstructure:"time" yaml:"time"`

	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// WindowDays is how many trailing days each scheduled run covers.
	WindowDays int `mapstructure:"window_days" yaml:"window_days"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Provider selects the mail transport: "gmail" or "imap".
	Provider string `mapstructure:"provider" yaml:"provider"`

	// DBPath is the release cache database location.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	IMAP   IMAPConfig   `mapstructure:"imap" yaml:"imap"`
	Gmail  GmailConfig  `mapstructure:"gmail" yaml:"gmail"`
	Search SearchConfig `mapstructure:"search" yaml:"search"`
	Sync   SyncConfig   `mapstructure:"sync" yaml:"sync"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/bcfeed/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "bcfeed", "config.yaml")
}

// defaultDataPath resolves a file path under the user's data directory.
func defaultDataPath(name string) string {
	path, err := xdg.DataFile(filepath.Join("bcfeed", name))
	if err != nil {
		return filepath.Join(".", name)
	}
	return path
}

// defaultConfig returns a sensible default configuration.
func defaultConfig() *Config {
	configDir := filepath.Dir(DefaultConfigPath())
	return &Config{
		Provider: "gmail",
		DBPath:   defaultDataPath("releases.db"),
		IMAP: IMAPConfig{
			Port:   993,
			UseTLS: true,
			Folder: "INBOX",
		},
		Gmail: GmailConfig{
			CredentialsFile: filepath.Join(configDir, "credentials.json"),
			TokenFile:       filepath.Join(configDir, "token.json"),
		},
		Search: SearchConfig{
			Sender:          "noreply@bandcamp.com",
			SubjectContains: "New release from",
		},
		Sync: SyncConfig{
			MaxResults: 100,
			BatchSize:  20,
		},
		Watch: WatchConfig{
			Time:       "08:00",
			Timezone:   "Local",
			WindowDays: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultConfig()
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("imap.port", defaults.IMAP.Port)
	v.SetDefault("imap.use_tls", defaults.IMAP.UseTLS)
	v.SetDefault("imap.folder", defaults.IMAP.Folder)
	v.SetDefault("gmail.credentials_file", defaults.Gmail.CredentialsFile)
	v.SetDefault("gmail.token_file", defaults.Gmail.TokenFile)
	v.SetDefault("search.sender", defaults.Search.Sender)
	v.SetDefault("search.subject_contains", defaults.Search.SubjectContains)
	v.SetDefault("sync.max_results", defaults.Sync.MaxResults)
	v.SetDefault("sync.batch_size", defaults.Sync.BatchSize)
	v.SetDefault("watch.time", defaults.Watch.Time)
	v.SetDefault("watch.timezone", defaults.Watch.Timezone)
	v.SetDefault("watch.window_days", defaults.Watch.WindowDays)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Provider != "gmail" && cfg.Provider != "imap" {
		return nil, fmt.Errorf("unknown provider %q in %s (want gmail or imap)", cfg.Provider, path)
	}

	return cfg, nil
}

// Save writes the given configuration to a YAML file at path, creating
// parent directories if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("provider", cfg.Provider)
	v.Set("db_path", cfg.DBPath)
	v.Set("imap", cfg.IMAP)
	v.Set("gmail", cfg.Gmail)
	v.Set("search", cfg.Search)
	v.Set("sync", cfg.Sync)
	v.Set("watch", cfg.Watch)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
