package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Path to a YAML catalog of stations and themes.
	// Empty uses the built-in catalog.
	CatalogFile string

	// Logging; an empty LogFile means ~/.local/share/tuner/tuner.log
	LogLevel string
	LogFile  string

	Tuning  TuningConfig
	History HistoryConfig
	Discord DiscordConfig
	UI      UIConfig
}

// TuningConfig holds the station-change transition timings
type TuningConfig struct {
	SwapDelay   time.Duration
	SettleDelay time.Duration
}

// HistoryConfig holds listening log settings
type HistoryConfig struct {
	Enabled bool
	DB      string
}

// DiscordConfig holds Rich Presence settings. Presence is off without an AppID.
type DiscordConfig struct {
	AppID string
}

// UIConfig holds terminal UI settings
type UIConfig struct {
	RefreshRate time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("tuning.swap_delay", "300ms")
	v.SetDefault("tuning.settle_delay", "800ms")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db", "")
	v.SetDefault("discord.app_id", "")
	v.SetDefault("ui.refresh_rate", "120ms")
}

// Load reads configuration from file and environment.
// A missing config file is not an error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(getConfigDir())
	v.AddConfigPath(".")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// TUNER_TUNING_SWAP_DELAY overrides tuning.swap_delay
	v.SetEnvPrefix("TUNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		CatalogFile: v.GetString("catalog_file"),
		LogLevel:    v.GetString("log_level"),
		LogFile:     v.GetString("log_file"),
		Tuning: TuningConfig{
			SwapDelay:   v.GetDuration("tuning.swap_delay"),
			SettleDelay: v.GetDuration("tuning.settle_delay"),
		},
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
			DB:      v.GetString("history.db"),
		},
		Discord: DiscordConfig{
			AppID: v.GetString("discord.app_id"),
		},
		UI: UIConfig{
			RefreshRate: v.GetDuration("ui.refresh_rate"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that viper cannot express
func (c *Config) Validate() error {
	if c.Tuning.SwapDelay <= 0 {
		return fmt.Errorf("tuning.swap_delay must be positive, got %s", c.Tuning.SwapDelay)
	}
	if c.Tuning.SettleDelay < c.Tuning.SwapDelay {
		return fmt.Errorf("tuning.settle_delay (%s) must not be shorter than tuning.swap_delay (%s)",
			c.Tuning.SettleDelay, c.Tuning.SwapDelay)
	}
	if c.UI.RefreshRate <= 0 {
		return fmt.Errorf("ui.refresh_rate must be positive, got %s", c.UI.RefreshRate)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// HistoryPath returns the listening log location
func (c *Config) HistoryPath() string {
	if c.History.DB != "" {
		return c.History.DB
	}
	return filepath.Join(GetDataDir(), "history.db")
}

// LogPath returns the log file location
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(GetDataDir(), "tuner.log")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "tuner")

	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// GetConfigFile returns the path Save writes to
func GetConfigFile() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetDataDir returns the directory for the log file and listening history
// Creates the directory if it doesn't exist
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	dataDir := filepath.Join(homeDir, ".local", "share", "tuner")

	_ = os.MkdirAll(dataDir, 0755)

	return dataDir
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	v.Set("catalog_file", c.CatalogFile)
	v.Set("log_level", c.LogLevel)
	v.Set("log_file", c.LogFile)
	v.Set("tuning.swap_delay", c.Tuning.SwapDelay.String())
	v.Set("tuning.settle_delay", c.Tuning.SettleDelay.String())
	v.Set("history.enabled", c.History.Enabled)
	v.Set("history.db", c.History.DB)
	v.Set("discord.app_id", c.Discord.AppID)
	v.Set("ui.refresh_rate", c.UI.RefreshRate.String())

	return v.WriteConfigAs(GetConfigFile())
}
