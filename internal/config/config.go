// Package config loads the settings of the bk command from a TOML file,
// a .env file and BK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/etnz/bookkeeping"
	"github.com/etnz/bookkeeping/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	Data      DataConfig
	Registry  RegistryConfig
	Commodity CommodityConfig
	Schedule  ScheduleConfig
	Backup    BackupConfig
	Display   DisplayConfig
	Log       LogConfig
}

// DataConfig locates the book databases.
type DataConfig struct {
	Dir string
}

// RegistryConfig locates the list of books.
type RegistryConfig struct {
	Path string
}

// CommodityConfig holds the commodity of new books and amounts.
type CommodityConfig struct {
	Default string
}

// ScheduleConfig holds the scheduled actions processing settings.
type ScheduleConfig struct {
	Interval time.Duration
}

// BackupConfig holds the default backup directory.
type BackupConfig struct {
	Dir string
}

// DisplayConfig holds presentation settings.
type DisplayConfig struct {
	Reverse string // credit, income-expense or none
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string
}

// home returns the directory of the bookkeeping data.
func home() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "bookkeeping")
}

// Path returns the configuration file: $BK_CONFIG or ~/.config/bookkeeping/config.toml.
func Path() string {
	if p := os.Getenv("BK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "bookkeeping", "config.toml")
}

// Load reads the configuration. envFile is loaded first when set, otherwise
// a .env file in the current directory is loaded if present. Environment
// variables override the file: BK_DATA_DIR overrides data.dir.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetDefault("data.dir", home())
	v.SetDefault("registry.path", filepath.Join(home(), "books.db"))
	v.SetDefault("commodity.default", "USD")
	v.SetDefault("schedule.interval", 6*time.Hour)
	v.SetDefault("backup.dir", filepath.Join(home(), "backups"))
	v.SetDefault("display.reverse", string(bookkeeping.ReverseCredit))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")
	v.SetConfigFile(Path())
	v.SetEnvPrefix("BK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, c.Validate()
}

// Validate checks the values that are parsed later.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.DefaultCommodity(); err != nil {
		errs = append(errs, fmt.Errorf("commodity.default: %w", err))
	}
	if _, err := bookkeeping.ParseDisplayConvention(c.Display.Reverse); err != nil {
		errs = append(errs, fmt.Errorf("display.reverse: %w", err))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Schedule.Interval <= 0 {
		errs = append(errs, fmt.Errorf("schedule.interval must be positive, got %v", c.Schedule.Interval))
	}
	return errors.Join(errs...)
}

// DefaultCommodity returns the configured default commodity.
func (c Config) DefaultCommodity() (bookkeeping.Commodity, error) {
	return bookkeeping.CommodityOf(c.Commodity.Default)
}

// Convention returns the configured display convention.
func (c Config) Convention() bookkeeping.DisplayConvention {
	dc, err := bookkeeping.ParseDisplayConvention(c.Display.Reverse)
	if err != nil {
		return bookkeeping.ReverseCredit
	}
	return dc
}

// BookPath returns the database file of a new book.
func (c Config) BookPath(bookUID string) string {
	return filepath.Join(c.Data.Dir, bookUID+".db")
}

// Save writes cfg to the configuration file, creating its directory.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("data.dir", cfg.Data.Dir)
	v.Set("registry.path", cfg.Registry.Path)
	v.Set("commodity.default", cfg.Commodity.Default)
	v.Set("schedule.interval", cfg.Schedule.Interval.String())
	v.Set("backup.dir", cfg.Backup.Dir)
	v.Set("display.reverse", cfg.Display.Reverse)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
