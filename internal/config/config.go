package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	Log      LogConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	BcryptCost int
}

// LedgerConfig sizes the history and statistics views.
type LedgerConfig struct {
	StatisticsLimit int
	HistoryLimit    int
}

type LogConfig struct {
	Level  string // logrus level name
	Format string // "text" or "json"
}

// Load reads configuration from the environment, after seeding it from envFile
// when that file exists. Variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cost, err := getEnvInt("CALC_BCRYPT_COST", bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	statsLimit, err := getEnvInt("CALC_STATS_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getEnvInt("CALC_HISTORY_LIMIT", 20)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Path: getEnv("CALC_DB_PATH", "calculator.db"),
		},
		Auth: AuthConfig{
			BcryptCost: cost,
		},
		Ledger: LedgerConfig{
			StatisticsLimit: statsLimit,
			HistoryLimit:    historyLimit,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("CALC_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Ledger.StatisticsLimit <= 0 || cfg.Ledger.HistoryLimit <= 0 {
		return nil, fmt.Errorf("CALC_STATS_LIMIT and CALC_HISTORY_LIMIT must be positive")
	}
	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("CALC_DB_PATH is empty")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, bcrypt cost: %d, stats: %d, history: %d, log: %s/%s}",
		c.Database.Path, c.Auth.BcryptCost, c.Ledger.StatisticsLimit, c.Ledger.HistoryLimit, c.Log.Level, c.Log.Format)
}
