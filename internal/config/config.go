package config

import (
	"fmt"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Matching MatchingConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MatchingConfig holds the engine knobs. Caps keep a run over a large
// backlog boundable so callers can drain incrementally.
type MatchingConfig struct {
	NearToleranceCents          int64
	DateWindowDays              int
	MaxTransactionsPerRun       int
	MaxCandidatesPerTransaction int
}

type LoggerConfig struct {
	Level string
}

func Load() *Config {
	nearTolerance, _ := strconv.ParseInt(getEnv("MATCH_NEAR_TOLERANCE_CENTS", "100"), 10, 64)
	windowDays, _ := strconv.Atoi(getEnv("MATCH_DATE_WINDOW_DAYS", "7"))
	maxTxns, _ := strconv.Atoi(getEnv("MATCH_MAX_TRANSACTIONS_PER_RUN", "500"))
	maxCandidates, _ := strconv.Atoi(getEnv("MATCH_MAX_CANDIDATES_PER_TRANSACTION", "20"))

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "studio_reconciliation"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Matching: MatchingConfig{
			NearToleranceCents:          nearTolerance,
			DateWindowDays:              windowDays,
			MaxTransactionsPerRun:       maxTxns,
			MaxCandidatesPerTransaction: maxCandidates,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func InitDB(cfg DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
