package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Logging    LoggingConfig    `json:"logging"`
	Compliance ComplianceConfig `json:"compliance"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	AutoMigrate    bool          `json:"auto_migrate"`
}

// LoggingConfig selects the zap preset and level
type LoggingConfig struct {
	Level string `json:"level"`
	Mode  string `json:"mode"`
}

// ComplianceConfig holds scoring and recalculation settings
type ComplianceConfig struct {
	MaterialityThreshold  float64         `json:"materiality_threshold"`
	CacheTTL              time.Duration   `json:"cache_ttl"`
	RecalculationSchedule string          `json:"recalculation_schedule"`
	RecalculationWorkers  int             `json:"recalculation_workers"`
	RecalculationTimeout  time.Duration   `json:"recalculation_timeout"`
	PlatformControls      map[string]bool `json:"platform_controls"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "carbex_compliance",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			Mode:  "development",
		},
		Compliance: ComplianceConfig{
			MaterialityThreshold:  materiality.DefaultThreshold,
			CacheTTL:              5 * time.Minute,
			RecalculationSchedule: "0 2 * * *",
			RecalculationWorkers:  4,
			RecalculationTimeout:  30 * time.Minute,
			PlatformControls:      map[string]bool{},
		},
	}
}

// LoadConfig loads configuration from an optional .env file, a JSON file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		config.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		config.Database.SSLMode = sslMode
	}
	if migrate := os.Getenv("DATABASE_AUTO_MIGRATE"); migrate != "" {
		if b, err := strconv.ParseBool(migrate); err == nil {
			config.Database.AutoMigrate = b
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if mode := os.Getenv("LOG_MODE"); mode != "" {
		config.Logging.Mode = mode
	}
	if threshold := os.Getenv("MATERIALITY_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Compliance.MaterialityThreshold = f
		}
	}
	if ttl := os.Getenv("REPORT_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Compliance.CacheTTL = d
		}
	}
	if schedule := os.Getenv("RECALCULATION_SCHEDULE"); schedule != "" {
		config.Compliance.RecalculationSchedule = schedule
	}
	// PLATFORM_CONTROLS=dpo_appointed,cookie_consent
	if controls := os.Getenv("PLATFORM_CONTROLS"); controls != "" {
		config.Compliance.PlatformControls = map[string]bool{}
		for _, key := range strings.Split(controls, ",") {
			if key = strings.TrimSpace(key); key != "" {
				config.Compliance.PlatformControls[key] = true
			}
		}
	}
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if t := c.Compliance.MaterialityThreshold; t <= 0 || t > 100 {
		return fmt.Errorf("materiality threshold %.2f must be in (0, 100]", t)
	}
	if c.Compliance.CacheTTL < 0 {
		return fmt.Errorf("report cache TTL must not be negative")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
