package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tasksync-backend/internal/apperr"
)

// Drivers the store can be opened with.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the three deployment parameters: the APP_CONFIG blob (decoded
// below), the APP_ID collection scope, and the optional AUTH_TOKEN durable
// credential. Everything else comes out of the blob.
type Config struct {
	Driver    string `yaml:"driver"`
	Listen    string `yaml:"listen"`
	JWTSecret string `yaml:"jwt_secret"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `yaml:"sqlite_path"`

	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`
	DBName     string `yaml:"db_name"`

	// Tokens maps durable token ids to bcrypt hashes of their secrets.
	// Pre-issued out of band; sessions without one resolve anonymously.
	Tokens map[string]string `yaml:"tokens"`

	AppID        string `yaml:"-"`
	DurableToken string `yaml:"-"`
}

// Load reads APP_CONFIG, APP_ID and AUTH_TOKEN from the environment.
// A missing or undecodable APP_CONFIG is a fatal startup condition.
func Load() (*Config, error) {
	blob := os.Getenv("APP_CONFIG")
	if blob == "" {
		return nil, apperr.Configurationf("APP_CONFIG is not set")
	}
	return Parse([]byte(blob), os.Getenv("APP_ID"), os.Getenv("AUTH_TOKEN"))
}

// Parse decodes the configuration blob and applies defaults.
func Parse(blob []byte, appID, durableToken string) (*Config, error) {
	cfg := &Config{
		Driver: DriverMemory,
		Listen: ":8080",
	}
	if err := yaml.Unmarshal(blob, cfg); err != nil {
		return nil, apperr.Configurationf("invalid APP_CONFIG: %v", err)
	}

	if appID == "" {
		return nil, apperr.Configurationf("APP_ID is not set")
	}
	cfg.AppID = appID
	cfg.DurableToken = durableToken

	switch cfg.Driver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, apperr.Configurationf("sqlite driver requires sqlite_path")
		}
	case DriverPostgres:
		if cfg.DBHost == "" || cfg.DBName == "" {
			return nil, apperr.Configurationf("postgres driver requires db_host and db_name")
		}
		if cfg.DBPort == 0 {
			cfg.DBPort = 5432
		}
	default:
		return nil, apperr.Configurationf("unknown driver %q", cfg.Driver)
	}

	if cfg.JWTSecret == "" {
		return nil, apperr.Configurationf("jwt_secret is required")
	}

	return cfg, nil
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
