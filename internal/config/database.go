package config

import (
	"fmt"
	"os"
	"sync"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"
)

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

var (
	dbConfig *DBConfig
	dbOnce   sync.Once
)

func LoadDBConfig() *DBConfig {
	dbOnce.Do(func() {
		dbConfig = &DBConfig{
			Driver:   envOr("DB_DRIVER", DBDriverPostgres),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
			TimeZone: envOr("DB_TIMEZONE", "UTC"),
		}
	})
	return dbConfig
}

// DSN renders the postgres connection string.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.TimeZone,
	)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
