// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"userstore/pkg/db" // Import db package for its Config struct
)

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort string `yaml:"server_port"`
	// RequestTimeout bounds a single handler. WriteTimeout must exceed it.
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	LogLevel string    `yaml:"log_level"`
	DB       db.Config `yaml:"db"`
}

// Default returns the configuration used for local development.
func Default() *AppConfig {
	return &AppConfig{
		ServerPort:      "8080",
		RequestTimeout:  30 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    35 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
		DB: db.Config{
			Driver:          db.DriverPQ,
			Host:            "localhost",
			Port:            5432,
			User:            "user",
			Password:        "password",
			DBName:          "userdb",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if set), then environment variables.
// It returns an error if the file is unreadable or any value is invalid.
func LoadConfig() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch {
	case c.RequestTimeout <= 0:
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	case c.ReadTimeout <= 0:
		return fmt.Errorf("read timeout must be positive, got %s", c.ReadTimeout)
	case c.WriteTimeout <= c.RequestTimeout:
		return fmt.Errorf("write timeout %s must exceed request timeout %s", c.WriteTimeout, c.RequestTimeout)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

func (c *AppConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	setString(&c.ServerPort, "SERVER_PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DB.Driver, "DB_DRIVER")
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.User, "DB_USER")
	setString(&c.DB.Password, "DB_PASSWORD")
	setString(&c.DB.DBName, "DB_NAME")
	setString(&c.DB.SSLMode, "DB_SSLMODE")

	if err := setInt(&c.DB.Port, "DB_PORT"); err != nil {
		return err
	}
	if err := setInt(&c.DB.MaxOpenConns, "DB_MAX_OPEN_CONNS"); err != nil {
		return err
	}
	if err := setInt(&c.DB.MaxIdleConns, "DB_MAX_IDLE_CONNS"); err != nil {
		return err
	}
	durations := []struct {
		dst *time.Duration
		key string
	}{
		{&c.RequestTimeout, "SERVER_REQUEST_TIMEOUT"},
		{&c.ReadTimeout, "SERVER_READ_TIMEOUT"},
		{&c.WriteTimeout, "SERVER_WRITE_TIMEOUT"},
		{&c.IdleTimeout, "SERVER_IDLE_TIMEOUT"},
		{&c.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT"},
		{&c.DB.ConnMaxLifetime, "DB_CONN_MAX_LIFETIME"},
	}
	for _, d := range durations {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
		}
		c.DB.AutoMigrate = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}
