package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeDev     = "dev"
	ModeRelease = "release"

	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Username        string `yaml:"user"`
	Password        string `yaml:"password"`
	DBName          string `yaml:"dbname"`
	Migrate         bool   `yaml:"migrate"`
	LockWaitTimeout int    `yaml:"lock_wait_timeout"` // seconds
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	TLS  bool   `yaml:"tls"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	LoginPerMinute int           `yaml:"login_per_minute"`
}

type LedgerConfig struct {
	Timezone      string `yaml:"timezone"`
	RetryAttempts int    `yaml:"retry_attempts"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	Version     string         `yaml:"version"`
	Mode        string         `yaml:"mode"`
	Server      ServerConfig   `yaml:"server"`
	DB          DatabaseConfig `yaml:"database"`
	Certificate Certs          `yaml:"certificate"`
	Auth        AuthConfig     `yaml:"auth"`
	Ledger      LedgerConfig   `yaml:"ledger"`
	Tracing     TracingConfig  `yaml:"tracing"`
}

// Load reads the yaml file, then applies .env and LABO_* environment overrides.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(buf)
	if err != nil {
		return nil, err
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Parse(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDev
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8443"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = DriverMySQL
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.LockWaitTimeout == 0 {
		c.DB.LockWaitTimeout = 5
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = 24 * time.Hour
	}
	if c.Auth.LoginPerMinute == 0 {
		c.Auth.LoginPerMinute = 5
	}
	if c.Ledger.Timezone == "" {
		c.Ledger.Timezone = "UTC"
	}
	if c.Ledger.RetryAttempts == 0 {
		c.Ledger.RetryAttempts = 3
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "labo-backend"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("LABO_MODE"); ok && v != "" {
		c.Mode = v
	}
	if v, ok := lookup("LABO_DB_DRIVER"); ok && v != "" {
		c.DB.Driver = v
	}
	if v, ok := lookup("LABO_DB_HOST"); ok && v != "" {
		c.DB.Host = v
	}
	if v, ok := lookup("LABO_DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LABO_DB_PORT: %w", err)
		}
		c.DB.Port = port
	}
	if v, ok := lookup("LABO_DB_USER"); ok && v != "" {
		c.DB.Username = v
	}
	if v, ok := lookup("LABO_DB_PASSWORD"); ok {
		c.DB.Password = v
	}
	if v, ok := lookup("LABO_JWT_SECRET"); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeRelease {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeDev, ModeRelease, c.Mode)
	}
	if c.DB.Driver != DriverMySQL && c.DB.Driver != DriverMemory {
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMySQL, DriverMemory, c.DB.Driver)
	}
	if c.Mode == ModeRelease && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or LABO_JWT_SECRET) is required in release mode")
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("ledger.timezone: %w", err)
	}
	return nil
}

// Location returns the zone used for calendar-date filters.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Ledger.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
