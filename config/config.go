// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	MinSecretLength     = 32
	MinPasswordLength   = 8
	bcryptMinCost       = 4
	bcryptMaxCost       = 31
	defaultStoreTimeout = 5
)

type Config struct {
	Server struct {
		Host  string `yaml:"host"`
		Port  int    `yaml:"port"`
		Debug bool   `yaml:"debug"`
		// TrustedProxies lists the proxy addresses or CIDRs whose
		// X-Forwarded-For is believed. Empty means the peer address is the client.
		TrustedProxies []string `yaml:"trusted_proxies"`
		// AllowedHosts is matched against the Host header. "*" allows any host
		// and "*.example.com" any subdomain of example.com.
		AllowedHosts []string `yaml:"allowed_hosts"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Database struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		DBName       string `yaml:"dbname"`
		SSLMode      string `yaml:"sslmode"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		Migrate      bool   `yaml:"migrate"`
	} `yaml:"database"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		DB       int    `yaml:"db"`
		Password string `yaml:"password"`
		Timeout  int    `yaml:"timeout_seconds"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret          string `yaml:"jwt_secret"`
		JWTAlgorithm       string `yaml:"jwt_algorithm"`
		AccessTokenMinutes int    `yaml:"access_token_expire_minutes"`
		BcryptCost         int    `yaml:"bcrypt_cost"`
	} `yaml:"auth"`

	Password struct {
		MinLength        int  `yaml:"min_length"`
		RequireUppercase bool `yaml:"require_uppercase"`
		RequireLowercase bool `yaml:"require_lowercase"`
		RequireNumber    bool `yaml:"require_number"`
		RequireSpecial   bool `yaml:"require_special"`
	} `yaml:"password"`

	RateLimit struct {
		Enabled                 bool `yaml:"enabled"`
		PerMinute               int  `yaml:"per_minute"`
		LoginAttempts           int  `yaml:"login_attempts"`
		LoginWindowMinutes      int  `yaml:"login_window_minutes"`
		RegistrationAttempts    int  `yaml:"registration_attempts"`
		RegistrationWindowHours int  `yaml:"registration_window_hours"`
	} `yaml:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// LoadConfig reads the YAML file, applies environment overrides for secrets
// and fills in defaults. A .env file next to the binary is honoured if present.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	config := &Config{}
	// Booleans that default to true must be set before unmarshalling so an
	// explicit false in the file still wins.
	config.Redis.Enabled = true
	config.RateLimit.Enabled = true
	config.Password.RequireUppercase = true
	config.Password.RequireLowercase = true
	config.Password.RequireNumber = true
	config.Password.RequireSpecial = true

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	_ = godotenv.Load()
	config.applyEnv()
	config.setDefaults()

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TODO_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("TODO_DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("TODO_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.AllowedHosts == nil {
		c.Server.AllowedHosts = []string{"localhost", "127.0.0.1"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.Timeout == 0 {
		c.Redis.Timeout = defaultStoreTimeout
	}
	if c.Auth.JWTAlgorithm == "" {
		c.Auth.JWTAlgorithm = "HS256"
	}
	if c.Auth.AccessTokenMinutes == 0 {
		c.Auth.AccessTokenMinutes = 1440
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Password.MinLength == 0 {
		c.Password.MinLength = 12
	}
	if c.RateLimit.PerMinute == 0 {
		c.RateLimit.PerMinute = 100
	}
	if c.RateLimit.LoginAttempts == 0 {
		c.RateLimit.LoginAttempts = 5
	}
	if c.RateLimit.LoginWindowMinutes == 0 {
		c.RateLimit.LoginWindowMinutes = 15
	}
	if c.RateLimit.RegistrationAttempts == 0 {
		c.RateLimit.RegistrationAttempts = 3
	}
	if c.RateLimit.RegistrationWindowHours == 0 {
		c.RateLimit.RegistrationWindowHours = 1
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:3001"}
	}
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Auth.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters", MinSecretLength))
	}
	switch strings.ToUpper(c.Auth.JWTAlgorithm) {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("auth.jwt_algorithm %q is not a supported HMAC algorithm", c.Auth.JWTAlgorithm))
	}
	if c.Auth.AccessTokenMinutes < 0 {
		errs = append(errs, errors.New("auth.access_token_expire_minutes must not be negative"))
	}
	if c.Auth.BcryptCost < bcryptMinCost || c.Auth.BcryptCost > bcryptMaxCost {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcryptMinCost, bcryptMaxCost))
	}
	if c.Password.MinLength < MinPasswordLength {
		errs = append(errs, fmt.Errorf("password.min_length must be at least %d", MinPasswordLength))
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.LoginAttempts < 0 || c.RateLimit.RegistrationAttempts < 0 {
		errs = append(errs, errors.New("rate_limit attempts must not be negative"))
	}
	if c.Database.DBName == "" {
		errs = append(errs, errors.New("database.dbname is required"))
	}

	return errors.Join(errs...)
}

// DatabaseDSN builds a lib/pq connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenMinutes) * time.Minute
}

func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Redis.Timeout) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
