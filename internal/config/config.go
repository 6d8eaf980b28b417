package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Addr           string
	DatabaseURL    string
	SortCode       string
	CompanyName    string
	CreditAgencies int
	CreditTimeout  time.Duration
}

// Load reads configuration from the environment, after loading an optional
// .env file for local development. Missing values fall back to defaults
// suitable for a single-branch sandbox.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:           getenv("BANK_ADDR", ":8080"),
		DatabaseURL:    getenv("DATABASE_URL", "banking.db"),
		SortCode:       getenv("BANK_SORT_CODE", "987654"),
		CompanyName:    getenv("BANK_COMPANY_NAME", "Retail Bank Sandbox"),
		CreditAgencies: getenvInt("CREDIT_AGENCIES", 5),
	}

	timeout, err := time.ParseDuration(getenv("CREDIT_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CREDIT_TIMEOUT: %w", err)
	}
	cfg.CreditTimeout = timeout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL must not be empty")
	}
	if len(c.SortCode) != 6 {
		return fmt.Errorf("BANK_SORT_CODE must be 6 digits, got %q", c.SortCode)
	}
	for _, r := range c.SortCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("BANK_SORT_CODE must be 6 digits, got %q", c.SortCode)
		}
	}
	if c.CreditAgencies < 1 {
		return fmt.Errorf("CREDIT_AGENCIES must be at least 1, got %d", c.CreditAgencies)
	}
	if c.CreditTimeout <= 0 {
		return errors.New("CREDIT_TIMEOUT must be positive")
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
