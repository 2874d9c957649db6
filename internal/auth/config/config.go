package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds all configuration for the auth module.
type Config struct {
	// DatabaseName is the MongoDB database holding users and organizations.
	DatabaseName string `env:"AUTH_DATABASE_NAME" envDefault:"office_auth"`

	JWTSecretKey   string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"office-dashboard"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"12h"`

	CookieName     string `env:"COOKIE_NAME" envDefault:"office_token"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"`

	// LoginAttemptsPerMinute bounds login/register calls per client IP.
	LoginAttemptsPerMinute int `env:"AUTH_ATTEMPTS_PER_MINUTE" envDefault:"10"`
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load auth configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the cookie settings and checks required values.
func (c *Config) Validate() error {
	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		c.CookieSameSite = "Lax"
	case "strict":
		c.CookieSameSite = "Strict"
	case "none":
		c.CookieSameSite = "None"
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}
	if c.CookieName == "" {
		c.CookieName = "office_token"
	}
	if c.LoginAttemptsPerMinute <= 0 {
		c.LoginAttemptsPerMinute = 10
	}
	return nil
}
