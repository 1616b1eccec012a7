package config

import (
	"encoding/json"
	"os"
	"strconv"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Auth      AuthConfig      `json:"auth"`
	Upstream  UpstreamConfig  `json:"upstream"`
	Pool      PoolConfig      `json:"pool"`
	Quota     QuotaConfig     `json:"quota"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Usage     UsageConfig     `json:"usage"`
	Billing   BillingConfig   `json:"billing"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type DatabaseConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret      string `json:"jwt_secret"`
	JWTExpiryHours int    `json:"jwt_expiry_hours"`
}

type UpstreamConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type PoolConfig struct {
	// RequestCeiling is the per-credential daily request cap.
	RequestCeiling int `json:"request_ceiling"`
}

type QuotaConfig struct {
	FreeTierLimit      int `json:"free_tier_limit"`
	FreeTierWindowDays int `json:"free_tier_window_days"`
}

type RateLimitConfig struct {
	Algorithm         string `json:"algorithm"` // "fixed_window" "token_bucket" "sliding_window"
	FreeTierPerMinute int    `json:"free_tier_per_minute"`
}

type UsageConfig struct {
	BufferSize int `json:"buffer_size"`
}

type BillingConfig struct {
	WebhookSecret string `json:"webhook_secret"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

// Secrets and deploy-specific values come from the environment when set.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("BILLING_WEBHOOK_SECRET"); v != "" {
		c.Billing.WebhookSecret = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Auth.JWTExpiryHours <= 0 {
		c.Auth.JWTExpiryHours = 24
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		c.Upstream.TimeoutSeconds = 60
	}
	if c.Pool.RequestCeiling <= 0 {
		c.Pool.RequestCeiling = 249
	}
	if c.Quota.FreeTierLimit <= 0 {
		c.Quota.FreeTierLimit = 5
	}
	if c.Quota.FreeTierWindowDays <= 0 {
		c.Quota.FreeTierWindowDays = 30
	}
	if c.RateLimit.Algorithm == "" {
		c.RateLimit.Algorithm = "fixed_window"
	}
	if c.RateLimit.FreeTierPerMinute <= 0 {
		c.RateLimit.FreeTierPerMinute = 10
	}
	if c.Usage.BufferSize <= 0 {
		c.Usage.BufferSize = 1000
	}
}
