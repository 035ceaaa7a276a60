// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	Port                     string `mapstructure:"PORT"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	AllowedOrigins           string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags             string `mapstructure:"FEATURE_FLAGS"`
	Env                      string `mapstructure:"APP_ENV"`

	// Trending
	TrendingPopularityWeight    float64 `mapstructure:"TRENDING_POPULARITY_WEIGHT"`
	TrendingActivityWeight      float64 `mapstructure:"TRENDING_ACTIVITY_WEIGHT"`
	TrendingActivityWindowHours int     `mapstructure:"TRENDING_ACTIVITY_WINDOW_HOURS"`
	TrendingActivityThreshold   int64   `mapstructure:"TRENDING_ACTIVITY_THRESHOLD"`
	TrendingPopularityThreshold int64   `mapstructure:"TRENDING_POPULARITY_THRESHOLD"`

	// Timeline
	TimelineDefaultPageSize int `mapstructure:"TIMELINE_DEFAULT_PAGE_SIZE"`
	TimelineMaxPageSize     int `mapstructure:"TIMELINE_MAX_PAGE_SIZE"`
	TimelineMaxOffset       int `mapstructure:"TIMELINE_MAX_OFFSET"`
	TimelineCacheTTLSeconds int `mapstructure:"TIMELINE_CACHE_TTL_SECONDS"`

	// Tracing
	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "canopy")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("TRENDING_POPULARITY_WEIGHT", 0.3)
	viper.SetDefault("TRENDING_ACTIVITY_WEIGHT", 0.7)
	viper.SetDefault("TRENDING_ACTIVITY_WINDOW_HOURS", 168)
	viper.SetDefault("TRENDING_ACTIVITY_THRESHOLD", 10)
	viper.SetDefault("TRENDING_POPULARITY_THRESHOLD", 50)

	viper.SetDefault("TIMELINE_DEFAULT_PAGE_SIZE", 20)
	viper.SetDefault("TIMELINE_MAX_PAGE_SIZE", 100)
	viper.SetDefault("TIMELINE_MAX_OFFSET", 10000)
	viper.SetDefault("TIMELINE_CACHE_TTL_SECONDS", 120)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// ActivityWindow is the look-back period for trending activity.
func (c *Config) ActivityWindow() time.Duration {
	return time.Duration(c.TrendingActivityWindowHours) * time.Hour
}

// TimelineCacheTTL is how long anonymous trending pages stay cached.
func (c *Config) TimelineCacheTTL() time.Duration {
	return time.Duration(c.TimelineCacheTTLSeconds) * time.Second
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}
	if err := c.validateDomain(); err != nil {
		return err
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

func (c *Config) validateDomain() error {
	if c.TrendingPopularityWeight < 0 || c.TrendingActivityWeight < 0 {
		return errors.New("TRENDING_*_WEIGHT must not be negative")
	}
	if c.TrendingActivityThreshold < 0 || c.TrendingPopularityThreshold < 0 {
		return errors.New("TRENDING_*_THRESHOLD must not be negative")
	}
	if c.TrendingActivityWindowHours < 1 {
		return errors.New("TRENDING_ACTIVITY_WINDOW_HOURS must be at least 1")
	}
	if c.TimelineMaxPageSize < 1 {
		return errors.New("TIMELINE_MAX_PAGE_SIZE must be at least 1")
	}
	if c.TimelineDefaultPageSize < 1 || c.TimelineDefaultPageSize > c.TimelineMaxPageSize {
		return fmt.Errorf("TIMELINE_DEFAULT_PAGE_SIZE must be between 1 and %d", c.TimelineMaxPageSize)
	}
	if c.TimelineMaxOffset < c.TimelineMaxPageSize {
		return fmt.Errorf("TIMELINE_MAX_OFFSET must be at least %d", c.TimelineMaxPageSize)
	}
	if c.TimelineCacheTTLSeconds < 0 {
		return errors.New("TIMELINE_CACHE_TTL_SECONDS must not be negative")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}
	return nil
}
