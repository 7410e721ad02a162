// Package config loads application settings from files and the environment.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config carries every runtime setting. Values come from config.yml, an
// APP_ENV profile overlay, and environment variables, in that order of
// precedence (later wins).
type Config struct {
	Port           string  `mapstructure:"PORT"`
	JWTSecret      string  `mapstructure:"JWT_SECRET"`
	JWTIssuer      string  `mapstructure:"JWT_ISSUER"`
	JWTAudience    string  `mapstructure:"JWT_AUDIENCE"`
	DBHost         string  `mapstructure:"DB_HOST"`
	DBPort         string  `mapstructure:"DB_PORT"`
	DBUser         string  `mapstructure:"DB_USER"`
	DBPassword     string  `mapstructure:"DB_PASSWORD"`
	DBName         string  `mapstructure:"DB_NAME"`
	DBSSLMode      string  `mapstructure:"DB_SSLMODE"`
	RedisURL       string  `mapstructure:"REDIS_URL"`
	AllowedOrigins string  `mapstructure:"ALLOWED_ORIGINS"`
	Env            string  `mapstructure:"APP_ENV"`
	TracingEnabled bool    `mapstructure:"TRACING_ENABLED"`
	TracingExport  string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint   string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSample  float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

func setDefaults() {
	viper.SetDefault("PORT", "8460")
	viper.SetDefault("JWT_SECRET", "your-secret-key-change-in-production")
	viper.SetDefault("JWT_ISSUER", "discussify-api")
	viper.SetDefault("JWT_AUDIENCE", "discussify-client")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "discussify")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 0.1)
}

// LoadConfig reads, overlays, and validates the configuration.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars plus defaults are enough to boot
	// in development.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}
	if env != "development" {
		// Non-development profiles must ship an explicit overlay so staging
		// and production never run on development defaults by accident.
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("profile overlay config.%s.yml: %w", env, err)
		}
		log.Printf("Applied configuration overlay config.%s.yml", env)
	}

	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the app is running under a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate rejects configurations that cannot work and refuses known-insecure
// values under a production profile.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if !c.IsProduction() {
		if len(c.JWTSecret) < 32 {
			log.Println("warning: JWT_SECRET is under 32 characters; use a longer secret outside local development")
		}
		return nil
	}

	if c.JWTSecret == "your-secret-key-change-in-production" {
		return errors.New("JWT_SECRET still has its default value")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DBPassword == "password" || c.DBPassword == "" {
		return errors.New("DB_PASSWORD must be set to a non-default value in production")
	}
	if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
		log.Println("warning: database SSL is disabled in production")
	}
	if c.AllowedOrigins == "*" {
		log.Println("warning: ALLOWED_ORIGINS is a wildcard in production")
	}
	return nil
}
