package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
	SessionCookie  string
	BcryptCost     int
}

// RateLimitConfig controls the global per-IP flood gate in front of the
// router. The per-action fixed-window limits live in internal/ratelimit.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("MONGODB_DATABASE", "pollbox")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("AUTH_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("AUTH_SESSION_TTL", 10080)
	viper.SetDefault("AUTH_SESSION_COOKIE", "pollbox_session")
	viper.SetDefault("AUTH_BCRYPT_COST", 12)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 20.0)
	viper.SetDefault("RATE_LIMIT_BURST", 40)

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("AUTH_ACCESS_TOKEN_TTL")) * time.Minute,
			SessionTTL:     time.Duration(viper.GetInt("AUTH_SESSION_TTL")) * time.Minute,
			SessionCookie:  viper.GetString("AUTH_SESSION_COOKIE"),
			BcryptCost:     viper.GetInt("AUTH_BCRYPT_COST"),
		},
		RateLimit: RateLimitConfig{
			Enabled: viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   viper.GetInt("RATE_LIMIT_BURST"),
		},
	}

	// Basic validation
	if cfg.Auth.JWTSecret == "" {
		log.Println("WARNING: AUTH_JWT_SECRET is not set; set a secure value in production")
	}

	return cfg, nil
}
