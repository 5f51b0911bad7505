// Package config loads application configuration from environment
// variables. A .env file in the working directory is read first when
// present; real environment variables win over it.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/apparel-storefront/internal/model"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV: dev, test or prod
	Port           string // APP_PORT
	LogLevel       string // LOG_LEVEL, zerolog level name
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	// Store settings
	LowStockThreshold     int
	FreeShippingThreshold decimal.Decimal
	ShippingFlatRate      decimal.Decimal
	TaxRate               decimal.Decimal

	// Seed account created by the seed command
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration values from the environment. Missing required
// variables stop the process with a fatal log line.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		LowStockThreshold:     envInt("LOW_STOCK_THRESHOLD", 5),
		FreeShippingThreshold: envDecimal("FREE_SHIPPING_THRESHOLD", "100"),
		ShippingFlatRate:      envDecimal("SHIPPING_FLAT_RATE", "9.99"),
		TaxRate:               envDecimal("TAX_RATE", "0"),

		AdminEmail:    envStr("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// Pricing returns the checkout pricing rules.
func (c Config) Pricing() model.Pricing {
	return model.Pricing{
		FreeShippingThreshold: c.FreeShippingThreshold,
		ShippingFlatRate:      c.ShippingFlatRate,
		TaxRate:               c.TaxRate,
	}
}

// must retrieves the value of a required environment variable.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatal().Str("key", key).Str("value", s).Msg("invalid int")
	}
	return n
}

func envDecimal(k, d string) decimal.Decimal {
	v := envStr(k, d)
	n, err := decimal.NewFromString(v)
	if err != nil {
		log.Fatal().Str("key", k).Str("value", v).Msg("invalid decimal")
	}
	return n
}
