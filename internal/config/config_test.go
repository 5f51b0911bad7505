package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "shop", "DB_HOST": "localhost",
		"DB_PORT": "3306", "DB_NAME": "shop", "JWT_SECRET": "s3cret",
		"ACCESS_TOKEN_TTL_MIN": "15", "REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "4",
		"TAX_RATE": "0.2",
	} {
		t.Setenv(k, v)
	}
	c := Load()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 15, c.AccessTTLMin)
	assert.Equal(t, 5, c.LowStockThreshold)
	assert.Equal(t, "0.2", c.Pricing().TaxRate.String())
	assert.Equal(t, "9.99", c.ShippingFlatRate.String())
	assert.False(t, c.IsProd())
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
	assert.InDelta(t, 0.5, c.PerSecond(), 1e-9)
}

func TestEventsAndCacheDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_METHODS", "get, head")
	e := LoadEventsConfig()
	assert.Equal(t, "none", e.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, e.KafkaBrokers)
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.Equal(t, time.Minute, c.TTL)
}
