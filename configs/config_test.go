package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("UPSELL_ROTATION_INTERVAL", "")

	cfg := LoadConfig()

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 8*time.Second, cfg.Upsell.RotationInterval)
	assert.Equal(t, int64(5*1024*1024), cfg.Images.MaxUploadBytes)
	assert.Equal(t, "settings-changed", cfg.Kafka.SettingsTopic)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("UPSELL_ROTATION_INTERVAL", "3s")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadConfig()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3*time.Second, cfg.Upsell.RotationInterval)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestGetEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DURATION", "soon")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, getEnvInt("X_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("X_DURATION", time.Minute))
	assert.True(t, getEnvBool("X_BOOL", true))
}
