package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BUSINESS_TIMEZONE", "UTC")
	t.Setenv("OPERATOR_EMAIL", "")
	t.Setenv("OPERATOR_PASSWORD", "")
}

func TestFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 7*time.Hour, cfg.Schedule.OpeningTime)
	assert.Equal(t, 22*time.Hour, cfg.Schedule.ClosingTime)
	assert.Equal(t, CancelModeRetain, cfg.Schedule.CancelMode)
	assert.Len(t, cfg.Schedule.AllowedDurations, 8)
	assert.Equal(t, 30*time.Minute, cfg.Schedule.AllowedDurations[0])
	assert.Equal(t, 480*time.Minute, cfg.Schedule.AllowedDurations[7])
}

func TestFromEnvPostgresRequiresDSN(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "DB_DSN")
}

func TestFromEnvRejectsMemoryStoreInProduction(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvInvalidWindow(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPENING_TIME", "22:00")
	t.Setenv("CLOSING_TIME", "07:00")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "OPENING_TIME")
}

func TestFromEnvInvalidCancelMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CANCEL_MODE", "archive")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "CANCEL_MODE")
}

func TestFromEnvOperatorPair(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPERATOR_EMAIL", "ops@example.com")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "OPERATOR_PASSWORD")

	t.Setenv("OPERATOR_PASSWORD", "change-me-now")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cfg.OperatorEmail)
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Hour+30*time.Minute, d)

	d, err = ParseClock("21:59:30")
	require.NoError(t, err)
	assert.Equal(t, 21*time.Hour+59*time.Minute+30*time.Second, d)

	d, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	_, err = ParseClock("7am")
	assert.Error(t, err)
}

func TestParseMinutesList(t *testing.T) {
	ds, err := ParseMinutesList("15, 45 ,90")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{15 * time.Minute, 45 * time.Minute, 90 * time.Minute}, ds)

	_, err = ParseMinutesList("")
	assert.Error(t, err)

	_, err = ParseMinutesList("30,-5")
	assert.Error(t, err)

	_, err = ParseMinutesList("30,abc")
	assert.Error(t, err)
}
