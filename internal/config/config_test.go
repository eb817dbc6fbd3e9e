package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SUPERGROUP_ID", "")
	t.Setenv("SCHEDULER_INTERVAL", "")
	t.Setenv("HTTP_ADDR", ":8080")

	cfg := LoadConfig()

	assert.Equal(t, int64(0), cfg.SupergroupID)
	assert.Equal(t, 60*time.Second, cfg.SchedulerInterval)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.MetricsAllowedCIDRs)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SUPERGROUP_ID", "-1001234567890")
	t.Setenv("SCHEDULER_INTERVAL", "15s")
	t.Setenv("LOG_PRODUCTION", "true")
	t.Setenv("METRICS_ALLOWED_CIDRS", "10.0.0.0/8, 127.0.0.1/32 ,")

	cfg := LoadConfig()

	assert.Equal(t, int64(-1001234567890), cfg.SupergroupID)
	assert.Equal(t, 15*time.Second, cfg.SchedulerInterval)
	assert.True(t, cfg.LogProduction)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1/32"}, cfg.MetricsAllowedCIDRs)
}

func TestNonPositiveIntervalFallsBack(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "-5s")
	assert.Equal(t, 60*time.Second, LoadConfig().SchedulerInterval)
}
