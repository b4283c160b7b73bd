package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxofin/fluxo/pkg/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file://./data", cfg.PersistenceURL)
	assert.Equal(t, "gochannel", cfg.EventBus)
	assert.Equal(t, 100, cfg.MaxWorkflowNodes)
	assert.Equal(t, 300, cfg.DefaultTimeoutSeconds)
	assert.Equal(t, 3, cfg.DefaultMaxRetries)
	assert.Equal(t, models.OverlapPolicyReject, cfg.OverlapPolicy)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoffBase)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("FLUXO_PERSISTENCE_URL", "postgres://localhost/fluxo")
	t.Setenv("FLUXO_EVENT_BUS", "kafka")
	t.Setenv("FLUXO_OVERLAP_POLICY", "queue")
	t.Setenv("FLUXO_TRIGGER_QUEUE_DEPTH", "4")
	t.Setenv("FLUXO_POLL_INTERVAL", "30s")
	t.Setenv("FLUXO_DEFAULT_MAX_RETRIES", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/fluxo", cfg.PersistenceURL)
	assert.Equal(t, "kafka", cfg.EventBus)
	assert.Equal(t, models.OverlapPolicyQueue, cfg.OverlapPolicy)
	assert.Equal(t, 4, cfg.TriggerQueueDepth)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5, cfg.DefaultMaxRetries)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("FLUXO_EVENT_BUS", "rabbitmq")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("FLUXO_HTTP_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_RetriesCeiling(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultMaxRetries = 99

	require.Error(t, cfg.Validate())
}
