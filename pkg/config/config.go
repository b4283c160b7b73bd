// Package config loads engine configuration from the environment and
// validates it before anything starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fluxofin/fluxo/pkg/models"
)

// Config holds every tunable the engine binaries share. Values come from the
// environment; zero-value fields fall back to the documented defaults.
type Config struct {
	// PersistenceURL selects the store: file://<dir> or postgres://...
	PersistenceURL string `validate:"required"`

	// EventBus selects the transport: gochannel for single-process setups,
	// kafka for distributed ones.
	EventBus string `validate:"oneof=gochannel kafka"`

	// HTTPPort is where the API listens.
	HTTPPort int `validate:"min=1,max=65535"`

	// MaxWorkflowNodes caps graph size at activation.
	MaxWorkflowNodes int `validate:"min=1"`

	// DefaultTimeoutSeconds bounds a run's wall clock when the workflow does
	// not set its own.
	DefaultTimeoutSeconds int `validate:"min=1"`

	// DefaultMaxRetries bounds action node retries when the workflow does
	// not set its own.
	DefaultMaxRetries int `validate:"min=0,max=10"`

	// OverlapPolicy decides what a trigger does when the workflow already
	// has a running execution.
	OverlapPolicy models.OverlapPolicy `validate:"oneof=reject queue"`

	// TriggerQueueDepth bounds the per-workflow FIFO under the queue policy.
	TriggerQueueDepth int `validate:"min=1"`

	// PollInterval is the schedule poller's tick.
	PollInterval time.Duration `validate:"min=1s"`

	// RetryBackoffBase is the first retry delay; each attempt doubles it.
	RetryBackoffBase time.Duration `validate:"min=1ms"`

	// QueueName, when set, enables the Redis trigger source on that list.
	QueueName string

	// RedisAddr is the Redis endpoint for the queue trigger source.
	RedisAddr string

	// OTELEnabled turns on trace export for the Kafka channel and executor.
	OTELEnabled bool
}

// Defaults returns the configuration the engine runs with when nothing is
// set in the environment.
func Defaults() Config {
	return Config{
		PersistenceURL:        "file://./data",
		EventBus:              "gochannel",
		HTTPPort:              8080,
		MaxWorkflowNodes:      100,
		DefaultTimeoutSeconds: 300,
		DefaultMaxRetries:     3,
		OverlapPolicy:         models.OverlapPolicyReject,
		TriggerQueueDepth:     16,
		PollInterval:          time.Minute,
		RetryBackoffBase:      100 * time.Millisecond,
		RedisAddr:             "localhost:6379",
	}
}

// Load reads the configuration from the environment on top of the defaults
// and validates the result.
func Load() (Config, error) {
	cfg := Defaults()

	if v := os.Getenv("FLUXO_PERSISTENCE_URL"); v != "" {
		cfg.PersistenceURL = v
	}

	if v := os.Getenv("FLUXO_EVENT_BUS"); v != "" {
		cfg.EventBus = v
	}

	if v := os.Getenv("FLUXO_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_HTTP_PORT: %w", err)
		}

		cfg.HTTPPort = port
	}

	if v := os.Getenv("FLUXO_MAX_WORKFLOW_NODES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_MAX_WORKFLOW_NODES: %w", err)
		}

		cfg.MaxWorkflowNodes = n
	}

	if v := os.Getenv("FLUXO_DEFAULT_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_DEFAULT_TIMEOUT_SECONDS: %w", err)
		}

		cfg.DefaultTimeoutSeconds = n
	}

	if v := os.Getenv("FLUXO_DEFAULT_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_DEFAULT_MAX_RETRIES: %w", err)
		}

		cfg.DefaultMaxRetries = n
	}

	if v := os.Getenv("FLUXO_OVERLAP_POLICY"); v != "" {
		cfg.OverlapPolicy = models.OverlapPolicy(v)
	}

	if v := os.Getenv("FLUXO_TRIGGER_QUEUE_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_TRIGGER_QUEUE_DEPTH: %w", err)
		}

		cfg.TriggerQueueDepth = n
	}

	if v := os.Getenv("FLUXO_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_POLL_INTERVAL: %w", err)
		}

		cfg.PollInterval = d
	}

	if v := os.Getenv("FLUXO_RETRY_BACKOFF_BASE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FLUXO_RETRY_BACKOFF_BASE: %w", err)
		}

		cfg.RetryBackoffBase = d
	}

	if v := os.Getenv("FLUXO_QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}

	if v := os.Getenv("FLUXO_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}

	if v := os.Getenv("OTEL_SDK_ENABLED"); v == "true" {
		cfg.OTELEnabled = true
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration against its constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
