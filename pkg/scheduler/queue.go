package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fluxofin/fluxo/pkg/models"
)

// queueMessage is the wire shape external systems push onto the Redis list,
// e.g. a bank import pipeline announcing new transactions.
type queueMessage struct {
	WorkflowID string         `json:"workflow_id"`
	Input      models.Payload `json:"input,omitempty"`
}

// QueueSource consumes external trigger messages from a Redis list and feeds
// them into the trigger path as event triggers.
type QueueSource struct {
	logger  *slog.Logger
	client  redis.UniversalClient
	queue   string
	trigger *TriggerService

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewQueueSource(logger *slog.Logger, opts *redis.Options, queue string, trigger *TriggerService) (*QueueSource, error) {
	if queue == "" {
		return nil, errors.New("queue source requires a queue name")
	}

	return &QueueSource{
		logger:  logger.With("module", "queue_source", "queue", queue),
		client:  redis.NewClient(opts),
		queue:   queue,
		trigger: trigger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start verifies connectivity and begins consuming.
func (q *QueueSource) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := q.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	q.logger.InfoContext(ctx, "Starting queue source")

	q.wg.Add(1)

	go q.consume(ctx)

	return nil
}

// Stop drains the consumer and closes the connection.
func (q *QueueSource) Stop(ctx context.Context) error {
	close(q.stopCh)
	q.wg.Wait()

	if err := q.client.Close(); err != nil {
		q.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
	}

	q.logger.InfoContext(ctx, "Queue source stopped")

	return nil
}

func (q *QueueSource) consume(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		default:
			if err := q.processMessage(ctx); err != nil {
				q.logger.ErrorContext(ctx, "Error processing queue message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (q *QueueSource) processMessage(ctx context.Context) error {
	result, err := q.client.BLPop(ctx, 1*time.Second, q.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var message queueMessage
	if err := json.Unmarshal([]byte(result[1]), &message); err != nil {
		q.logger.WarnContext(ctx, "Dropping malformed queue message", "error", err)

		return nil
	}

	if message.WorkflowID == "" {
		q.logger.WarnContext(ctx, "Dropping queue message without workflow_id")

		return nil
	}

	details := map[string]any{"queue": q.queue}

	if _, err := q.trigger.Trigger(ctx, message.WorkflowID, models.TriggerKindEvent, details, message.Input); err != nil {
		q.logger.ErrorContext(ctx, "Failed to trigger workflow from queue",
			"workflow_id", message.WorkflowID, "error", err)
	}

	return nil
}
