package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/fluxofin/fluxo/pkg/channels/gochannel"
	"github.com/fluxofin/fluxo/pkg/channels/kafka"
	"github.com/fluxofin/fluxo/pkg/eventbus"
)

// NewEventBus builds the event bus for a binary. The gochannel provider only
// works when everything runs in one process; kafka is for split deployments.
func NewEventBus(provider string, logger *slog.Logger, serviceName string) (eventbus.EventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel":
		publisher, subscriber, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gochannel: %w", err)
		}

		return eventbus.NewWatermillEventBus(publisher, subscriber), nil
	case "kafka":
		publisher, subscriber, err := kafka.CreateChannel(watermillLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(publisher, subscriber), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q (supported: gochannel, kafka)", provider)
	}
}
