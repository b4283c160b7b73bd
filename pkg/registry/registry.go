// Package registry maps node kinds to their factories and gates node
// construction behind JSON schema validation.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeKind]protocol.NodeFactory),
	}
}

func (r *Registry) Register(factory protocol.NodeFactory) {
	r.factories[factory.Kind()] = factory
}

// Factory returns the factory for a node kind, if registered.
func (r *Registry) Factory(kind models.NodeKind) (protocol.NodeFactory, bool) {
	factory, ok := r.factories[kind]

	return factory, ok
}

// Kinds returns every registered node kind.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}

// Create validates the node's raw configuration against the factory schema
// and constructs the node instance.
func (r *Registry) Create(ctx context.Context, node *models.WorkflowNode) (protocol.Node, error) {
	factory, ok := r.factories[node.Kind]
	if !ok {
		return nil, fmt.Errorf("node kind %q not registered", node.Kind)
	}

	if err := validateSchema(factory.Schema(), node.Config); err != nil {
		return nil, fmt.Errorf("invalid config for node %s: %w", node.ID, err)
	}

	return factory.Create(ctx, node.ID, node.Config)
}

func validateSchema(schema map[string]any, config map[string]any) error {
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			messages = append(messages, resultError.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
	}

	return nil
}
