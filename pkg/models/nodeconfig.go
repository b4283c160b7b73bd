package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// NodeConfig is the tagged union of per-kind node configuration. Each kind
// decodes into its own strongly typed variant, validated at construction
// rather than at use.
type NodeConfig interface {
	Kind() NodeKind
	Validate() error
}

// Comparison operators accepted by condition nodes.
const (
	OperatorEq       = "eq"
	OperatorNe       = "ne"
	OperatorGt       = "gt"
	OperatorGte      = "gte"
	OperatorLt       = "lt"
	OperatorLte      = "lte"
	OperatorContains = "contains"
	OperatorExists   = "exists"
)

var validOperators = map[string]bool{
	OperatorEq:       true,
	OperatorNe:       true,
	OperatorGt:       true,
	OperatorGte:      true,
	OperatorLt:       true,
	OperatorLte:      true,
	OperatorContains: true,
	OperatorExists:   true,
}

// Ledger operations performed by action nodes.
const (
	OperationCreateTransaction = "create_transaction"
	OperationTransfer          = "transfer"
)

// SourceConfig selects the transactions that seed the run payload.
type SourceConfig struct {
	EntityID       string `json:"entity_id"`
	AccountID      string `json:"account_id"`
	Category       string `json:"category,omitempty"`
	MinAmountCents int64  `json:"min_amount_cents,omitempty"`
	MaxAmountCents int64  `json:"max_amount_cents,omitempty"`
	LookbackDays   int    `json:"lookback_days,omitempty"`
}

func (c SourceConfig) Kind() NodeKind { return NodeKindSource }

func (c SourceConfig) Validate() error {
	if c.EntityID == "" {
		return errors.New("source node requires entity_id")
	}

	if c.MinAmountCents != 0 && c.MaxAmountCents != 0 && c.MinAmountCents > c.MaxAmountCents {
		return errors.New("source node min_amount_cents exceeds max_amount_cents")
	}

	if c.LookbackDays < 0 {
		return errors.New("source node lookback_days must not be negative")
	}

	return nil
}

// DestinationConfig labels the terminal node that records the run output.
type DestinationConfig struct {
	Label string `json:"label,omitempty"`
}

func (c DestinationConfig) Kind() NodeKind  { return NodeKindDestination }
func (c DestinationConfig) Validate() error { return nil }

// ConditionConfig is the predicate evaluated against the current payload.
// A true result routes to the node's first outbound edge, false to the second.
type ConditionConfig struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

func (c ConditionConfig) Kind() NodeKind { return NodeKindCondition }

func (c ConditionConfig) Validate() error {
	if c.Field == "" {
		return errors.New("condition node requires field")
	}

	if !validOperators[c.Operator] {
		return fmt.Errorf("condition node has unknown operator %q", c.Operator)
	}

	if c.Operator != OperatorExists && c.Value == nil {
		return fmt.Errorf("condition node operator %q requires a value", c.Operator)
	}

	return nil
}

// ActionConfig describes the concrete financial operation an action node
// performs against the ledger.
type ActionConfig struct {
	Operation    string `json:"operation"`
	EntityID     string `json:"entity_id,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	FromEntityID string `json:"from_entity_id,omitempty"`
	ToEntityID   string `json:"to_entity_id,omitempty"`
	FromAccount  string `json:"from_account_id,omitempty"`
	ToAccount    string `json:"to_account_id,omitempty"`
	AmountCents  int64  `json:"amount_cents"`
	TransferType string `json:"transfer_type,omitempty"`
	Category     string `json:"category,omitempty"`
	Description  string `json:"description"`
}

func (c ActionConfig) Kind() NodeKind { return NodeKindAction }

func (c ActionConfig) Validate() error {
	if c.AmountCents <= 0 {
		return errors.New("action node requires a positive amount_cents")
	}

	if c.Description == "" {
		return errors.New("action node requires a description")
	}

	switch c.Operation {
	case OperationCreateTransaction:
		if c.EntityID == "" || c.AccountID == "" {
			return errors.New("create_transaction action requires entity_id and account_id")
		}
	case OperationTransfer:
		if c.FromEntityID == "" || c.ToEntityID == "" {
			return errors.New("transfer action requires from_entity_id and to_entity_id")
		}

		if c.FromAccount == "" || c.ToAccount == "" {
			return errors.New("transfer action requires from_account_id and to_account_id")
		}

		if !ValidTransferType(InterEntityTransferType(c.TransferType)) {
			return fmt.Errorf("transfer action has unknown transfer_type %q", c.TransferType)
		}
	default:
		return fmt.Errorf("action node has unknown operation %q", c.Operation)
	}

	return nil
}

// ScheduleConfig anchors an imported template's schedule trigger. The cron
// expression is informational on the node; the workflow's trigger descriptor
// is what the scheduler actually polls.
type ScheduleConfig struct {
	Cron string `json:"cron,omitempty"`
}

func (c ScheduleConfig) Kind() NodeKind { return NodeKindSchedule }

func (c ScheduleConfig) Validate() error {
	if c.Cron == "" {
		return nil
	}

	if _, err := cron.ParseStandard(c.Cron); err != nil {
		return fmt.Errorf("schedule node has invalid cron expression: %w", err)
	}

	return nil
}

// SplitConfig carries no options; a split always copies the payload to every
// outbound edge.
type SplitConfig struct{}

func (c SplitConfig) Kind() NodeKind  { return NodeKindSplit }
func (c SplitConfig) Validate() error { return nil }

// MergeConfig controls the join barrier. By default the merge fails when any
// inbound branch failed or was skipped; ToleratePartial executes with at
// least one successful input instead.
type MergeConfig struct {
	ToleratePartial bool `json:"tolerate_partial,omitempty"`
}

func (c MergeConfig) Kind() NodeKind  { return NodeKindMerge }
func (c MergeConfig) Validate() error { return nil }

// DecodeNodeConfig decodes a raw configuration mapping into the typed variant
// for the given node kind and validates it.
func DecodeNodeConfig(kind NodeKind, raw map[string]any) (NodeConfig, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode node config: %w", err)
	}

	var config NodeConfig

	switch kind {
	case NodeKindSource:
		config, err = decodeInto[SourceConfig](data)
	case NodeKindDestination:
		config, err = decodeInto[DestinationConfig](data)
	case NodeKindCondition:
		config, err = decodeInto[ConditionConfig](data)
	case NodeKindAction:
		config, err = decodeInto[ActionConfig](data)
	case NodeKindSchedule:
		config, err = decodeInto[ScheduleConfig](data)
	case NodeKindSplit:
		config, err = decodeInto[SplitConfig](data)
	case NodeKindMerge:
		config, err = decodeInto[MergeConfig](data)
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s node config: %w", kind, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func decodeInto[T NodeConfig](data []byte) (NodeConfig, error) {
	var config T
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return config, nil
}
