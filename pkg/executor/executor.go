package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fluxofin/fluxo/pkg/graph"
	"github.com/fluxofin/fluxo/pkg/models"
	"github.com/fluxofin/fluxo/pkg/otelhelper"
	"github.com/fluxofin/fluxo/pkg/protocol"
	"github.com/fluxofin/fluxo/pkg/registry"
)

// DefaultBackoffBase is the first retry delay; each further attempt doubles it.
const DefaultBackoffBase = 100 * time.Millisecond

// Recorder receives run progress as it happens. Node outcomes are recorded
// one by one so a crash mid-run leaves a partial, inspectable trace.
type Recorder interface {
	RunStarted(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) error
	NodeFinished(ctx context.Context, execution *models.WorkflowExecution, nodeExecution *models.NodeExecution) error
	RunFinished(ctx context.Context, execution *models.WorkflowExecution) error
}

// Executor walks a workflow graph edge by edge. A node runs once every
// inbound edge has resolved; independent branches run concurrently.
type Executor struct {
	logger      *slog.Logger
	registry    *registry.Registry
	recorder    Recorder
	tracer      trace.Tracer
	backoffBase time.Duration
}

func NewExecutor(logger *slog.Logger, reg *registry.Registry, recorder Recorder, tracer trace.Tracer, backoffBase time.Duration) *Executor {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("executor")
	}

	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}

	return &Executor{
		logger:      logger,
		registry:    reg,
		recorder:    recorder,
		tracer:      tracer,
		backoffBase: backoffBase,
	}
}

// edgeState is the resolution of one graph edge during a run.
type edgeState uint8

const (
	edgePending edgeState = iota
	edgeFired             // upstream succeeded and chose this edge
	edgeSkipped           // upstream succeeded but routed elsewhere
	edgeFailed            // upstream failed or was cancelled
)

// nodeOutcome is what a node goroutine reports back to the dispatch loop.
type nodeOutcome struct {
	idx         int
	status      models.NodeStatus
	result      *protocol.Result
	err         error
	attempts    int
	startedAt   time.Time
	completedAt time.Time
}

// joiner is the view the dispatcher needs of a join barrier node.
type joiner interface {
	protocol.JoinNode
	ToleratePartial() bool
}

// run holds the mutable state of one execution. All fields are owned by the
// dispatch loop goroutine; node goroutines communicate only via results.
type run struct {
	executor  *Executor
	logger    *slog.Logger
	workflow  *models.Workflow
	execution *models.WorkflowExecution
	graph     *graph.Graph
	instances []protocol.Node
	inbound   [][]edgeState
	payloads  [][]models.Payload
	started   []bool
	ec        protocol.ExecutionContext
	results   chan nodeOutcome
	recordCtx context.Context
	inFlight  int
	firstErr  error
	outputs   models.Payload
}

// Run executes the workflow against the already-claimed execution record and
// returns it in a terminal state. The returned error is the run-level
// failure, nil when the run completed.
func (e *Executor) Run(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) (*models.WorkflowExecution, error) {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
	defer span.End()

	// Recorder writes must survive the run deadline.
	recordCtx := context.WithoutCancel(ctx)

	if workflow.Version != execution.WorkflowVersion {
		return e.abort(recordCtx, logger, execution, fmt.Errorf("%w: workflow is at version %d, execution pinned version %d",
			ErrWorkflowVersionMismatch, workflow.Version, execution.WorkflowVersion))
	}

	g, err := graph.New(workflow)
	if err != nil {
		return e.abort(recordCtx, logger, execution, fmt.Errorf("graph construction failed: %w", err))
	}

	instances := make([]protocol.Node, g.Len())

	for _, workflowNode := range workflow.Nodes {
		idx, _ := g.Index(workflowNode.ID)

		instance, err := e.registry.Create(ctx, workflowNode)
		if err != nil {
			return e.abort(recordCtx, logger, execution, fmt.Errorf("node %s construction failed: %w", workflowNode.ID, err))
		}

		instances[idx] = instance
	}

	if execution.NodeExecutions == nil {
		execution.NodeExecutions = make(map[string]*models.NodeExecution)
	}

	if err := e.recorder.RunStarted(recordCtx, workflow, execution); err != nil {
		logger.WarnContext(ctx, "Failed to record run start", "error", err)
	}

	runCtx := ctx
	if workflow.TimeoutSeconds > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, workflow.Timeout())
		defer cancel()
	}

	r := &run{
		executor:  e,
		logger:    logger,
		workflow:  workflow,
		execution: execution,
		graph:     g,
		instances: instances,
		inbound:   make([][]edgeState, g.Len()),
		payloads:  make([][]models.Payload, g.Len()),
		started:   make([]bool, g.Len()),
		ec: protocol.ExecutionContext{
			ExecutionID: execution.ID,
			WorkflowID:  workflow.ID,
			Variables:   workflow.Variables,
		},
		results:   make(chan nodeOutcome),
		recordCtx: recordCtx,
		outputs:   models.Payload{},
	}

	for i := range g.Len() {
		inEdges := len(g.NodeAt(i).In)
		r.inbound[i] = make([]edgeState, inEdges)
		r.payloads[i] = make([]models.Payload, inEdges)
	}

	logger.InfoContext(ctx, "Starting workflow execution", "nodes", g.Len())

	// Seed every node with no inbound edges, then drain until the graph has
	// nothing left in flight.
	for i := range g.Len() {
		if len(g.NodeAt(i).In) == 0 {
			r.advance(runCtx, i)
		}
	}

	for r.inFlight > 0 {
		outcome := <-r.results
		r.handle(runCtx, outcome)
	}

	return e.finish(ctx, runCtx, logger, r)
}

// abort fails the run before any node was dispatched.
func (e *Executor) abort(recordCtx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, err error) (*models.WorkflowExecution, error) {
	logger.Error("Aborting execution", "error", err)
	execution.Finish(models.ExecutionStatusFailed, err.Error(), time.Now().UTC())

	if recordErr := e.recorder.RunFinished(recordCtx, execution); recordErr != nil {
		logger.Warn("Failed to record run finish", "error", recordErr)
	}

	return execution, err
}

// finish moves the execution to its terminal status once the graph drained.
func (e *Executor) finish(ctx, runCtx context.Context, logger *slog.Logger, r *run) (*models.WorkflowExecution, error) {
	execution := r.execution
	now := time.Now().UTC()

	var runErr error

	switch {
	case ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		runErr = fmt.Errorf("%w after %s", ErrExecutionTimeout, r.workflow.Timeout())
		execution.Finish(models.ExecutionStatusFailed, runErr.Error(), now)
	case ctx.Err() != nil:
		runErr = ctx.Err()
		execution.Finish(models.ExecutionStatusCancelled, "execution cancelled", now)
	case r.firstErr != nil:
		runErr = r.firstErr
		execution.Finish(models.ExecutionStatusFailed, r.firstErr.Error(), now)
	default:
		execution.OutputData = r.outputs
		execution.Finish(models.ExecutionStatusCompleted, "", now)
	}

	if err := e.recorder.RunFinished(r.recordCtx, execution); err != nil {
		logger.Warn("Failed to record run finish", "error", err)
	}

	logger.Info("Workflow execution finished",
		"status", execution.Status,
		"duration_ms", execution.TotalDurationMs,
		"nodes_executed", len(execution.NodeExecutions))

	return execution, runErr
}

// handle folds one node outcome into the run state and advances successors.
func (r *run) handle(runCtx context.Context, outcome nodeOutcome) {
	r.inFlight--

	node := r.graph.NodeAt(outcome.idx)

	nodeExecution := &models.NodeExecution{
		NodeID:      node.ID,
		Status:      outcome.status,
		StartedAt:   &outcome.startedAt,
		CompletedAt: &outcome.completedAt,
		Attempts:    outcome.attempts,
	}

	if outcome.err != nil {
		nodeExecution.ErrorMessage = outcome.err.Error()
	}

	if outcome.result != nil {
		nodeExecution.Output = outcome.result.Output
	}

	r.record(nodeExecution)

	switch outcome.status {
	case models.NodeStatusSucceeded:
		r.propagateSuccess(runCtx, outcome)
	case models.NodeStatusCancelled:
		r.signalAll(runCtx, outcome.idx, edgeFailed, nil)
	default: // failed
		if r.firstErr == nil {
			r.firstErr = &NodeError{
				ExecutionID: r.execution.ID,
				NodeID:      node.ID,
				Attempts:    outcome.attempts,
				Err:         outcome.err,
			}
		}

		r.signalAll(runCtx, outcome.idx, edgeFailed, nil)
	}
}

func (r *run) propagateSuccess(runCtx context.Context, outcome nodeOutcome) {
	node := r.graph.NodeAt(outcome.idx)

	// A node may legally succeed with no result at all.
	var output models.Payload
	if outcome.result != nil {
		output = outcome.result.Output
	}

	if node.Kind == models.NodeKindDestination {
		r.outputs[node.ID] = output

		return
	}

	if node.Kind == models.NodeKindCondition && outcome.result != nil && outcome.result.Branch != nil {
		// First outbound edge is the true branch, second the false branch.
		chosen := 0
		if !*outcome.result.Branch {
			chosen = 1
		}

		// A false branch with a single outbound edge routes nowhere; every
		// edge is skipped.
		for j, succ := range node.Out {
			if j == chosen {
				r.signal(runCtx, succ, outcome.idx, edgeFired, output)
			} else {
				r.signal(runCtx, succ, outcome.idx, edgeSkipped, nil)
			}
		}

		return
	}

	r.signalAll(runCtx, outcome.idx, edgeFired, output)
}

// signalAll resolves every outbound edge of a node with the same state.
func (r *run) signalAll(runCtx context.Context, from int, state edgeState, payload models.Payload) {
	for _, succ := range r.graph.NodeAt(from).Out {
		r.signal(runCtx, succ, from, state, payload)
	}
}

// signal resolves the edge from -> to and advances the target if that was its
// last pending edge.
func (r *run) signal(runCtx context.Context, to, from int, state edgeState, payload models.Payload) {
	in := r.graph.NodeAt(to).In
	for slot, pred := range in {
		if pred == from && r.inbound[to][slot] == edgePending {
			r.inbound[to][slot] = state
			if state == edgeFired {
				r.payloads[to][slot] = payload
			}

			break
		}
	}

	r.advance(runCtx, to)
}

// advance dispatches the node once all its inbound edges have resolved.
// Skip and failure propagation happens here, synchronously, so join barriers
// downstream of an untaken or broken branch still resolve.
func (r *run) advance(runCtx context.Context, idx int) {
	if r.started[idx] {
		return
	}

	for _, state := range r.inbound[idx] {
		if state == edgePending {
			return
		}
	}

	r.started[idx] = true

	// The run is shutting down; leave the node untouched.
	if runCtx.Err() != nil {
		return
	}

	var fired, skipped, failed int

	for _, state := range r.inbound[idx] {
		switch state {
		case edgeFired:
			fired++
		case edgeSkipped:
			skipped++
		case edgeFailed:
			failed++
		}
	}

	if join, ok := r.instances[idx].(joiner); ok && len(r.inbound[idx]) > 0 {
		r.advanceJoin(runCtx, idx, join, fired, skipped, failed)

		return
	}

	switch {
	case fired > 0 || len(r.inbound[idx]) == 0:
		// Reachable through at least one taken path; a skipped or failed
		// sibling edge does not veto it. Only nodes exclusively behind an
		// untaken branch are skipped.
		r.dispatch(runCtx, idx, r.gatherInput(idx), nil)
	case failed > 0:
		// Downstream of a failure only: no trace entry, the failure travels on.
		r.signalAll(runCtx, idx, edgeFailed, nil)
	default:
		r.markSkipped(runCtx, idx)
	}
}

// advanceJoin applies the merge barrier rules: every input must have fired
// unless the node tolerates partial input, in which case one success is
// enough.
func (r *run) advanceJoin(runCtx context.Context, idx int, join joiner, fired, skipped, failed int) {
	switch {
	case failed == 0 && skipped == 0:
		r.dispatch(runCtx, idx, nil, r.gatherJoinInputs(idx))
	case join.ToleratePartial() && fired > 0:
		r.dispatch(runCtx, idx, nil, r.gatherJoinInputs(idx))
	case failed == 0 && fired == 0:
		// Every branch was routed elsewhere; nothing to join.
		r.markSkipped(runCtx, idx)
	default:
		r.failJoin(runCtx, idx, fired, skipped, failed)
	}
}

func (r *run) failJoin(runCtx context.Context, idx int, fired, skipped, failed int) {
	node := r.graph.NodeAt(idx)
	now := time.Now().UTC()
	err := fmt.Errorf("merge requires all inbound branches: %d fired, %d skipped, %d failed", fired, skipped, failed)

	r.record(&models.NodeExecution{
		NodeID:       node.ID,
		Status:       models.NodeStatusFailed,
		StartedAt:    &now,
		CompletedAt:  &now,
		ErrorMessage: err.Error(),
	})

	if r.firstErr == nil {
		r.firstErr = &NodeError{
			ExecutionID: r.execution.ID,
			NodeID:      node.ID,
			Err:         err,
		}
	}

	r.signalAll(runCtx, idx, edgeFailed, nil)
}

func (r *run) markSkipped(runCtx context.Context, idx int) {
	node := r.graph.NodeAt(idx)
	now := time.Now().UTC()

	r.record(&models.NodeExecution{
		NodeID:      node.ID,
		Status:      models.NodeStatusSkipped,
		CompletedAt: &now,
	})

	r.signalAll(runCtx, idx, edgeSkipped, nil)
}

// gatherInput unions the fired inbound payloads in declared edge order. Most
// nodes have a single inbound edge and get that payload as is.
func (r *run) gatherInput(idx int) models.Payload {
	states := r.inbound[idx]
	if len(states) == 0 {
		return r.execution.InputData.Clone()
	}

	var input models.Payload

	for slot, state := range states {
		if state != edgeFired {
			continue
		}

		if input == nil {
			input = r.payloads[idx][slot]

			continue
		}

		merged := input.Clone()
		for key, value := range r.payloads[idx][slot] {
			merged[key] = value
		}

		input = merged
	}

	if input == nil {
		input = models.Payload{}
	}

	return input
}

func (r *run) gatherJoinInputs(idx int) []protocol.BranchInput {
	in := r.graph.NodeAt(idx).In

	inputs := make([]protocol.BranchInput, 0, len(in))

	for slot, state := range r.inbound[idx] {
		if state != edgeFired {
			continue
		}

		inputs = append(inputs, protocol.BranchInput{
			SourceNodeID: r.graph.NodeAt(in[slot]).ID,
			Payload:      r.payloads[idx][slot],
		})
	}

	return inputs
}

func (r *run) dispatch(runCtx context.Context, idx int, input models.Payload, joinInputs []protocol.BranchInput) {
	r.inFlight++

	go r.executeNode(runCtx, idx, input, joinInputs)
}

// executeNode runs one node with retries and reports the outcome. Only
// action nodes are retried; their ledger operations are idempotent, so a
// replayed attempt cannot double-post.
func (r *run) executeNode(ctx context.Context, idx int, input models.Payload, joinInputs []protocol.BranchInput) {
	node := r.instances[idx]

	ctx, span := otelhelper.StartSpan(ctx, r.executor.tracer, "node.execute",
		attribute.String(otelhelper.ExecutionIDKey, r.execution.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID()),
		attribute.String(otelhelper.NodeKindKey, string(node.Kind())),
	)
	defer span.End()

	maxAttempts := 1
	if node.Kind() == models.NodeKindAction {
		maxAttempts = 1 + r.workflow.MaxRetries
	}

	startedAt := time.Now().UTC()

	var (
		result  *protocol.Result
		err     error
		attempt int
	)

	for attempt < maxAttempts {
		attempt++

		if joinInputs != nil {
			result, err = node.(protocol.JoinNode).ExecuteJoin(ctx, r.ec, joinInputs)
		} else {
			result, err = node.Execute(ctx, r.ec, input)
		}

		if err == nil || protocol.IsPermanent(err) || ctx.Err() != nil || attempt >= maxAttempts {
			break
		}

		delay := r.executor.backoffBase << (attempt - 1)

		r.logger.Warn("Node attempt failed, backing off",
			"node_id", node.ID(), "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}

		if ctx.Err() != nil {
			break
		}
	}

	outcome := nodeOutcome{
		idx:         idx,
		result:      result,
		err:         err,
		attempts:    attempt,
		startedAt:   startedAt,
		completedAt: time.Now().UTC(),
	}

	switch {
	case err == nil:
		outcome.status = models.NodeStatusSucceeded
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome.status = models.NodeStatusCancelled
	default:
		outcome.status = models.NodeStatusFailed
		otelhelper.SetError(span, err)
	}

	r.results <- outcome
}

func (r *run) record(nodeExecution *models.NodeExecution) {
	r.execution.NodeExecutions[nodeExecution.NodeID] = nodeExecution

	if err := r.executor.recorder.NodeFinished(r.recordCtx, r.execution, nodeExecution); err != nil {
		r.logger.Warn("Failed to record node outcome", "node_id", nodeExecution.NodeID, "error", err)
	}
}
