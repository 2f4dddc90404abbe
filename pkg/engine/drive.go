package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowforge/engine/internal/logging"
	"github.com/flowforge/engine/pkg/assembler"
	"github.com/flowforge/engine/pkg/concurrency"
	"github.com/flowforge/engine/pkg/normalize"
	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/scheduler"
	"github.com/flowforge/engine/pkg/workflow"
)

// nodeCompletion is sent on the drive loop's result channel when a
// dispatched node finishes, fails, or observes cancellation.
type nodeCompletion struct {
	nodeID   string
	output   interface{}
	err      *workflow.NodeError
	took     time.Duration
	skipPath map[string]bool // outgoing handles the condition node did NOT take
}

// drive runs the ready-node loop described in SPEC_FULL.md / §4.5-§4.6:
// repeatedly compute readiness, dispatch newly-ready nodes up to
// maxInFlight concurrently, and apply completions to the run's state
// until every node reaches a terminal status or cancellation is observed.
func (e *Engine) drive(ctx context.Context, graph *workflow.Graph, r *run, runInputs workflow.Inputs, maxInFlight int, opts Options, order []string) workflow.Stats {
	limiter := concurrency.NewLimiter(maxInFlight)
	skippedEdges := make(map[workflow.Edge]bool)
	results := make(chan nodeCompletion, len(graph.Nodes)+1)

	inFlight := 0
	dispatched := make(map[string]bool)
	stats := workflow.Stats{}
	cancelled := false

	applySkips := func(skips map[string]scheduler.SkipReason) {
		for id, reason := range skips {
			r.mu.Lock()
			r.status[id] = workflow.StatusSkipped
			kind := workflow.ErrUpstreamFailed
			if reason == scheduler.SkipConditionSkipped {
				kind = workflow.ErrConditionSkipped
			}
			r.errors[id] = &workflow.NodeError{Kind: kind, Message: string(reason)}
			r.mu.Unlock()
		}
	}

	dispatch := func(nodeID string) {
		dispatched[nodeID] = true
		inFlight++
		r.mu.Lock()
		r.status[nodeID] = workflow.StatusRunning
		r.mu.Unlock()

		node, _ := graph.NodeByID(nodeID)
		go func() {
			if err := limiter.Acquire(ctx); err != nil {
				results <- nodeCompletion{nodeID: nodeID, err: &workflow.NodeError{Kind: workflow.ErrCancelled, Message: err.Error()}}
				return
			}
			defer limiter.Release()
			c := e.runOneNode(ctx, graph, r, node, runInputs, opts)
			if c.err != nil {
				limiter.RecordResult(errors.New(c.err.Message))
			} else {
				limiter.RecordResult(nil)
			}
			results <- c
		}()
	}

	for {
		statusSnap := r.statusSnapshot()
		decision := scheduler.Advance(graph, statusSnap, skippedEdges)
		applySkips(decision.Skipped)

		newlyReady := 0
		for _, id := range decision.Ready {
			if dispatched[id] {
				continue
			}
			if ctx.Err() != nil {
				// Cancellation observed: new nodes are not started.
				continue
			}
			dispatch(id)
			newlyReady++
		}
		if newlyReady > 1 {
			stats.ParallelBatches++
		}
		if inFlight > stats.MaxConcurrent {
			stats.MaxConcurrent = inFlight
		}

		if inFlight == 0 {
			if ctx.Err() != nil {
				cancelled = true
			} else if dErr := scheduler.Deadlocked(graph, r.statusSnapshot(), inFlight); dErr != nil {
				opts.Logger.Error("deadlock detected", logging.Field{Key: "run_id", Value: r.id}, logging.Field{Key: "reason", Value: dErr.Error()})
			}
			break
		}

		select {
		case c := <-results:
			inFlight--
			e.applyCompletion(r, c)
			if c.skipPath != nil {
				markConditionSkips(graph, c.nodeID, c.skipPath, skippedEdges)
			}
		case <-ctx.Done():
			cancelled = true
			// Let in-flight handlers finish observing cancellation; drain.
			for inFlight > 0 {
				c := <-results
				inFlight--
				e.applyCompletion(r, c)
				if c.skipPath != nil {
					markConditionSkips(graph, c.nodeID, c.skipPath, skippedEdges)
				}
			}
		}
	}

	if cancelled {
		r.mu.Lock()
		for id, st := range r.status {
			if st == workflow.StatusRunning || st == workflow.StatusReady || st == workflow.StatusPending {
				r.status[id] = workflow.StatusSkipped
				r.errors[id] = &workflow.NodeError{Kind: workflow.ErrCancelled, Message: "run cancelled"}
			}
		}
		r.cancelledFlag = true
		r.mu.Unlock()
	}

	return stats
}

func (r *run) statusSnapshot() map[string]workflow.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]workflow.Status, len(r.status))
	for k, v := range r.status {
		out[k] = v
	}
	return out
}

func (e *Engine) applyCompletion(r *run, c nodeCompletion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timing[c.nodeID] = c.took
	if c.err != nil {
		r.status[c.nodeID] = workflow.StatusFailed
		r.errors[c.nodeID] = c.err
		return
	}

	r.status[c.nodeID] = workflow.StatusCompleted
	r.path = append(r.path, c.nodeID)
}

func markConditionSkips(graph *workflow.Graph, nodeID string, notTaken map[string]bool, skippedEdges map[workflow.Edge]bool) {
	for _, e := range graph.EdgesFrom(nodeID) {
		handle := e.SourceHandle
		if notTaken[handle] {
			skippedEdges[e] = true
		}
	}
}

// runOneNode assembles inputs, dispatches through the registry, and
// normalizes the result for a single node, storing it in r.table under
// r.mu. It reads other nodes' outputs only through a locked snapshot and
// the OutputTable view, so it is safe to run concurrently with other calls.
func (e *Engine) runOneNode(ctx context.Context, graph *workflow.Graph, r *run, node workflow.Node, runInputs workflow.Inputs, opts Options) nodeCompletion {
	start := time.Now()
	nodeCtx, span := tracer.Start(ctx, "engine.runNode", trace.WithAttributes(
		attribute.String("node_id", node.ID),
		attribute.String("node_type", node.Type),
	))
	defer span.End()

	table := r.snapshotTable()
	asm := assembler.Build(graph, node, table, runInputs)
	for _, w := range asm.Warnings {
		opts.Logger.Warn("unresolved template", logging.Field{Key: "node_id", Value: node.ID}, logging.Field{Key: "token", Value: w.Token}, logging.Field{Key: "reason", Value: w.Reason})
	}

	handler, lookupErr := e.registry.Lookup(node.Type)
	if lookupErr != nil {
		span.SetStatus(codes.Error, lookupErr.Message)
		return nodeCompletion{nodeID: node.ID, err: lookupErr, took: time.Since(start)}
	}

	cfg := *e.config
	if opts.IntegrationTimeout > 0 {
		cfg.IntegrationTimeout = opts.IntegrationTimeout
	}
	if opts.AITimeout > 0 {
		cfg.AITimeout = opts.AITimeout
	}
	deadline, cancel := applyTimeout(nodeCtx, node.Type, &cfg)
	defer cancel()

	hctx := registry.Context{
		Context: deadline,
		NodeID:  node.ID,
		Outputs: outputView{r: r},
		Logger:  opts.Logger,
		Clock:   registry.SystemClock,
	}

	result, herr := callHandler(handler, hctx, asm.Params, asm.Inputs)
	took := time.Since(start)

	if herr != nil {
		if deadline.Err() == context.DeadlineExceeded {
			herr = &workflow.NodeError{Kind: workflow.ErrTimeout, Message: "node exceeded its deadline"}
		} else if deadline.Err() == context.Canceled {
			herr = &workflow.NodeError{Kind: workflow.ErrCancelled, Message: "run cancelled"}
		}
		span.SetStatus(codes.Error, herr.Message)
		return nodeCompletion{nodeID: node.ID, err: herr, took: took}
	}

	name := nodeName(node)
	normalized := normalize.Output(result, node.Type, name, node.Type == "input")

	r.mu.Lock()
	r.table[node.ID] = normalized
	r.mu.Unlock()

	comp := nodeCompletion{nodeID: node.ID, output: result, took: took}
	if node.Type == "condition" {
		comp.skipPath = conditionNotTaken(normalized)
	}
	return comp
}

func callHandler(h registry.Handler, ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	type callResult struct {
		value interface{}
		err   *workflow.NodeError
	}
	resultCh := make(chan callResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- callResult{err: recoverHandlerPanic(ctx.NodeID, rec)}
			}
		}()
		v, err := h.Execute(ctx, params, inputs)
		resultCh <- callResult{value: v, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.value, res.err
	case <-ctx.Done():
		<-resultCh // let the handler goroutine's send land; avoids a leak
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &workflow.NodeError{Kind: workflow.ErrTimeout, Message: "node exceeded its deadline"}
		}
		return nil, &workflow.NodeError{Kind: workflow.ErrCancelled, Message: "run cancelled"}
	}
}

// applyTimeout derives the per-node deadline from node kind, per §5:
// integration default 60s, AI default 120s, built-ins none.
func applyTimeout(ctx context.Context, nodeType string, cfg *concurrency.Config) (context.Context, context.CancelFunc) {
	switch {
	case isBuiltin(nodeType):
		return context.WithCancel(ctx)
	case isAI(nodeType):
		return context.WithTimeout(ctx, cfg.AITimeout)
	default:
		return context.WithTimeout(ctx, cfg.IntegrationTimeout)
	}
}

var builtinTypes = map[string]bool{
	"input": true, "output": true, "condition": true, "merge": true,
	"time": true, "text_processor": true, "json_handler": true, "file_transformer": true,
}

func isBuiltin(nodeType string) bool { return builtinTypes[nodeType] }

func isAI(nodeType string) bool {
	for _, hint := range []string{"openai", "anthropic", "gemini", "cohere", "ai"} {
		if containsFold(nodeType, hint) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	sl, subl := len(s), len(substr)
	if subl == 0 || subl > sl {
		return subl == 0
	}
	for i := 0; i+subl <= sl; i++ {
		if equalFold(s[i:i+subl], substr) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// conditionNotTaken inspects a condition handler's normalized output for
// the set of outgoing handles it did not select, so drive can mark the
// corresponding edges condition_skipped.
func conditionNotTaken(out workflow.NodeOutput) map[string]bool {
	notTaken := map[string]bool{}
	allPaths, _ := out.Get("all_paths")
	paths, ok := allPaths.([]string)
	if !ok {
		return notTaken
	}
	matched, _ := out.Get("matched_path")
	matchedID, _ := matched.(string)
	for _, p := range paths {
		if p != matchedID {
			notTaken[p] = true
		}
	}
	return notTaken
}

func (r *run) snapshotTable() map[string]workflow.NodeOutput {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]workflow.NodeOutput, len(r.table))
	for k, v := range r.table {
		out[k] = v
	}
	return out
}
