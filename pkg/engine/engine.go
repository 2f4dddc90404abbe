// Package engine is the Run Coordinator: it owns the output table and
// status map, guarded by a per-run mutex, drives the Scheduler,
// dispatches through the Registry via the Input Assembler, and produces
// the final run report. It is also the engine's external interface
// (run/cancel/status/register per spec.md §6).
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
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

var tracer = otel.Tracer("flowforge/engine")

// Options tunes a single run. Zero-value Options picks sane defaults from
// concurrency.LoadConfig().
type Options struct {
	MaxInFlight        int
	IntegrationTimeout time.Duration
	AITimeout          time.Duration
	Logger             logging.Logger
}

// Engine owns a Registry and a Config; it has no other hidden global
// state. A run() call receives an explicit Engine reference.
type Engine struct {
	registry *registry.Registry
	config   *concurrency.Config

	mu   sync.Mutex
	runs map[string]*run
}

// New creates an Engine bound to reg, using the process's ambient
// concurrency configuration.
func New(reg *registry.Registry) *Engine {
	return &Engine{
		registry: reg,
		config:   concurrency.LoadConfig(),
		runs:     make(map[string]*run),
	}
}

// Register binds a handler to a type tag on the engine's registry.
func (e *Engine) Register(typeTag string, h registry.Handler) {
	e.registry.Register(typeTag, h)
}

// run is the live, mutable state of one in-flight or completed execution.
// Its output table is written both by the goroutine executing Run and by
// the goroutines running individual nodes (each storing its own output);
// every read and write of the maps, including those made by Status, goes
// through mu.
type run struct {
	mu     sync.Mutex
	id     string
	status map[string]workflow.Status
	table  map[string]workflow.NodeOutput
	errors map[string]*workflow.NodeError
	timing map[string]time.Duration
	path   []string

	cancelledFlag bool
	cancel        context.CancelFunc
	done          chan struct{}
	report        *workflow.Report
}

// outputView adapts run to registry.OutputTable, the read-only view
// handlers receive.
type outputView struct{ r *run }

func (v outputView) Get(nodeID string) (workflow.NodeOutput, bool) {
	v.r.mu.Lock()
	defer v.r.mu.Unlock()
	o, ok := v.r.table[nodeID]
	return o, ok
}

func (v outputView) All() map[string]workflow.NodeOutput {
	v.r.mu.Lock()
	defer v.r.mu.Unlock()
	out := make(map[string]workflow.NodeOutput, len(v.r.table))
	for k, val := range v.r.table {
		out[k] = val
	}
	return out
}

// Run executes graph against inputs and blocks until the run reaches a
// terminal state, returning the final report.
func (e *Engine) Run(ctx context.Context, graph workflow.Graph, inputs workflow.Inputs, opts Options) (*workflow.Report, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = e.config.MaxConcurrent
	}

	order, err := scheduler.Order(&graph)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:     uuid.NewString(),
		status: make(map[string]workflow.Status, len(graph.Nodes)),
		table:  make(map[string]workflow.NodeOutput, len(graph.Nodes)),
		errors: make(map[string]*workflow.NodeError),
		timing: make(map[string]time.Duration),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, n := range graph.Nodes {
		r.status[n.ID] = workflow.StatusPending
	}

	e.mu.Lock()
	e.runs[r.id] = r
	e.mu.Unlock()

	seedInputOutputs(&graph, r, inputs)

	start := time.Now()
	runCtx, span := tracer.Start(runCtx, "engine.runWorkflow", trace.WithAttributes(
		attribute.String("run_id", r.id),
		attribute.Int("node_count", len(graph.Nodes)),
	))
	defer span.End()

	stats := e.drive(runCtx, &graph, r, inputs, maxInFlight, opts, order)
	r.report = buildReport(r, start, stats)

	if r.report.Status == workflow.RunFailed {
		span.SetStatus(codes.Error, "run failed")
	}
	close(r.done)

	e.mu.Lock()
	delete(e.runs, r.id)
	e.mu.Unlock()

	return r.report, nil
}

// Cancel requests termination of an in-flight run by id. It is a no-op if
// the run is unknown or already terminal.
func (e *Engine) Cancel(runID string) {
	e.mu.Lock()
	r, ok := e.runs[runID]
	e.mu.Unlock()
	if !ok {
		return
	}
	r.cancel()
}

// Snapshot is the status(run_id) result: a point-in-time view of a live
// run.
type Snapshot struct {
	RunID  string
	Status map[string]workflow.Status
	Path   []string
}

// Status returns a snapshot of an in-flight run, or false if runID is
// unknown (including already-completed runs, whose final state is the
// Report returned by Run).
func (e *Engine) Status(runID string) (Snapshot, bool) {
	e.mu.Lock()
	r, ok := e.runs[runID]
	e.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st := make(map[string]workflow.Status, len(r.status))
	for k, v := range r.status {
		st[k] = v
	}
	path := make([]string, len(r.path))
	copy(path, r.path)
	return Snapshot{RunID: r.id, Status: st, Path: path}, true
}

// seedInputOutputs eagerly materializes outputs for every input-typed
// node from run inputs, so {{input_0.text}} resolves before any handler
// runs, per §4.6.
func seedInputOutputs(graph *workflow.Graph, r *run, inputs workflow.Inputs) {
	for _, n := range graph.Nodes {
		if n.Type != "input" {
			continue
		}
		iv, ok := assembler.AmbientInput(n, inputs)
		raw := map[string]interface{}{}
		if ok {
			raw["output"] = iv.Value
			if field := typeField(iv.Type); field != "" {
				raw[field] = iv.Value
			}
		}
		name := nodeName(n)
		out := normalize.Output(raw, n.Type, name, true)
		r.mu.Lock()
		r.table[n.ID] = out
		r.status[n.ID] = workflow.StatusCompleted
		r.path = append(r.path, n.ID)
		r.mu.Unlock()
	}
}

// typeField maps a declared run-input type to the NodeOutput
// type-specific field name input nodes materialize, per §4.2.
func typeField(declared string) string {
	switch declared {
	case "Text", "text", "":
		return "text"
	case "Image", "image":
		return "image"
	case "Audio", "audio":
		return "audio"
	case "File", "file":
		return "file"
	case "JSON", "json":
		return "json"
	default:
		return "text"
	}
}

func nodeName(n workflow.Node) string {
	if name, ok := n.Params["name"].(string); ok && name != "" {
		return name
	}
	return n.ID
}

func buildReport(r *run, start time.Time, stats workflow.Stats) *workflow.Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	outputs := make(map[string]workflow.NodeOutput, len(r.table))
	for k, v := range r.table {
		outputs[k] = v
	}
	results := make(map[string]workflow.NodeResult, len(r.status))
	completed, failed, skipped := 0, 0, 0
	for id, st := range r.status {
		switch st {
		case workflow.StatusCompleted:
			completed++
		case workflow.StatusFailed:
			failed++
		case workflow.StatusSkipped:
			skipped++
		}
		results[id] = workflow.NodeResult{
			Status:        st,
			ExecutionTime: r.timing[id],
			Error:         r.errors[id],
		}
	}

	var overall workflow.RunStatus
	switch {
	case r.cancelledFlag:
		overall = workflow.RunCancelled
	case failed == 0 && skipped == 0:
		overall = workflow.RunCompleted
	case completed > 0:
		overall = workflow.RunPartial
	default:
		overall = workflow.RunFailed
	}

	path := make([]string, len(r.path))
	copy(path, r.path)

	return &workflow.Report{
		RunID:         r.id,
		Status:        overall,
		Outputs:       outputs,
		NodeResults:   results,
		ExecutionPath: path,
		ExecutionTime: time.Since(start),
		Stats:         stats,
	}
}

// recoverHandlerPanic converts a value recovered from a handler panic
// into a handler_error result and reports it to Sentry, so a single
// misbehaving handler never takes down the Scheduler. The caller's
// deferred function must call recover() itself and pass the value here.
func recoverHandlerPanic(nodeID string, rec interface{}) *workflow.NodeError {
	sentry.CaptureException(fmt.Errorf("node %s panicked: %v", nodeID, rec))
	return &workflow.NodeError{
		Kind:    workflow.ErrHandlerError,
		SubKind: "panic",
		Message: fmt.Sprintf("%v", rec),
	}
}
