// Package natsrun adapts the Run Coordinator to a NATS JetStream
// transport: it pulls run requests off a stream, executes them on an
// engine.Engine, and publishes the resulting report (or a blob reference
// to it) to a result subject.
package natsrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/flowforge/engine/pkg/engine"
	sdkerrors "github.com/flowforge/engine/pkg/errors"
	"github.com/flowforge/engine/pkg/reportstore"
	"github.com/flowforge/engine/pkg/workflow"
)

// Runner pulls run requests from a JetStream consumer and drives them
// through an engine.Engine, reporting each run's outcome to a result
// subject. It mirrors the pull-and-worker-pool shape the SDK's generic
// message runner uses, specialized to whole-graph run requests instead of
// per-node dispatch.
type Runner struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	engine *engine.Engine
	store  *reportstore.Store

	stream        string
	consumer      string
	resultSubject string
	batchSize     int
	numWorkers    int
	engineOpts    engine.Options

	logger *zap.Logger
	tracer trace.Tracer
}

// Config configures a Runner.
type Config struct {
	Stream        string
	Consumer      string
	ResultSubject string
	BatchSize     int
	NumWorkers    int
	EngineOptions engine.Options
}

// NewRunner builds a Runner bound to an already-connected NATS connection
// with JetStream enabled.
func NewRunner(conn *nats.Conn, eng *engine.Engine, store *reportstore.Store, cfg Config, logger *zap.Logger) (*Runner, error) {
	if conn == nil || !conn.IsConnected() {
		return nil, sdkerrors.ErrNotConnected
	}
	if eng == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if cfg.Stream == "" {
		return nil, errors.New("stream name cannot be empty")
	}
	if cfg.Consumer == "" {
		return nil, errors.New("consumer name cannot be empty")
	}
	if cfg.ResultSubject == "" {
		cfg.ResultSubject = "workflow.result"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("create default logger: %w", err)
		}
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("JetStream is not enabled: %w", err)
	}

	if err := ensureStream(js, cfg.Stream, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure stream %q exists: %w", cfg.Stream, err)
	}

	return &Runner{
		conn: conn, js: js, engine: eng, store: store,
		stream: cfg.Stream, consumer: cfg.Consumer, resultSubject: cfg.ResultSubject,
		batchSize: cfg.BatchSize, numWorkers: cfg.NumWorkers, engineOpts: cfg.EngineOptions,
		logger: logger, tracer: otel.Tracer("flowforge/transport/natsrun"),
	}, nil
}

func ensureStream(js nats.JetStreamContext, streamName string, logger *zap.Logger) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to get stream info for %q: %w", streamName, err)
	}

	logger.Info("creating JetStream stream", zap.String("stream", streamName))
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{streamName + ".*"},
		Storage:  nats.FileStorage,
		MaxAge:   24 * time.Hour,
		MaxMsgs:  100000,
		Replicas: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %q: %w", streamName, err)
	}
	return nil
}

// Run pulls run requests and dispatches them to worker goroutines until
// ctx is cancelled, then waits for in-flight work to drain.
func (r *Runner) Run(ctx context.Context) error {
	sub, err := r.js.PullSubscribe("", r.consumer, nats.Bind(r.stream, r.consumer))
	if err != nil {
		return sdkerrors.NewError("subscribe_failed", "failed to bind pull subscription", err)
	}

	msgChan := make(chan *nats.Msg, r.batchSize)
	var wg sync.WaitGroup
	for i := 0; i < r.numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, msgChan)
		}(i)
	}

	go func() {
		defer close(msgChan)
		backoff := 100 * time.Millisecond
		const maxBackoff = 5 * time.Second

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(r.batchSize, nats.MaxWait(2*time.Second))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || ctx.Err() != nil {
					continue
				}
				r.logger.Error("error pulling run requests", zap.Error(err))
				time.Sleep(backoff)
				if backoff < maxBackoff {
					backoff *= 2
				}
				continue
			}
			backoff = 100 * time.Millisecond

			for _, m := range msgs {
				select {
				case msgChan <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}
}

func (r *Runner) worker(ctx context.Context, workerID int, msgChan <-chan *nats.Msg) {
	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			r.processMessage(ctx, workerID, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) processMessage(ctx context.Context, workerID int, msg *nats.Msg) {
	var req RunRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		r.logger.Error("failed to decode run request", zap.Int("worker", workerID), zap.Error(err))
		_ = msg.Nak()
		return
	}

	ctx, span := r.tracer.Start(ctx, "natsrun.processMessage",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("workflow.id", req.WorkflowID),
			attribute.String("workflow.run_id", req.RunID),
		))
	defer span.End()

	graph := req.Graph.ToGraph()
	inputs := ToInputs(req.Inputs)

	report, err := r.engine.Run(ctx, graph, inputs, r.engineOpts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.publishFailure(ctx, req, err)
		_ = msg.Ack()
		return
	}

	span.SetStatus(codes.Ok, string(report.Status))
	r.publishReport(ctx, req, report)
	_ = msg.Ack()
}

func (r *Runner) publishReport(ctx context.Context, req RunRequest, report *workflow.Report) {
	wire := ReportToWire(req.WorkflowID, report)

	envelope := ResultEnvelope{
		CorrelationID: req.CorrelationID,
		WorkflowID:    req.WorkflowID,
		RunID:         report.RunID,
		Status:        string(report.Status),
	}

	if r.store != nil {
		inline, ref, err := r.store.Put(ctx, req.WorkflowID, report.RunID, wire)
		if err != nil {
			r.logger.Error("failed to store run report", zap.Error(err))
			envelope.Status = string(workflow.RunFailed)
			envelope.Error = err.Error()
		} else if ref != nil {
			envelope.BlobReference = ref
		} else {
			_ = inline
			envelope.Report = &wire
		}
	} else {
		envelope.Report = &wire
	}

	r.publish(envelope)
}

func (r *Runner) publishFailure(ctx context.Context, req RunRequest, err error) {
	r.publish(ResultEnvelope{
		CorrelationID: req.CorrelationID,
		WorkflowID:    req.WorkflowID,
		RunID:         req.RunID,
		Status:        string(workflow.RunFailed),
		Error:         err.Error(),
	})
}

func (r *Runner) publish(envelope ResultEnvelope) {
	data, err := json.Marshal(envelope)
	if err != nil {
		r.logger.Error("failed to marshal result envelope", zap.Error(err))
		return
	}
	if _, err := r.js.Publish(r.resultSubject, data); err != nil {
		r.logger.Error("failed to publish run result",
			zap.String("workflow_id", envelope.WorkflowID),
			zap.String("run_id", envelope.RunID),
			zap.Error(sdkerrors.NewError("publish_failed", "publishing run result", err)))
	}
}
