package natsrun

import (
	"github.com/flowforge/engine/pkg/reportstore"
	"github.com/flowforge/engine/pkg/workflow"
)

// WireNode is the over-the-wire shape of a workflow node.
type WireNode struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Name   string                 `json:"name,omitempty"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// WireEdge is the over-the-wire shape of a workflow edge.
type WireEdge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// WireGraph is the over-the-wire shape of a workflow graph.
type WireGraph struct {
	Nodes []WireNode `json:"nodes"`
	Edges []WireEdge `json:"edges"`
}

// WireInput is the over-the-wire shape of a single ambient run input.
type WireInput struct {
	Value interface{} `json:"value"`
	Type  string      `json:"type,omitempty"`
}

// RunRequest is published to the request stream to start a run.
type RunRequest struct {
	CorrelationID string               `json:"correlationId,omitempty"`
	WorkflowID    string               `json:"workflowId"`
	RunID         string               `json:"runId,omitempty"`
	Graph         WireGraph            `json:"graph"`
	Inputs        map[string]WireInput `json:"inputs,omitempty"`
}

// ToGraph converts the wire graph to the engine's internal representation.
func (g WireGraph) ToGraph() workflow.Graph {
	nodes := make([]workflow.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		params := n.Params
		if params == nil {
			params = map[string]interface{}{}
		}
		if n.Name != "" {
			if _, ok := params["name"]; !ok {
				params = copyParams(params)
				params["name"] = n.Name
			}
		}
		nodes[i] = workflow.Node{ID: n.ID, Type: n.Type, Params: params}
	}
	edges := make([]workflow.Edge, len(g.Edges))
	for i, e := range g.Edges {
		edges[i] = workflow.Edge{
			Source: e.Source, Target: e.Target,
			SourceHandle: e.SourceHandle, TargetHandle: e.TargetHandle,
		}
	}
	return workflow.Graph{Nodes: nodes, Edges: edges}
}

func copyParams(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// ToInputs converts the wire input map to the engine's internal representation.
func ToInputs(in map[string]WireInput) workflow.Inputs {
	out := make(workflow.Inputs, len(in))
	for k, v := range in {
		out[k] = workflow.InputValue{Value: v.Value, Type: v.Type}
	}
	return out
}

// WireNodeError is the over-the-wire shape of a NodeError.
type WireNodeError struct {
	Kind      string `json:"kind"`
	SubKind   string `json:"subKind,omitempty"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable,omitempty"`
}

// WireNodeResult is the over-the-wire shape of a single node's result.
type WireNodeResult struct {
	Status          string         `json:"status"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`
	Error           *WireNodeError `json:"error,omitempty"`
}

// WireStats is the over-the-wire shape of run-level execution accounting.
type WireStats struct {
	ParallelBatches int `json:"parallelBatches"`
	MaxConcurrent   int `json:"maxConcurrent"`
}

// RunResult is the full report for a run, carried inline on the result
// message when small enough.
type RunResult struct {
	CorrelationID   string                    `json:"correlationId,omitempty"`
	WorkflowID      string                    `json:"workflowId"`
	RunID           string                    `json:"runId"`
	Status          string                    `json:"status"`
	Outputs         map[string]interface{}    `json:"outputs"`
	NodeResults     map[string]WireNodeResult `json:"nodeResults"`
	ExecutionPath   []string                  `json:"executionPath"`
	ExecutionTimeMs int64                     `json:"executionTimeMs"`
	Stats           WireStats                 `json:"stats"`
}

// ResultEnvelope is what is actually published to the result subject:
// either the report inline, or a reference to where it was offloaded.
type ResultEnvelope struct {
	CorrelationID string                     `json:"correlationId,omitempty"`
	WorkflowID    string                     `json:"workflowId"`
	RunID         string                     `json:"runId"`
	Status        string                     `json:"status"`
	Report        *RunResult                 `json:"report,omitempty"`
	BlobReference *reportstore.BlobReference `json:"blobReference,omitempty"`
	Error         string                     `json:"error,omitempty"`
}

// ReportToWire flattens an engine report into its over-the-wire shape.
func ReportToWire(workflowID string, report *workflow.Report) RunResult {
	outputs := make(map[string]interface{}, len(report.Outputs))
	for id, out := range report.Outputs {
		if out.Extra != nil {
			outputs[id] = out.Extra
		} else {
			outputs[id] = out.Primary
		}
	}

	results := make(map[string]WireNodeResult, len(report.NodeResults))
	for id, r := range report.NodeResults {
		wr := WireNodeResult{
			Status:          string(r.Status),
			ExecutionTimeMs: r.ExecutionTime.Milliseconds(),
		}
		if r.Error != nil {
			wr.Error = &WireNodeError{
				Kind: string(r.Error.Kind), SubKind: r.Error.SubKind,
				Message: r.Error.Message, Retriable: r.Error.Retriable,
			}
		}
		results[id] = wr
	}

	return RunResult{
		WorkflowID:      workflowID,
		RunID:           report.RunID,
		Status:          string(report.Status),
		Outputs:         outputs,
		NodeResults:     results,
		ExecutionPath:   report.ExecutionPath,
		ExecutionTimeMs: report.ExecutionTime.Milliseconds(),
		Stats: WireStats{
			ParallelBatches: report.Stats.ParallelBatches,
			MaxConcurrent:   report.Stats.MaxConcurrent,
		},
	}
}
