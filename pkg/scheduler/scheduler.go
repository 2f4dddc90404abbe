// Package scheduler computes execution order over a workflow graph and
// decides, as nodes complete, which further nodes become ready to run or
// must be skipped under the failure- and condition-isolation policy.
// Everything here is pure: it reads graph/status snapshots and returns
// decisions: the Run Coordinator applies them under its single-writer
// discipline.
package scheduler

import (
	"fmt"

	"github.com/flowforge/engine/pkg/workflow"
)

// Order computes a topological order over graph, breaking ties by
// original declaration order. It rejects cyclic graphs.
func Order(graph *workflow.Graph) ([]string, error) {
	indexOf := make(map[string]int, len(graph.Nodes))
	for i, n := range graph.Nodes {
		indexOf[n.ID] = i
	}

	indegree := make(map[string]int, len(graph.Nodes))
	for _, n := range graph.Nodes {
		indegree[n.ID] = 0
	}
	adj := make(map[string]map[string]bool, len(graph.Nodes))
	for _, e := range graph.Edges {
		if adj[e.Source] == nil {
			adj[e.Source] = make(map[string]bool)
		}
		if !adj[e.Source][e.Target] {
			adj[e.Source][e.Target] = true
			indegree[e.Target]++
		}
	}

	var queue []string
	for _, n := range graph.Nodes {
		if indegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	sortByDeclOrder(queue, indexOf)

	order := make([]string, 0, len(graph.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var freed []string
		for target := range adj[id] {
			indegree[target]--
			if indegree[target] == 0 {
				freed = append(freed, target)
			}
		}
		sortByDeclOrder(freed, indexOf)
		queue = append(queue, freed...)
		sortByDeclOrder(queue, indexOf)
	}

	if len(order) != len(graph.Nodes) {
		return nil, &workflow.NodeError{Kind: workflow.ErrInvalidWorkflow, Message: "cyclic_graph"}
	}
	return order, nil
}

func sortByDeclOrder(ids []string, indexOf map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && indexOf[ids[j-1]] > indexOf[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// SkipReason distinguishes why a node was skipped, for the error taxonomy.
type SkipReason string

const (
	SkipUpstreamFailed   SkipReason = "upstream_failed"
	SkipConditionSkipped SkipReason = "condition_skipped"
)

// edgeState is the resolved state of one incoming edge, as seen by its
// target's readiness decision.
type edgeState int

const (
	edgePending edgeState = iota
	edgeSatisfied
	edgeFailed
	edgeSkipped
)

// Decision is the set of status changes the Scheduler recommends after
// observing the current status/edge-skip snapshot. The caller (Run
// Coordinator) applies them.
type Decision struct {
	Ready   []string
	Skipped map[string]SkipReason
}

// Advance scans every node not yet in a terminal or in-flight state and
// decides whether it can now run or must be skipped, given status (the
// current per-node status map) and skippedEdges (edges a condition node
// has marked as not-taken). A node is decided once every incoming edge
// has resolved to satisfied/failed/skipped; it is Ready if at least one
// edge is satisfied, otherwise Skipped.
func Advance(graph *workflow.Graph, status map[string]workflow.Status, skippedEdges map[workflow.Edge]bool) Decision {
	dec := Decision{Skipped: make(map[string]SkipReason)}

	for _, node := range graph.Nodes {
		st := status[node.ID]
		if st != workflow.StatusPending {
			continue
		}

		incoming := graph.EdgesTo(node.ID)
		if len(incoming) == 0 {
			dec.Ready = append(dec.Ready, node.ID)
			continue
		}

		allDecided := true
		anySatisfied := false
		anyFailed := false
		for _, e := range incoming {
			switch edgeStateOf(e, status, skippedEdges) {
			case edgePending:
				allDecided = false
			case edgeSatisfied:
				anySatisfied = true
			case edgeFailed:
				anyFailed = true
			case edgeSkipped:
				// no-op; contributes neither satisfaction nor failure
			}
		}
		if !allDecided {
			continue
		}
		if anySatisfied {
			dec.Ready = append(dec.Ready, node.ID)
			continue
		}
		reason := SkipConditionSkipped
		if anyFailed {
			reason = SkipUpstreamFailed
		}
		dec.Skipped[node.ID] = reason
	}

	return dec
}

func edgeStateOf(e workflow.Edge, status map[string]workflow.Status, skippedEdges map[workflow.Edge]bool) edgeState {
	if skippedEdges[e] {
		return edgeSkipped
	}
	switch status[e.Source] {
	case workflow.StatusCompleted:
		return edgeSatisfied
	case workflow.StatusFailed:
		return edgeFailed
	case workflow.StatusSkipped:
		return edgeSkipped
	default:
		return edgePending
	}
}

// Deadlocked reports whether no node is ready/running/pending-decidable
// and the graph did not fully terminate — a defensive invariant check
// carried over from the original implementation's explicit deadlock log;
// with upfront cycle detection this should be unreachable.
func Deadlocked(graph *workflow.Graph, status map[string]workflow.Status, inFlight int) error {
	if inFlight > 0 {
		return nil
	}
	for _, n := range graph.Nodes {
		switch status[n.ID] {
		case workflow.StatusCompleted, workflow.StatusFailed, workflow.StatusSkipped:
			continue
		default:
			return fmt.Errorf("deadlock_detected: node %q has no path to completion", n.ID)
		}
	}
	return nil
}
