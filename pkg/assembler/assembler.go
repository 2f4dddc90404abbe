// Package assembler builds the (params, inputs) pair a handler receives:
// it groups incoming edges by target handle, merges ambient run inputs for
// input-typed nodes, and is the only place {{...}} tokens are resolved —
// handlers must never re-interpret template syntax themselves.
package assembler

import (
	"regexp"
	"strconv"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/template"
	"github.com/flowforge/engine/pkg/workflow"
)

const defaultHandle = "input"

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Result is the output of assembling one node's call: resolved params
// with every string passed through the Template Resolver, the handler
// input bundle, and any unresolved-template warnings collected along the
// way.
type Result struct {
	Params   map[string]interface{}
	Inputs   registry.Inputs
	Warnings []template.Warning
}

// Build implements §4.4's five steps for node against graph, using table
// for upstream outputs and runInputs for ambient external inputs.
func Build(graph *workflow.Graph, node workflow.Node, table map[string]workflow.NodeOutput, runInputs workflow.Inputs) Result {
	inputs := make(registry.Inputs)

	groups := groupIncomingByHandle(graph, node.ID)
	for handle, edges := range groups {
		values := make([]interface{}, 0, len(edges))
		for _, e := range edges {
			if out, ok := table[e.Source]; ok {
				values = append(values, out.Primary)
			}
		}
		if len(values) == 1 {
			inputs[handle] = values[0]
		} else if len(values) > 1 {
			inputs[handle] = values
		}
	}

	if node.Type == "input" {
		if v, ok := AmbientInput(node, runInputs); ok {
			inputs[defaultHandle] = v.Value
		}
	}

	var warnings []template.Warning
	resolved, w := template.ResolveDeep(node.Params, table)
	warnings = append(warnings, w...)
	params, _ := resolved.(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}

	return Result{Params: params, Inputs: inputs, Warnings: warnings}
}

// groupIncomingByHandle groups edges into node, keyed by TargetHandle
// (unnamed handles collapse to "input"), preserving declaration order and
// collapsing duplicate edges to a single dependency.
func groupIncomingByHandle(graph *workflow.Graph, nodeID string) map[string][]workflow.Edge {
	groups := make(map[string][]workflow.Edge)
	seen := make(map[workflow.Edge]bool)
	for _, e := range graph.EdgesTo(nodeID) {
		if seen[e] {
			continue
		}
		seen[e] = true
		handle := e.TargetHandle
		if handle == "" {
			handle = defaultHandle
		}
		groups[handle] = append(groups[handle], e)
	}
	return groups
}

// AmbientInput resolves a run input for an input-typed node, trying keys
// in the precedence order this spec picked: "input", "input_<n>", the
// node's declared name, then the raw node id. Exported so the engine can
// reuse it when eagerly seeding input-node outputs at run start.
func AmbientInput(node workflow.Node, runInputs workflow.Inputs) (workflow.InputValue, bool) {
	if v, ok := runInputs[defaultHandle]; ok {
		return v, true
	}

	if n, ok := trailingInt(node.ID); ok {
		key := "input_" + strconv.Itoa(n)
		if v, ok := runInputs[key]; ok {
			return v, true
		}
	}

	if name, ok := node.Params["name"].(string); ok {
		if v, ok := runInputs[name]; ok {
			return v, true
		}
	}

	if v, ok := runInputs[node.ID]; ok {
		return v, true
	}

	return workflow.InputValue{}, false
}

func trailingInt(s string) (int, bool) {
	m := trailingDigits.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
