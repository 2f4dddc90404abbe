// Package condition implements the built-in "condition" node type: it
// evaluates an ordered list of paths, each an ordered list of clauses
// combined by AND/OR, and selects the first matching path's outgoing
// handle. Non-selected handles are reported back to the engine so their
// downstream edges can be marked condition_skipped.
package condition

import (
	"strings"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	rawPaths, _ := params["paths"].([]interface{})

	allPaths := make([]string, 0, len(rawPaths))
	var matched string
	matchedFound := false

	for _, rp := range rawPaths {
		path, ok := rp.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := path["id"].(string)
		allPaths = append(allPaths, id)
		if matchedFound {
			continue
		}
		if evaluatePath(path, inputs) {
			matched = id
			matchedFound = true
		}
	}

	out := map[string]interface{}{"all_paths": allPaths}
	if matchedFound {
		out["output"] = matched
		out["matched_path"] = matched
	} else {
		out["output"] = nil
		out["matched_path"] = nil
	}
	return out, nil
}

func evaluatePath(path map[string]interface{}, inputs registry.Inputs) bool {
	logic, _ := path["logic"].(string)
	logic = strings.ToUpper(logic)
	if logic == "" {
		logic = "AND"
	}
	clauses, _ := path["clauses"].([]interface{})

	if logic == "OR" {
		for _, c := range clauses {
			if evaluateClause(c, inputs) {
				return true
			}
		}
		return len(clauses) == 0
	}

	for _, c := range clauses {
		if !evaluateClause(c, inputs) {
			return false
		}
	}
	return true
}

func evaluateClause(raw interface{}, inputs registry.Inputs) bool {
	clause, ok := raw.(map[string]interface{})
	if !ok {
		return false
	}
	field, _ := clause["inputField"].(string)
	if field == "" {
		field, _ = clause["field"].(string)
	}
	operator, _ := clause["operator"].(string)
	expected := clause["value"]

	actual := fieldValue(inputs, field)
	return compare(operator, actual, expected)
}

// fieldValue resolves a dotted path against the assembled input bundle:
// the first segment selects a handle, remaining segments descend into
// nested maps.
func fieldValue(inputs registry.Inputs, path string) interface{} {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	current, ok := inputs[segments[0]]
	if !ok {
		return nil
	}
	for _, seg := range segments[1:] {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return current
}
