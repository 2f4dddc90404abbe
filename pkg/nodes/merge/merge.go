// Package merge implements the built-in "merge" node type: it combines
// the values arriving on a declared, ordered list of source handles using
// one of the merge functions named in §4.3.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	fn, _ := params["function"].(string)
	if fn == "" {
		fn = "pick_first"
	}

	handles := declaredHandles(params, inputs)
	values := make([]interface{}, 0, len(handles))
	for _, h := range handles {
		if v, ok := inputs[h]; ok {
			values = append(values, v)
		}
	}

	result, err := apply(fn, values, params)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": result}, nil
}

// declaredHandles returns the handle names to combine, in order: an
// explicit params["handles"] list if given, else the input bundle's keys
// sorted for determinism.
func declaredHandles(params map[string]interface{}, inputs registry.Inputs) []string {
	if raw, ok := params["handles"].([]interface{}); ok {
		handles := make([]string, 0, len(raw))
		for _, h := range raw {
			if s, ok := h.(string); ok {
				handles = append(handles, s)
			}
		}
		return handles
	}
	handles := make([]string, 0, len(inputs))
	for h := range inputs {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

func apply(fn string, values []interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	switch fn {
	case "pick_first":
		for _, v := range values {
			if v != nil {
				return v, nil
			}
		}
		return nil, nil

	case "join_all":
		delim, _ := params["delimiter"].(string)
		if allNumeric(values) {
			sum := 0.0
			for _, v := range values {
				sum += toFloat(v)
			}
			return sum, nil
		}
		if delim != "" {
			parts := make([]string, len(values))
			for i, v := range values {
				parts[i] = fmt.Sprintf("%v", v)
			}
			return strings.Join(parts, delim), nil
		}
		return values, nil

	case "concat_arrays":
		var out []interface{}
		for _, v := range values {
			if arr, ok := v.([]interface{}); ok {
				out = append(out, arr...)
			} else if v != nil {
				out = append(out, v)
			}
		}
		return out, nil

	case "merge_objects":
		out := map[string]interface{}{}
		for _, v := range values {
			if m, ok := v.(map[string]interface{}); ok {
				deepMerge(out, m)
			}
		}
		return out, nil

	case "avg":
		if len(values) == 0 {
			return 0.0, nil
		}
		sum := 0.0
		for _, v := range values {
			sum += toFloat(v)
		}
		return sum / float64(len(values)), nil

	case "min":
		return extremum(values, func(a, b float64) bool { return a < b })

	case "max":
		return extremum(values, func(a, b float64) bool { return a > b })

	case "create_object":
		handles, _ := params["handles"].([]interface{})
		out := map[string]interface{}{}
		for i, v := range values {
			key := fmt.Sprintf("%d", i)
			if i < len(handles) {
				if s, ok := handles[i].(string); ok {
					key = s
				}
			}
			out[key] = v
		}
		return out, nil

	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: fmt.Sprintf("unknown merge function %q", fn)}
	}
}

// deepMerge merges src into dst in place. Later values win on conflicting
// scalar keys; when both sides hold an object at the same key, the objects
// are merged recursively instead of one replacing the other.
func deepMerge(dst, src map[string]interface{}) {
	for k, sv := range src {
		if dv, ok := dst[k]; ok {
			dm, dok := dv.(map[string]interface{})
			sm, sok := sv.(map[string]interface{})
			if dok && sok {
				deepMerge(dm, sm)
				continue
			}
		}
		dst[k] = sv
	}
}

func extremum(values []interface{}, better func(a, b float64) bool) (interface{}, *workflow.NodeError) {
	if len(values) == 0 {
		return nil, nil
	}
	best := toFloat(values[0])
	for _, v := range values[1:] {
		f := toFloat(v)
		if better(f, best) {
			best = f
		}
	}
	return best, nil
}

func allNumeric(values []interface{}) bool {
	if len(values) == 0 {
		return false
	}
	for _, v := range values {
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return false
		}
	}
	return true
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
