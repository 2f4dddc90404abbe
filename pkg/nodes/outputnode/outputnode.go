// Package outputnode implements the built-in "output" node type: it
// surfaces either its resolved template/output param, or the single (or
// concatenated) upstream value feeding it, as the run's terminal result
// for that branch.
package outputnode

import (
	"fmt"
	"strings"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	if v, ok := stringParam(params, "output"); ok {
		return map[string]interface{}{"output": v}, nil
	}
	if v, ok := stringParam(params, "template"); ok {
		return map[string]interface{}{"output": v}, nil
	}

	value, ok := inputs["input"]
	if !ok {
		return map[string]interface{}{"output": nil}, nil
	}

	switch v := value.(type) {
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprintf("%v", item)
		}
		return map[string]interface{}{"output": strings.Join(parts, "")}, nil
	default:
		return map[string]interface{}{"output": v}, nil
	}
}

func stringParam(params map[string]interface{}, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
