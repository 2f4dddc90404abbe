// Package inputnode implements the built-in "input" node type: it
// surfaces a run's external input value, typed per the declared input
// kind. In normal operation the engine seeds input-node outputs eagerly
// (see pkg/engine), so this handler is mainly exercised when a caller
// schedules input nodes explicitly instead, which §4.6 allows.
package inputnode

import (
	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

// Handler implements registry.Handler for the "input" node type.
type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	value, ok := inputs["input"]
	if !ok {
		return nil, &workflow.NodeError{
			Kind:    workflow.ErrMissingInput,
			Message: "no run input bound to this input node",
		}
	}

	declaredType, _ := params["type"].(string)
	out := map[string]interface{}{"output": value}
	if field := typeField(declaredType); field != "" {
		out[field] = value
	}
	return out, nil
}

func typeField(declared string) string {
	switch declared {
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
