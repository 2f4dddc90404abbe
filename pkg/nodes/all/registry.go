// Package all wires every built-in node handler into a registry.Registry,
// mirroring the workflow engine's convention of a single assembly point
// for its executor set.
package all

import (
	"github.com/flowforge/engine/pkg/nodes/condition"
	"github.com/flowforge/engine/pkg/nodes/filetransform"
	"github.com/flowforge/engine/pkg/nodes/inputnode"
	"github.com/flowforge/engine/pkg/nodes/jsonhandler"
	"github.com/flowforge/engine/pkg/nodes/merge"
	"github.com/flowforge/engine/pkg/nodes/outputnode"
	"github.com/flowforge/engine/pkg/nodes/textproc"
	"github.com/flowforge/engine/pkg/nodes/timenode"
	"github.com/flowforge/engine/pkg/registry"
)

// NewRegistry returns a registry.Registry with every built-in node type
// registered under its type tag.
func NewRegistry() *registry.Registry {
	r := registry.New()
	r.Register("input", inputnode.New())
	r.Register("output", outputnode.New())
	r.Register("condition", condition.New())
	r.Register("merge", merge.New())
	r.Register("time", timenode.New())
	r.Register("text_processor", textproc.New())
	r.Register("json_handler", jsonhandler.New())
	r.Register("file_transformer", filetransform.New())
	return r
}
