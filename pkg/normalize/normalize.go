// Package normalize turns a handler's raw return value into the
// canonical workflow.NodeOutput record every downstream consumer can rely
// on: a primary value plus the six alias fields, materialized on write.
package normalize

import (
	"reflect"

	"github.com/flowforge/engine/pkg/workflow"
)

// contentFields is the order normalize tries when a returned map lacks an
// explicit "output" key, per §4.2.
var contentFields = []string{"text", "content", "response", "result", "value"}

// typeSpecificFields are the declared I/O kinds an input node may carry.
var typeSpecificFields = map[string]bool{
	"text": true, "image": true, "audio": true, "file": true, "json": true,
}

// Output normalizes a handler's return value into a workflow.NodeOutput.
// nodeType is the node's type tag; nodeName is a human alias (falls back
// to the node id when params supply none); isInputNode should be true
// when the producing node is an "input" node, to materialize the
// declared-type field.
func Output(raw interface{}, nodeType, nodeName string, isInputNode bool) workflow.NodeOutput {
	extra := map[string]interface{}{}
	var primary interface{}

	switch v := raw.(type) {
	case map[string]interface{}:
		for k, val := range v {
			extra[k] = val
		}
		if val, ok := v["output"]; ok {
			primary = val
		} else {
			primary = firstContentField(v)
		}
	default:
		primary = raw
	}

	extra["output"] = getOr(extra, "output", primary)
	for _, field := range workflow.AliasFields {
		if _, ok := extra[field]; !ok {
			extra[field] = primary
		}
	}

	extra["type"] = nodeType
	if _, ok := extra["node_name"]; !ok {
		extra["node_name"] = nodeName
	}

	if isInputNode {
		for field := range typeSpecificFields {
			if _, ok := extra[field]; ok {
				extra[field] = primary
			}
		}
	}

	return workflow.NodeOutput{Primary: primary, Extra: extra}
}

func firstContentField(m map[string]interface{}) interface{} {
	for _, field := range contentFields {
		if v, ok := m[field]; ok {
			return v
		}
	}
	return nil
}

func getOr(m map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	return fallback
}

// Idempotent re-runs Output on an already-normalized NodeOutput and
// reports whether the result is unchanged, satisfying the round-trip law
// in §8 ("normalizing normalize(x) again yields the same record").
func Idempotent(o workflow.NodeOutput, nodeType, nodeName string, isInputNode bool) bool {
	again := Output(o.Extra, nodeType, nodeName, isInputNode)
	if !reflect.DeepEqual(again.Primary, o.Primary) {
		return false
	}
	if len(again.Extra) != len(o.Extra) {
		return false
	}
	for k, v := range o.Extra {
		if !reflect.DeepEqual(again.Extra[k], v) {
			return false
		}
	}
	return true
}
