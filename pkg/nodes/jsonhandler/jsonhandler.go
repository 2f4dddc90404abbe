// Package jsonhandler implements the built-in "json_handler" node type:
// parsing, producing, querying, merging, stringifying and validating JSON
// documents. parse and produce read or write the JSON text base64-encoded
// when params["encoding"] is "base64".
package jsonhandler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/schema"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	operation, _ := params["operation"].(string)
	if operation == "" {
		operation = "parse"
	}

	value := inputs["input"]

	switch operation {
	case "parse":
		return parse(value, params)
	case "produce":
		return produce(value, params)
	case "query":
		return query(value, params)
	case "merge":
		return merge(inputs, params)
	case "stringify":
		return stringify(value, params)
	case "validate":
		return validate(value, params)
	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown json_handler operation: " + operation}
	}
}

// parse decodes a JSON string (optionally base64-encoded) into a native
// Go value.
func parse(value interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	raw, ok := value.(string)
	if !ok {
		return map[string]interface{}{"output": value}, nil
	}

	text := raw
	if encoding(params) == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
		}
		text = string(decoded)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}
	return map[string]interface{}{"output": parsed}, nil
}

// produce marshals a native value to a JSON string, optionally pretty
// printed or base64-encoded.
func produce(value interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	var encoded []byte
	var err error
	if pretty, _ := params["pretty"].(bool); pretty {
		encoded, err = json.MarshalIndent(value, "", "  ")
	} else {
		encoded, err = json.Marshal(value)
	}
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}

	out := string(encoded)
	if encoding(params) == "base64" {
		out = base64.StdEncoding.EncodeToString(encoded)
	}
	return map[string]interface{}{"output": out}, nil
}

// query resolves a dotted or bracket-indexed path against the input
// value, e.g. "items.0.name".
func query(value interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	path, _ := params["path"].(string)
	if path == "" {
		return map[string]interface{}{"output": value}, nil
	}
	result, found := resolvePath(value, strings.Split(path, "."))
	if !found {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: fmt.Sprintf("path not found: %s", path)}
	}
	return map[string]interface{}{"output": result}, nil
}

func resolvePath(value interface{}, segments []string) (interface{}, bool) {
	current := value
	for _, seg := range segments {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// merge shallow-merges every map-typed value across the assembled input
// handles, visited in sorted handle-name order, later handles taking
// precedence. Nested objects are replaced, not merged recursively as the
// merge node's "merge_objects" does.
func merge(inputs registry.Inputs, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := map[string]interface{}{}
	for _, name := range names {
		if m, ok := inputs[name].(map[string]interface{}); ok {
			for k, val := range m {
				out[k] = val
			}
		}
	}
	return map[string]interface{}{"output": out}, nil
}

func stringify(value interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	if s, ok := value.(string); ok {
		return map[string]interface{}{"output": s}, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}
	return map[string]interface{}{"output": string(encoded)}, nil
}

// validate checks value against a JSON Schema-like definition given under
// params["schema"], using the same schema engine the workflow's JSON
// operations processor validates and structures data with.
func validate(value interface{}, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	schemaDef, ok := params["schema"]
	if !ok {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "validate requires a schema param"}
	}

	schemaBytes, err := json.Marshal(schemaDef)
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}
	dataBytes, err := json.Marshal(value)
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}

	result, err := schema.NewEngine().ValidateOnly(dataBytes, schemaBytes)
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "schema", Message: err.Error()}
	}

	out := map[string]interface{}{
		"output": result.Valid,
		"valid":  result.Valid,
	}
	if len(result.Errors) > 0 {
		errs := make([]interface{}, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = map[string]interface{}{"path": e.Path, "message": e.Message, "code": e.Code}
		}
		out["errors"] = errs
	}
	return out, nil
}

func encoding(params map[string]interface{}) string {
	if v, ok := params["encoding"].(string); ok {
		return v
	}
	return ""
}
