// Package textproc implements the built-in "text_processor" node type:
// pure string transforms selected by an "operation" param, following the
// transform/extract/split/analyze shape the workflow's original
// implementation exposed for text nodes.
package textproc

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	strproc "github.com/flowforge/engine/pkg/process/strings"
	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	text, ok := textInput(inputs, params)
	if !ok {
		return nil, &workflow.NodeError{Kind: workflow.ErrMissingInput, Message: "text_processor requires a text input"}
	}

	operation := strParam(params, "operation", "transform")
	switch operation {
	case "transform":
		return transform(text, params)
	case "extract":
		return extract(text, params)
	case "split":
		return split(text, params)
	case "analyze":
		return analyze(text), nil
	case "script":
		return runScript(text, params)
	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown text_processor operation: " + operation}
	}
}

func textInput(inputs registry.Inputs, params map[string]interface{}) (string, bool) {
	if v, ok := inputs["input"]; ok {
		return fmt.Sprintf("%v", v), true
	}
	if v, ok := params["text"].(string); ok {
		return v, true
	}
	return "", false
}

func transform(text string, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	kind := strParam(params, "transformType", "uppercase")
	var out string
	var err error
	switch kind {
	case "uppercase":
		out = strproc.ToUpper(text)
	case "lowercase":
		out = strproc.ToLower(text)
	case "capitalize":
		out = strproc.Capitalize(text)
	case "title":
		out = strproc.TitleCase(text)
	case "strip":
		out = strproc.Trim(text, strParam(params, "cutset", ""))
	case "normalize":
		out = strproc.Normalize(text)
	case "base64_encode":
		out = strproc.Base64Encode(text)
	case "base64_decode":
		out, err = strproc.Base64Decode(text)
	case "uri_encode":
		out = strproc.URIEncode(text)
	case "uri_decode":
		out, err = strproc.URIDecode(text)
	case "replace":
		out, err = strproc.Replace(text, strParam(params, "pattern", ""), strParam(params, "replacement", ""), -1, false)
	case "regex_replace":
		out, err = strproc.Replace(text, strParam(params, "pattern", ""), strParam(params, "replacement", ""), -1, true)
	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown transformType: " + kind}
	}
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}
	return map[string]interface{}{"output": out}, nil
}

func extract(text string, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	pattern := strParam(params, "extractPattern", "")
	if pattern == "" {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "extract requires extractPattern"}
	}
	matches, err := strproc.RegexExtract(text, pattern)
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}
	result := make([]interface{}, len(matches))
	for i, m := range matches {
		if len(m) > 0 {
			result[i] = m[0]
		}
	}
	return map[string]interface{}{"output": result}, nil
}

func split(text string, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	delim := strParam(params, "splitDelimiter", ",")
	parts := strproc.Split(text, delim)
	result := make([]interface{}, len(parts))
	for i, p := range parts {
		result[i] = p
	}
	return map[string]interface{}{"output": result}, nil
}

func analyze(text string) interface{} {
	words := strings.Fields(text)
	return map[string]interface{}{
		"output":     len(words),
		"char_count": strproc.Length(text),
		"word_count": len(words),
		"line_count": len(strproc.Split(text, "\n")),
	}
}

// runScript evaluates a sandboxed JavaScript transform: the script sees
// the input text as the global "text" and must assign its result to a
// global "result".
func runScript(text string, params map[string]interface{}) (interface{}, *workflow.NodeError) {
	script := strParam(params, "script", "")
	if script == "" {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "script operation requires a script param"}
	}

	vm := goja.New()
	if err := vm.Set("text", text); err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "script", Message: err.Error()}
	}
	if _, err := vm.RunString(script); err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "script", Message: err.Error()}
	}

	result := vm.Get("result")
	if result == nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "script", Message: "script did not set a result"}
	}
	return map[string]interface{}{"output": result.Export()}, nil
}

func strParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}
