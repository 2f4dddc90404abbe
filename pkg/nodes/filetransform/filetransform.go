// Package filetransform implements the built-in "file_transformer" node
// type: converting file-shaped content (a {content, metadata} bundle, or
// a raw string) between text, base64, and JSON representations, and
// extracting file metadata.
package filetransform

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"path"
	"strings"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	operation := strParam(params, "operation", "convert")
	outputFormat := strParam(params, "outputFormat", "text")
	encoding := strParam(params, "encoding", "utf-8")

	content, metadata, ok := fileContent(inputs["input"])
	if !ok {
		return nil, &workflow.NodeError{Kind: workflow.ErrMissingInput, Message: "no valid file content found in input"}
	}

	switch operation {
	case "convert":
		return convert(content, metadata, outputFormat, encoding)
	case "extract":
		return extract(content, metadata, encoding), nil
	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown file_transformer operation: " + operation}
	}
}

// fileContent accepts either a {content, metadata} bundle (as produced
// by a file-reading node) or a bare string treated as the content.
func fileContent(input interface{}) (string, map[string]interface{}, bool) {
	switch v := input.(type) {
	case map[string]interface{}:
		content, ok := v["content"].(string)
		if !ok {
			return "", nil, false
		}
		metadata, _ := v["metadata"].(map[string]interface{})
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		return content, metadata, true
	case string:
		if v == "" {
			return "", nil, false
		}
		return v, map[string]interface{}{
			"filename": "unknown.txt",
			"type":     "text/plain",
			"size":     len(v),
		}, true
	default:
		return "", nil, false
	}
}

func convert(content string, metadata map[string]interface{}, outputFormat, encoding string) (interface{}, *workflow.NodeError) {
	switch outputFormat {
	case "base64":
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		return map[string]interface{}{
			"output": encoded,
			"metadata": map[string]interface{}{
				"filename":      strOr(metadata["filename"], "unknown.txt"),
				"type":          "text/plain;base64",
				"size":          len(encoded),
				"original_size": len(content),
				"encoding":      "base64",
			},
		}, nil

	case "text":
		return map[string]interface{}{
			"output": content,
			"metadata": map[string]interface{}{
				"filename": strOr(metadata["filename"], "unknown.txt"),
				"type":     "text/plain",
				"size":     len(content),
				"encoding": encoding,
			},
		}, nil

	case "json":
		trimmed := strings.TrimSpace(content)
		var data interface{}
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
				return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
			}
		} else {
			data = map[string]interface{}{"text": content}
		}
		jsonStr, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
		}
		filename := strings.ReplaceAll(strOr(metadata["filename"], ""), ".", "") + ".json"
		return map[string]interface{}{
			"output": string(jsonStr),
			"data":   data,
			"metadata": map[string]interface{}{
				"filename": filename,
				"type":     "application/json",
				"size":     len(jsonStr),
			},
		}, nil

	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown outputFormat: " + outputFormat}
	}
}

func extract(content string, metadata map[string]interface{}, encoding string) interface{} {
	filename := strOr(metadata["filename"], "unknown")
	fileType := strOr(metadata["type"], "")
	if fileType == "" || fileType == "unknown" {
		if guessed := mime.TypeByExtension(path.Ext(filename)); guessed != "" {
			fileType = guessed
		} else {
			fileType = "unknown"
		}
	}

	ext := path.Ext(filename)
	basename := strings.TrimSuffix(path.Base(filename), ext)

	m := map[string]interface{}{
		"filename": filename,
		"extension": ext,
		"basename":  basename,
		"type":      fileType,
		"size":      len(content),
		"encoding":  encoding,
	}
	return map[string]interface{}{"output": m, "metadata": m}
}

func strOr(v interface{}, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func strParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}
