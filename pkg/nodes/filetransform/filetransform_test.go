package filetransform

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/engine/pkg/registry"
)

func testContext() registry.Context {
	return registry.Context{Context: context.Background(), Clock: registry.SystemClock}
}

func TestExecute_MissingContent(t *testing.T) {
	_, err := New().Execute(testContext(), map[string]interface{}{}, registry.Inputs{"input": ""})
	assert.NotNil(t, err)
}

func TestConvert_TextPassthrough(t *testing.T) {
	params := map[string]interface{}{"operation": "convert", "outputFormat": "text"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": "hello file"})
	require.Nil(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, "hello file", result["output"])
	meta := result["metadata"].(map[string]interface{})
	assert.Equal(t, "text/plain", meta["type"])
}

func TestConvert_Base64(t *testing.T) {
	params := map[string]interface{}{"operation": "convert", "outputFormat": "base64"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": "hello file"})
	require.Nil(t, err)
	result := out.(map[string]interface{})
	decoded, derr := base64.StdEncoding.DecodeString(result["output"].(string))
	require.NoError(t, derr)
	assert.Equal(t, "hello file", string(decoded))
}

func TestConvert_JSONWrapsPlainText(t *testing.T) {
	params := map[string]interface{}{"operation": "convert", "outputFormat": "json"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": "plain text"})
	require.Nil(t, err)
	result := out.(map[string]interface{})
	data := result["data"].(map[string]interface{})
	assert.Equal(t, "plain text", data["text"])
}

func TestConvert_JSONParsesJSONContent(t *testing.T) {
	bundle := map[string]interface{}{
		"content":  `{"a":1}`,
		"metadata": map[string]interface{}{"filename": "data.txt"},
	}
	params := map[string]interface{}{"operation": "convert", "outputFormat": "json"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": bundle})
	require.Nil(t, err)
	result := out.(map[string]interface{})
	data := result["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["a"])
}

func TestConvert_UnknownOutputFormat(t *testing.T) {
	params := map[string]interface{}{"operation": "convert", "outputFormat": "pdf"}
	_, err := New().Execute(testContext(), params, registry.Inputs{"input": "x"})
	assert.NotNil(t, err)
}

func TestExtract_MetadataFromFilename(t *testing.T) {
	bundle := map[string]interface{}{
		"content":  "csv,data",
		"metadata": map[string]interface{}{"filename": "report.csv"},
	}
	params := map[string]interface{}{"operation": "extract"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": bundle})
	require.Nil(t, err)
	result := out.(map[string]interface{})["output"].(map[string]interface{})
	assert.Equal(t, ".csv", result["extension"])
	assert.Equal(t, "report", result["basename"])
	assert.NotEmpty(t, result["type"])
}

func TestExtract_BareStringDefaultsMetadata(t *testing.T) {
	params := map[string]interface{}{"operation": "extract"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": "just text"})
	require.Nil(t, err)
	result := out.(map[string]interface{})["output"].(map[string]interface{})
	assert.Equal(t, "unknown.txt", result["filename"])
	assert.Equal(t, len("just text"), result["size"])
}

func TestExecute_UnknownOperation(t *testing.T) {
	params := map[string]interface{}{"operation": "bogus"}
	_, err := New().Execute(testContext(), params, registry.Inputs{"input": "x"})
	assert.NotNil(t, err)
}
