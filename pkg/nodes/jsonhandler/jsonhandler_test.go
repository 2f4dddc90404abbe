package jsonhandler

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

func TestParse_PlainJSON(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{"operation": "parse"}, registry.Inputs{"input": `{"a":1}`})
	require.Nil(t, err)
	result := out.(map[string]interface{})["output"].(map[string]interface{})
	assert.Equal(t, 1.0, result["a"])
}

func TestParse_Base64Encoded(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))
	params := map[string]interface{}{"operation": "parse", "encoding": "base64"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": encoded})
	require.Nil(t, err)
	result := out.(map[string]interface{})["output"].(map[string]interface{})
	assert.Equal(t, 1.0, result["a"])
}

func TestParse_InvalidBase64(t *testing.T) {
	params := map[string]interface{}{"operation": "parse", "encoding": "base64"}
	_, err := New().Execute(testContext(), params, registry.Inputs{"input": "not-base64!!"})
	assert.NotNil(t, err)
}

func TestProduce_PrettyPrint(t *testing.T) {
	value := map[string]interface{}{"a": 1.0}
	params := map[string]interface{}{"operation": "produce", "pretty": true}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": value})
	require.Nil(t, err)
	assert.Contains(t, out.(map[string]interface{})["output"].(string), "\n")
}

func TestProduce_Base64(t *testing.T) {
	value := map[string]interface{}{"a": 1.0}
	params := map[string]interface{}{"operation": "produce", "encoding": "base64"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": value})
	require.Nil(t, err)
	encoded := out.(map[string]interface{})["output"].(string)
	decoded, derr := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, derr)
	assert.JSONEq(t, `{"a":1}`, string(decoded))
}

func TestQuery_DottedPath(t *testing.T) {
	value := map[string]interface{}{"items": []interface{}{map[string]interface{}{"name": "first"}}}
	params := map[string]interface{}{"operation": "query", "path": "items.0.name"}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": value})
	require.Nil(t, err)
	assert.Equal(t, "first", out.(map[string]interface{})["output"])
}

func TestQuery_NotFound(t *testing.T) {
	value := map[string]interface{}{"items": []interface{}{}}
	params := map[string]interface{}{"operation": "query", "path": "items.5.name"}
	_, err := New().Execute(testContext(), params, registry.Inputs{"input": value})
	assert.NotNil(t, err)
}

func TestMerge_ShallowMergesMaps(t *testing.T) {
	inputs := registry.Inputs{
		"a": map[string]interface{}{"x": 1},
		"b": map[string]interface{}{"y": 2},
	}
	out, err := New().Execute(testContext(), map[string]interface{}{"operation": "merge"}, inputs)
	require.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2}, out.(map[string]interface{})["output"])
}

func TestStringify_PassesThroughStrings(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{"operation": "stringify"}, registry.Inputs{"input": "already a string"})
	require.Nil(t, err)
	assert.Equal(t, "already a string", out.(map[string]interface{})["output"])
}

func TestStringify_MarshalsValues(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{"operation": "stringify"}, registry.Inputs{"input": map[string]interface{}{"a": 1.0}})
	require.Nil(t, err)
	assert.JSONEq(t, `{"a":1}`, out.(map[string]interface{})["output"].(string))
}

func TestValidate_RequiresSchemaParam(t *testing.T) {
	_, err := New().Execute(testContext(), map[string]interface{}{"operation": "validate"}, registry.Inputs{"input": map[string]interface{}{}})
	assert.NotNil(t, err)
}

func TestValidate_ValidAgainstSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "STRING", "required": true},
		},
	}
	params := map[string]interface{}{"operation": "validate", "schema": schema}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": map[string]interface{}{"name": "ok"}})
	require.Nil(t, err)
	assert.Equal(t, true, out.(map[string]interface{})["valid"])
}

func TestValidate_InvalidAgainstSchema(t *testing.T) {
	schema := map[string]interface{}{
		"type": "OBJECT",
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "STRING", "required": true},
		},
	}
	params := map[string]interface{}{"operation": "validate", "schema": schema}
	out, err := New().Execute(testContext(), params, registry.Inputs{"input": map[string]interface{}{}})
	require.Nil(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, false, result["valid"])
	assert.NotEmpty(t, result["errors"])
}

func TestExecute_UnknownOperation(t *testing.T) {
	_, err := New().Execute(testContext(), map[string]interface{}{"operation": "bogus"}, registry.Inputs{"input": "x"})
	assert.NotNil(t, err)
}
