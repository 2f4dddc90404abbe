package outputnode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/engine/pkg/registry"
)

func testContext() registry.Context {
	return registry.Context{Context: context.Background(), Clock: registry.SystemClock}
}

func TestExecute_ExplicitOutputParamWins(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{"output": "fixed"}, registry.Inputs{"input": "ignored"})
	assert.Nil(t, err)
	assert.Equal(t, "fixed", out.(map[string]interface{})["output"])
}

func TestExecute_TemplateParamUsedWhenNoOutput(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{"template": "resolved text"}, registry.Inputs{})
	assert.Nil(t, err)
	assert.Equal(t, "resolved text", out.(map[string]interface{})["output"])
}

func TestExecute_PassesThroughUpstreamValue(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{}, registry.Inputs{"input": 7})
	assert.Nil(t, err)
	assert.Equal(t, 7, out.(map[string]interface{})["output"])
}

func TestExecute_ConcatenatesArrayInput(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{}, registry.Inputs{"input": []interface{}{"a", "b", "c"}})
	assert.Nil(t, err)
	assert.Equal(t, "abc", out.(map[string]interface{})["output"])
}

func TestExecute_NoInputNoParam(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{}, registry.Inputs{})
	assert.Nil(t, err)
	assert.Nil(t, out.(map[string]interface{})["output"])
}
