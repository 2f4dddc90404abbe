package inputnode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

func testContext() registry.Context {
	return registry.Context{Context: context.Background(), Clock: registry.SystemClock}
}

func TestExecute_MissingInput(t *testing.T) {
	_, err := New().Execute(testContext(), nil, registry.Inputs{})
	assert.NotNil(t, err)
	assert.Equal(t, workflow.ErrMissingInput, err.Kind)
}

func TestExecute_DefaultsToText(t *testing.T) {
	out, err := New().Execute(testContext(), map[string]interface{}{}, registry.Inputs{"input": "hello"})
	assert.Nil(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, "hello", result["output"])
	assert.Equal(t, "hello", result["text"])
}

func TestExecute_TypedFields(t *testing.T) {
	tests := []struct {
		declared string
		field    string
	}{
		{"Image", "image"},
		{"audio", "audio"},
		{"File", "file"},
		{"json", "json"},
		{"", "text"},
	}
	for _, tt := range tests {
		out, err := New().Execute(testContext(), map[string]interface{}{"type": tt.declared}, registry.Inputs{"input": 42})
		assert.Nil(t, err)
		result := out.(map[string]interface{})
		assert.Equal(t, 42, result[tt.field])
		assert.Equal(t, 42, result["output"])
	}
}
