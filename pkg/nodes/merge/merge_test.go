package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/engine/pkg/registry"
)

func testContext() registry.Context {
	return registry.Context{Context: context.Background(), Clock: registry.SystemClock}
}

func TestExecute_PickFirst(t *testing.T) {
	params := map[string]interface{}{"function": "pick_first", "handles": []interface{}{"a", "b"}}
	out, err := New().Execute(testContext(), params, registry.Inputs{"a": nil, "b": "value"})
	assert.Nil(t, err)
	assert.Equal(t, "value", out.(map[string]interface{})["output"])
}

func TestExecute_JoinAllNumericSums(t *testing.T) {
	params := map[string]interface{}{"function": "join_all", "handles": []interface{}{"a", "b"}}
	out, err := New().Execute(testContext(), params, registry.Inputs{"a": 1.0, "b": 2.0})
	assert.Nil(t, err)
	assert.Equal(t, 3.0, out.(map[string]interface{})["output"])
}

func TestExecute_JoinAllWithDelimiter(t *testing.T) {
	params := map[string]interface{}{"function": "join_all", "delimiter": ",", "handles": []interface{}{"a", "b"}}
	out, err := New().Execute(testContext(), params, registry.Inputs{"a": "x", "b": "y"})
	assert.Nil(t, err)
	assert.Equal(t, "x,y", out.(map[string]interface{})["output"])
}

func TestExecute_ConcatArrays(t *testing.T) {
	params := map[string]interface{}{"function": "concat_arrays", "handles": []interface{}{"a", "b"}}
	inputs := registry.Inputs{
		"a": []interface{}{1, 2},
		"b": []interface{}{3},
	}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{1, 2, 3}, out.(map[string]interface{})["output"])
}

func TestExecute_MergeObjects(t *testing.T) {
	params := map[string]interface{}{"function": "merge_objects", "handles": []interface{}{"a", "b"}}
	inputs := registry.Inputs{
		"a": map[string]interface{}{"x": 1},
		"b": map[string]interface{}{"y": 2},
	}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"x": 1, "y": 2}, out.(map[string]interface{})["output"])
}

func TestExecute_MergeObjectsDeepMergesNestedMaps(t *testing.T) {
	params := map[string]interface{}{"function": "merge_objects", "handles": []interface{}{"a", "b"}}
	inputs := registry.Inputs{
		"a": map[string]interface{}{
			"user":  map[string]interface{}{"name": "Ada", "role": "admin"},
			"count": 1,
		},
		"b": map[string]interface{}{
			"user": map[string]interface{}{"role": "member", "active": true},
		},
	}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, map[string]interface{}{
		"user": map[string]interface{}{
			"name":   "Ada",
			"role":   "member",
			"active": true,
		},
		"count": 1,
	}, out.(map[string]interface{})["output"])
}

func TestExecute_MergeObjectsLaterScalarWinsOverEarlierMap(t *testing.T) {
	params := map[string]interface{}{"function": "merge_objects", "handles": []interface{}{"a", "b"}}
	inputs := registry.Inputs{
		"a": map[string]interface{}{"x": map[string]interface{}{"nested": true}},
		"b": map[string]interface{}{"x": "replaced"},
	}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"x": "replaced"}, out.(map[string]interface{})["output"])
}

func TestExecute_AvgMinMax(t *testing.T) {
	inputs := registry.Inputs{"a": 1.0, "b": 5.0, "c": 3.0}
	handles := []interface{}{"a", "b", "c"}

	out, err := New().Execute(testContext(), map[string]interface{}{"function": "avg", "handles": handles}, inputs)
	assert.Nil(t, err)
	assert.Equal(t, 3.0, out.(map[string]interface{})["output"])

	out, err = New().Execute(testContext(), map[string]interface{}{"function": "min", "handles": handles}, inputs)
	assert.Nil(t, err)
	assert.Equal(t, 1.0, out.(map[string]interface{})["output"])

	out, err = New().Execute(testContext(), map[string]interface{}{"function": "max", "handles": handles}, inputs)
	assert.Nil(t, err)
	assert.Equal(t, 5.0, out.(map[string]interface{})["output"])
}

func TestExecute_CreateObject(t *testing.T) {
	params := map[string]interface{}{"function": "create_object", "handles": []interface{}{"a", "b"}}
	inputs := registry.Inputs{"a": "first", "b": "second"}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, map[string]interface{}{"a": "first", "b": "second"}, out.(map[string]interface{})["output"])
}

func TestExecute_UnknownFunction(t *testing.T) {
	params := map[string]interface{}{"function": "nonsense"}
	_, err := New().Execute(testContext(), params, registry.Inputs{})
	assert.NotNil(t, err)
}

func TestExecute_HandlesFallBackToSortedInputKeys(t *testing.T) {
	params := map[string]interface{}{"function": "concat_arrays"}
	inputs := registry.Inputs{
		"b": []interface{}{2},
		"a": []interface{}{1},
	}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, []interface{}{1, 2}, out.(map[string]interface{})["output"])
}
