package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/engine/pkg/registry"
)

func testContext() registry.Context {
	return registry.Context{Context: context.Background(), Clock: registry.SystemClock}
}

func path(id, logic string, clauses ...map[string]interface{}) map[string]interface{} {
	raw := make([]interface{}, len(clauses))
	for i, c := range clauses {
		raw[i] = c
	}
	return map[string]interface{}{"id": id, "logic": logic, "clauses": raw}
}

func clause(field, operator string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"inputField": field, "operator": operator, "value": value}
}

func TestExecute_FirstMatchingPathWins(t *testing.T) {
	params := map[string]interface{}{
		"paths": []interface{}{
			path("low", "AND", clause("amount", ">", 1000.0)),
			path("high", "AND", clause("amount", ">", 10.0)),
		},
	}
	out, err := New().Execute(testContext(), params, registry.Inputs{"amount": 50.0})
	assert.Nil(t, err)
	result := out.(map[string]interface{})
	assert.Equal(t, "high", result["matched_path"])
	assert.Equal(t, []string{"low", "high"}, result["all_paths"])
}

func TestExecute_NoMatchReturnsNilOutput(t *testing.T) {
	params := map[string]interface{}{
		"paths": []interface{}{
			path("only", "AND", clause("amount", ">", 1000.0)),
		},
	}
	out, err := New().Execute(testContext(), params, registry.Inputs{"amount": 5.0})
	assert.Nil(t, err)
	result := out.(map[string]interface{})
	assert.Nil(t, result["output"])
	assert.Nil(t, result["matched_path"])
}

func TestExecute_OrLogicMatchesAnyClause(t *testing.T) {
	params := map[string]interface{}{
		"paths": []interface{}{
			path("either", "OR", clause("status", "==", "a"), clause("status", "==", "b")),
		},
	}
	out, err := New().Execute(testContext(), params, registry.Inputs{"status": "b"})
	assert.Nil(t, err)
	assert.Equal(t, "either", out.(map[string]interface{})["matched_path"])
}

func TestExecute_NestedFieldPath(t *testing.T) {
	params := map[string]interface{}{
		"paths": []interface{}{
			path("nested", "AND", clause("user.role", "==", "admin")),
		},
	}
	inputs := registry.Inputs{"user": map[string]interface{}{"role": "admin"}}
	out, err := New().Execute(testContext(), params, inputs)
	assert.Nil(t, err)
	assert.Equal(t, "nested", out.(map[string]interface{})["matched_path"])
}

func TestCompare_Operators(t *testing.T) {
	tests := []struct {
		operator string
		actual   interface{}
		expected interface{}
		want     bool
	}{
		{"==", 1.0, 1.0, true},
		{"!=", "a", "b", true},
		{">", 5.0, 3.0, true},
		{"<=", 3.0, 3.0, true},
		{"contains", "hello world", "world", true},
		{"not_contains", "hello", "xyz", true},
		{"startswith", "hello", "he", true},
		{"endswith", "hello", "lo", true},
		{"is_empty", "", nil, true},
		{"is_not_empty", "x", nil, true},
		{"matches_regex", "abc123", "^[a-z]+\\d+$", true},
		{"in_list", "b", []interface{}{"a", "b", "c"}, true},
		{"not_in_list", "z", []interface{}{"a", "b", "c"}, true},
		{"length_equals", "abc", 3.0, true},
		{"length_greater_than", []interface{}{1, 2, 3}, 2.0, true},
		{"type_equals", "x", "string", true},
		{"type_equals", 1.0, "number", true},
		{"unknown_operator", 1, 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, compare(tt.operator, tt.actual, tt.expected), "operator %s", tt.operator)
	}
}

func TestDateBetween(t *testing.T) {
	assert.True(t, compare("date_between", "2024-06-15", []interface{}{"2024-01-01", "2024-12-31"}))
	assert.False(t, compare("date_between", "2025-01-15", []interface{}{"2024-01-01", "2024-12-31"}))
}
