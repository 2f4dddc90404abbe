package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
	"type": "OBJECT",
	"properties": {
		"name": {"type": "STRING", "required": true},
		"age": {"type": "NUMBER"}
	}
}`

func TestValidateOnly_ValidDataPasses(t *testing.T) {
	e := NewEngine()
	result, err := e.ValidateOnly([]byte(`{"name":"Ada","age":30}`), []byte(personSchema))
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateOnly_MissingRequiredFieldFails(t *testing.T) {
	e := NewEngine()
	result, err := e.ValidateOnly([]byte(`{"age":30}`), []byte(personSchema))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateOnly_InvalidSchemaJSONErrors(t *testing.T) {
	e := NewEngine()
	_, err := e.ValidateOnly([]byte(`{}`), []byte(`not json`))
	assert.Error(t, err)
}

func TestValidateOnly_InvalidInputJSONErrors(t *testing.T) {
	e := NewEngine()
	_, err := e.ValidateOnly([]byte(`not json`), []byte(personSchema))
	assert.Error(t, err)
}

func TestValidateOnly_NestedObjectMissingRequiredFieldFails(t *testing.T) {
	e := NewEngine()
	nestedSchema := `{
		"type": "OBJECT",
		"properties": {
			"name": {"type": "STRING", "required": true},
			"address": {
				"type": "OBJECT",
				"properties": {
					"city": {"type": "STRING", "required": true}
				}
			}
		}
	}`
	result, err := e.ValidateOnly([]byte(`{"name":"Ada","address":{}}`), []byte(nestedSchema))
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestIsValidType_RecognizesDeclaredTypesOnly(t *testing.T) {
	assert.True(t, IsValidType(TypeString))
	assert.True(t, IsValidType(TypeObject))
	assert.False(t, IsValidType(SchemaType("BOGUS")))
}
