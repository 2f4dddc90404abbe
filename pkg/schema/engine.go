package schema

import (
	"encoding/json"
	"fmt"
)

// Engine orchestrates schema-based data processing
type Engine struct {
	parser    *Parser
	validator *Validator
}

// NewEngine creates a new schema engine
func NewEngine() *Engine {
	return &Engine{
		parser:    NewParser(),
		validator: NewValidator(),
	}
}

// ValidateOnly validates data against schema without transformation
func (e *Engine) ValidateOnly(inputData []byte, schemaDefinition []byte) (*ValidationResult, error) {
	// Parse schema
	schema, err := e.parser.Parse(schemaDefinition)
	if err != nil {
		return nil, fmt.Errorf("schema parse error: %w", err)
	}

	// Parse data
	var data interface{}
	if err := json.Unmarshal(inputData, &data); err != nil {
		return nil, fmt.Errorf("invalid input JSON: %w", err)
	}

	// Validate only
	return e.validator.Validate(data, schema), nil
}
