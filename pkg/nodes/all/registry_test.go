package all

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistry_RegistersAllBuiltinTypes(t *testing.T) {
	r := NewRegistry()
	for _, typeTag := range []string{
		"input", "output", "condition", "merge", "time",
		"text_processor", "json_handler", "file_transformer",
	} {
		assert.True(t, r.HasHandler(typeTag), "expected handler registered for %q", typeTag)
	}
}

func TestNewRegistry_NoExtraTypes(t *testing.T) {
	r := NewRegistry()
	assert.Len(t, r.RegisteredTypes(), 8)
}
