package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput_ScalarRawBecomesPrimaryAndAllAliases(t *testing.T) {
	out := Output("hi there", "text_processor", "proc-1", false)
	assert.Equal(t, "hi there", out.Primary)
	for _, field := range []string{"output", "content", "text", "response", "value", "result"} {
		assert.Equal(t, "hi there", out.Extra[field])
	}
	assert.Equal(t, "text_processor", out.Extra["type"])
	assert.Equal(t, "proc-1", out.Extra["node_name"])
}

func TestOutput_MapWithExplicitOutputKeyWins(t *testing.T) {
	raw := map[string]interface{}{"output": "canonical", "text": "other"}
	out := Output(raw, "merge", "merge-1", false)
	assert.Equal(t, "canonical", out.Primary)
	assert.Equal(t, "other", out.Extra["text"])
	assert.Equal(t, "canonical", out.Extra["response"])
}

func TestOutput_MapFallsBackToContentFieldOrder(t *testing.T) {
	raw := map[string]interface{}{"content": "from content"}
	out := Output(raw, "merge", "merge-1", false)
	assert.Equal(t, "from content", out.Primary)
	assert.Equal(t, "from content", out.Extra["output"])
}

func TestOutput_MapWithNoKnownFieldYieldsNilPrimary(t *testing.T) {
	raw := map[string]interface{}{"foo": "bar"}
	out := Output(raw, "merge", "merge-1", false)
	assert.Nil(t, out.Primary)
	assert.Equal(t, "bar", out.Extra["foo"])
	assert.Nil(t, out.Extra["output"])
}

func TestOutput_NodeNameDefaultsPreservedWhenAlreadySet(t *testing.T) {
	raw := map[string]interface{}{"output": "x", "node_name": "custom"}
	out := Output(raw, "merge", "fallback-id", false)
	assert.Equal(t, "custom", out.Extra["node_name"])
}

func TestOutput_InputNodeMaterializesDeclaredTypeField(t *testing.T) {
	raw := map[string]interface{}{"output": "img-data", "image": "placeholder"}
	out := Output(raw, "input", "input-1", true)
	assert.Equal(t, "img-data", out.Extra["image"])
}

func TestOutput_InputNodeLeavesUnsetTypeFieldsAbsent(t *testing.T) {
	raw := map[string]interface{}{"output": "text-data"}
	out := Output(raw, "input", "input-1", true)
	_, ok := out.Extra["audio"]
	assert.False(t, ok)
}

func TestIdempotent_ReturnsTrueForStableRecord(t *testing.T) {
	out := Output("value", "text_processor", "proc-1", false)
	assert.True(t, Idempotent(out, "text_processor", "proc-1", false))
}
