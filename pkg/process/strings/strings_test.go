package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcatenate(t *testing.T) {
	assert.Equal(t, "a-b-c", Concatenate("-", "a", "b", "c"))
	assert.Equal(t, "abc", Concatenate("", "a", "b", "c"))
	assert.Equal(t, "", Concatenate("-"))
}

func TestSplitAndJoin(t *testing.T) {
	parts := Split("a,b,c", ",")
	assert.Equal(t, []string{"a", "b", "c"}, parts)
	assert.Equal(t, "a|b|c", Join(parts, "|"))
	assert.Equal(t, []string{"abc"}, Split("abc", ""))
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "hello", Trim("  hello  ", ""))
	assert.Equal(t, "hello", Trim("xxhelloxx", "x"))
}

func TestReplace_Plain(t *testing.T) {
	out, err := Replace("aaa", "a", "b", -1, false)
	require.NoError(t, err)
	assert.Equal(t, "bbb", out)
}

func TestReplace_RegexWithCount(t *testing.T) {
	out, err := Replace("a1b2c3", `\d`, "#", 2, true)
	require.NoError(t, err)
	assert.Equal(t, "a#b#c3", out)
}

func TestReplace_InvalidRegex(t *testing.T) {
	_, err := Replace("abc", "(", "x", -1, true)
	assert.Error(t, err)
}

func TestSubstring(t *testing.T) {
	assert.Equal(t, "ell", Substring("hello", 1, 4))
	assert.Equal(t, "llo", Substring("hello", -3, 0))
}

func TestCaseTransforms(t *testing.T) {
	assert.Equal(t, "HELLO", ToUpper("hello"))
	assert.Equal(t, "hello", ToLower("HELLO"))
	assert.Equal(t, "Hello World", TitleCase("hello world"))
	assert.Equal(t, "Hello", Capitalize("hello"))
	assert.Equal(t, "", Capitalize(""))
}

func TestContains(t *testing.T) {
	ok, err := Contains("hello world", "world", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Contains("abc123", `\d+`, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLength_CountsRunesNotBytes(t *testing.T) {
	assert.Equal(t, 5, Length("héllo"))
	assert.Less(t, Length("héllo"), len("héllo"))
}

func TestRegexExtract(t *testing.T) {
	matches, err := RegexExtract("order 12 and 34", `\d+`)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	assert.Equal(t, "12", matches[0][0])
	assert.Equal(t, "34", matches[1][0])
}

func TestFormat(t *testing.T) {
	out := Format("Hello {name}, you are ${age}", map[string]string{"name": "Alice", "age": "30"})
	assert.Equal(t, "Hello Alice, you are 30", out)
}

func TestBase64RoundTrip(t *testing.T) {
	encoded := Base64Encode("hello")
	decoded, err := Base64Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)
}

func TestBase64Decode_Invalid(t *testing.T) {
	_, err := Base64Decode("not-valid-base64!!")
	assert.Error(t, err)
}

func TestURIEncodeDecode(t *testing.T) {
	encoded := URIEncode("a b&c")
	decoded, err := URIDecode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "a b&c", decoded)
}

func TestNormalize_RemovesDiacritics(t *testing.T) {
	assert.Equal(t, "cafe", Normalize("café"))
	assert.Equal(t, "naive", Normalize("naïve"))
}
