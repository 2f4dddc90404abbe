// Package template implements the {{node_ref.field}} substitution
// mini-language used to wire node parameters to upstream outputs. The
// resolver is a pure, lock-free function: identical inputs always produce
// identical output and warnings, and it never touches the output table it
// is given beyond reading it.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowforge/engine/pkg/workflow"
)

// tokenPattern matches {{ ws? ref . field ws? }}. Tokens that don't match
// this shape are left verbatim, per spec.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_\-]+)\.([A-Za-z0-9_\-]+)\s*\}\}`)

// suffixNumber captures a trailing -N or _N on the requested ref.
var suffixNumber = regexp.MustCompile(`[-_](\d+)$`)

// trailingDigits captures trailing digits on a candidate table key with no
// separator required, matching the original's `output_key.endswith(num)`
// (variable_processor.py) rather than requiring a `-`/`_` before them —
// candidate keys like "input_input0" have no separator before the "0".
var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Warning records a token that could not be resolved.
type Warning struct {
	Token  string
	Reason string
}

// fallbackOrder is the standard field fallback chain, per §4.1 step 3.
var fallbackOrder = []string{"output", "text", "content", "response", "result", "value"}

// Resolve substitutes every {{ref.field}} token in text using table. It
// returns the substituted text and any unresolved-token warnings. Resolve
// never mutates table and is safe to call concurrently on disjoint inputs.
func Resolve(text string, table map[string]workflow.NodeOutput) (string, []Warning) {
	var warnings []Warning
	result := tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := tokenPattern.FindStringSubmatch(match)
		ref, field := sub[1], sub[2]

		nodeKey, ok := normalizeNodeName(ref, table)
		if !ok {
			warnings = append(warnings, Warning{Token: ref + "." + field, Reason: "node not found"})
			return match
		}

		output := table[nodeKey]
		value, ok := resolveField(output, field)
		if !ok {
			warnings = append(warnings, Warning{Token: ref + "." + field, Reason: "field not found"})
			return match
		}

		return coerce(value)
	})
	return result, warnings
}

// ResolveValue resolves a single {{ref.field}} token directly, returning
// the raw (non-stringified) value when the whole text is exactly one
// token with nothing else around it; used internally when callers need
// typed values rather than strings. Returns ok=false if text is not a
// single bare token or the token cannot be resolved.
func ResolveValue(text string, table map[string]workflow.NodeOutput) (interface{}, bool) {
	sub := tokenPattern.FindStringSubmatch(text)
	if sub == nil || sub[0] != text {
		return nil, false
	}
	ref, field := sub[1], sub[2]
	nodeKey, ok := normalizeNodeName(ref, table)
	if !ok {
		return nil, false
	}
	return resolveField(table[nodeKey], field)
}

// ResolveDeep walks a JSON-like value (string, map, slice, or scalar) and
// applies Resolve to every contained string, recursively. It returns the
// transformed value (a deep copy; the input is never mutated) and the
// union of all warnings encountered.
func ResolveDeep(value interface{}, table map[string]workflow.NodeOutput) (interface{}, []Warning) {
	var warnings []Warning
	out := resolveDeep(value, table, &warnings)
	return out, warnings
}

func resolveDeep(value interface{}, table map[string]workflow.NodeOutput, warnings *[]Warning) interface{} {
	switch v := value.(type) {
	case string:
		resolved, w := Resolve(v, table)
		*warnings = append(*warnings, w...)
		return resolved
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = resolveDeep(inner, table, warnings)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = resolveDeep(inner, table, warnings)
		}
		return out
	default:
		return value
	}
}

// Extract returns every node_ref.field token found in text, without
// resolving them.
func Extract(text string) []string {
	matches := tokenPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1]+"."+m[2])
	}
	return out
}

// normalizeNodeName implements the node-name normalization ladder from
// §4.1: exact match, -/_ interchange, suffix-number alignment, then
// prefix-family fuzzy matching.
func normalizeNodeName(ref string, table map[string]workflow.NodeOutput) (string, bool) {
	if _, ok := table[ref]; ok {
		return ref, true
	}

	swapped := swapDashUnderscore(ref)
	if _, ok := table[swapped]; ok {
		return swapped, true
	}

	refNum, refHasNum := trailingInt(ref)
	if refHasNum {
		refCore := suffixNumber.ReplaceAllString(ref, "")
		for key := range table {
			keyNum, keyHasNum := trailingLooseInt(key)
			if !keyHasNum || keyNum != refNum {
				continue
			}
			keyCore := trailingDigits.ReplaceAllString(key, "")
			if strings.Contains(keyCore, refCore) || strings.Contains(refCore, keyCore) {
				return key, true
			}
		}
	}

	for family := range knownFamilies {
		prefix := family + "_"
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		num, hasNum := trailingInt(ref)
		if !hasNum {
			continue
		}
		for key := range table {
			if !containsFamily(key, family) {
				continue
			}
			keyNum, keyHasNum := trailingLooseInt(key)
			if keyHasNum && keyNum == num {
				return key, true
			}
		}
	}

	return "", false
}

// knownFamilies lists the historical id-family prefixes that get fuzzy
// matching against candidate keys containing the family name (or its
// alias, for "openai" -> "ai").
var knownFamilies = map[string][]string{
	"input":  {"input"},
	"openai": {"openai", "ai"},
	"output": {"output", "result"},
}

func containsFamily(key, family string) bool {
	for _, alias := range knownFamilies[family] {
		if strings.Contains(key, alias) {
			return true
		}
	}
	return false
}

func swapDashUnderscore(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '-':
			b.WriteRune('_')
		case '_':
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trailingInt(s string) (int, bool) {
	m := suffixNumber.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// trailingLooseInt extracts a candidate key's trailing digit run without
// requiring a -/_ separator before it, so "input_input0" yields 0 just
// like the ref-side "input_0" does.
func trailingLooseInt(s string) (int, bool) {
	m := trailingDigits.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// resolveField implements §4.1's field-resolution ladder.
func resolveField(output workflow.NodeOutput, field string) (interface{}, bool) {
	if v, ok := output.Get(field); ok {
		return v, true
	}
	lower := strings.ToLower(field)
	if lower != field {
		if v, ok := output.Get(lower); ok {
			return v, true
		}
	}
	for _, alt := range fallbackOrder {
		if v, ok := output.Get(alt); ok {
			return v, true
		}
	}
	for k, v := range output.Extra {
		if workflow.MetadataFields[k] {
			continue
		}
		return v, true
	}
	return nil, false
}

// coerce stringifies a resolved value per §4.1's value-coercion rule.
func coerce(v interface{}) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Validate checks a template's tokens against a set of known node names
// without needing a full output table, mirroring the original source's
// validate_variable_usage dry-run check (see SPEC_FULL.md §4). It returns
// a non-empty slice of human-readable problems, or nil if the template is
// clean.
func Validate(text string, availableNodes map[string]bool) []string {
	var problems []string
	for _, tok := range Extract(text) {
		dot := strings.IndexByte(tok, '.')
		if dot < 0 {
			problems = append(problems, fmt.Sprintf("invalid variable format: %s", tok))
			continue
		}
		ref := tok[:dot]
		if availableNodes[ref] || availableNodes[swapDashUnderscore(ref)] {
			continue
		}
		found := false
		for name := range availableNodes {
			if _, ok := normalizeNodeName(ref, map[string]workflow.NodeOutput{name: {}}); ok {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("node %q not found", ref))
		}
	}
	return problems
}
