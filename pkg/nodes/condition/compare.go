package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// compare dispatches a single clause comparison by operator name, per the
// operator list in §6.
func compare(operator string, actual, expected interface{}) bool {
	switch operator {
	case "==":
		return compareEquals(actual, expected)
	case "!=":
		return !compareEquals(actual, expected)
	case ">":
		return compareNumeric(actual, expected, func(a, b float64) bool { return a > b })
	case ">=":
		return compareNumeric(actual, expected, func(a, b float64) bool { return a >= b })
	case "<":
		return compareNumeric(actual, expected, func(a, b float64) bool { return a < b })
	case "<=":
		return compareNumeric(actual, expected, func(a, b float64) bool { return a <= b })
	case "contains":
		return compareContains(actual, expected)
	case "not_contains":
		return !compareContains(actual, expected)
	case "startswith":
		return strings.HasPrefix(toStr(actual), toStr(expected))
	case "endswith":
		return strings.HasSuffix(toStr(actual), toStr(expected))
	case "is_empty":
		return isEmpty(actual)
	case "is_not_empty":
		return !isEmpty(actual)
	case "matches_regex":
		re, err := regexp.Compile(toStr(expected))
		if err != nil {
			return false
		}
		return re.MatchString(toStr(actual))
	case "in_list":
		return inList(actual, expected)
	case "not_in_list":
		return !inList(actual, expected)
	case "length_equals":
		return lengthOf(actual) == int(toFloat(expected))
	case "length_greater_than":
		return lengthOf(actual) > int(toFloat(expected))
	case "length_less_than":
		return lengthOf(actual) < int(toFloat(expected))
	case "date_before":
		return compareDate(actual, expected, func(a, b time.Time) bool { return a.Before(b) })
	case "date_after":
		return compareDate(actual, expected, func(a, b time.Time) bool { return a.After(b) })
	case "date_equals":
		return compareDate(actual, expected, func(a, b time.Time) bool { return a.Equal(b) })
	case "date_between":
		return dateBetween(actual, expected)
	case "type_equals":
		return typeName(actual) == toStr(expected)
	default:
		return false
	}
}

func compareEquals(a, b interface{}) bool {
	af, aok := toFloatOK(a)
	bf, bok := toFloatOK(b)
	if aok && bok {
		return af == bf
	}
	return toStr(a) == toStr(b)
}

func compareNumeric(a, b interface{}, cmp func(a, b float64) bool) bool {
	af, aok := toFloatOK(a)
	bf, bok := toFloatOK(b)
	if !aok || !bok {
		return false
	}
	return cmp(af, bf)
}

func compareContains(actual, expected interface{}) bool {
	switch v := actual.(type) {
	case []interface{}:
		for _, item := range v {
			if compareEquals(item, expected) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(toStr(actual), toStr(expected))
	}
}

func inList(actual, expected interface{}) bool {
	list, ok := expected.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if compareEquals(actual, item) {
			return true
		}
	}
	return false
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

func lengthOf(v interface{}) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case []interface{}:
		return len(t)
	case map[string]interface{}:
		return len(t)
	default:
		return 0
	}
}

func compareDate(actual, expected interface{}, cmp func(a, b time.Time) bool) bool {
	a, aok := toTime(actual)
	b, bok := toTime(expected)
	if !aok || !bok {
		return false
	}
	return cmp(a, b)
}

func dateBetween(actual, expected interface{}) bool {
	bounds, ok := expected.([]interface{})
	if !ok || len(bounds) != 2 {
		return false
	}
	a, aok := toTime(actual)
	lo, lok := toTime(bounds[0])
	hi, hok := toTime(bounds[1])
	if !aok || !lok || !hok {
		return false
	}
	return !a.Before(lo) && !a.After(hi)
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func typeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func toStr(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v interface{}) float64 {
	f, _ := toFloatOK(v)
	return f
}

func toFloatOK(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
