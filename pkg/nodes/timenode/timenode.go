// Package timenode implements the built-in "time" node type: timezone-
// aware current/derived time, with add/subtract, start-of/end-of, and
// weekday-seeking operations.
package timenode

import (
	"strings"
	"time"

	"github.com/flowforge/engine/pkg/registry"
	"github.com/flowforge/engine/pkg/workflow"
)

type Handler struct{}

func New() Handler { return Handler{} }

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func (Handler) Execute(ctx registry.Context, params map[string]interface{}, inputs registry.Inputs) (interface{}, *workflow.NodeError) {
	loc, err := loadLocation(strParam(params, "timezone", "UTC"))
	if err != nil {
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: err.Error()}
	}

	base := ctx.Clock.Now().In(loc)
	if b := strParam(params, "base_time", ""); b != "" {
		parsed, perr := time.Parse(time.RFC3339, b)
		if perr != nil {
			return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, SubKind: "parse", Message: perr.Error()}
		}
		base = parsed.In(loc)
	}

	op := strParam(params, "operation", "current")
	result := base
	switch op {
	case "current":
		// no-op
	case "add_time":
		result = shiftTime(base, strParam(params, "unit", "day"), intParam(params, "amount", 0))
	case "subtract_time":
		result = shiftTime(base, strParam(params, "unit", "day"), -intParam(params, "amount", 0))
	case "start_of":
		result = startOf(base, strParam(params, "unit", "day"))
	case "end_of":
		result = endOf(base, strParam(params, "unit", "day"))
	case "next_weekday":
		result = seekWeekday(base, strParam(params, "weekday", "monday"), 1)
	case "previous_weekday":
		result = seekWeekday(base, strParam(params, "weekday", "monday"), -1)
	default:
		return nil, &workflow.NodeError{Kind: workflow.ErrHandlerError, Message: "unknown time operation: " + op}
	}

	out := fieldsFor(result)
	if layout := strParam(params, "format", ""); layout != "" {
		out["custom_formatted"] = result.Format(goLayout(layout))
	}
	out["output"] = out["iso"]
	return out, nil
}

func fieldsFor(t time.Time) map[string]interface{} {
	_, offset := t.Zone()
	return map[string]interface{}{
		"iso":             t.Format(time.RFC3339),
		"timestamp":       t.Unix(),
		"year":            t.Year(),
		"month":           int(t.Month()),
		"day":             t.Day(),
		"hour":            t.Hour(),
		"minute":          t.Minute(),
		"second":          t.Second(),
		"timezone":        t.Location().String(),
		"day_of_week":     t.Weekday().String(),
		"month_name":      t.Month().String(),
		"utc_offset":      offset / 3600,
		"is_dst":          isDST(t),
		"custom_formatted": t.Format(time.RFC3339),
	}
}

func isDST(t time.Time) bool {
	_, stdOffset := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()).Zone()
	_, curOffset := t.Zone()
	return curOffset != stdOffset
}

func shiftTime(t time.Time, unit string, amount int) time.Time {
	switch strings.ToLower(unit) {
	case "second":
		return t.Add(time.Duration(amount) * time.Second)
	case "minute":
		return t.Add(time.Duration(amount) * time.Minute)
	case "hour":
		return t.Add(time.Duration(amount) * time.Hour)
	case "day":
		return t.AddDate(0, 0, amount)
	case "week":
		return t.AddDate(0, 0, amount*7)
	case "month":
		return t.AddDate(0, amount, 0)
	case "year":
		return t.AddDate(amount, 0, 0)
	case "business_day":
		return addBusinessDays(t, amount)
	default:
		return t
	}
}

func addBusinessDays(t time.Time, amount int) time.Time {
	step := 1
	if amount < 0 {
		step = -1
		amount = -amount
	}
	for amount > 0 {
		t = t.AddDate(0, 0, step)
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday {
			amount--
		}
	}
	return t
}

func startOf(t time.Time, unit string) time.Time {
	switch strings.ToLower(unit) {
	case "day":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case "week":
		offset := int(t.Weekday())
		return startOf(t.AddDate(0, 0, -offset), "day")
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "quarter":
		q := (int(t.Month()) - 1) / 3
		return time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, t.Location())
	case "year":
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}

func endOf(t time.Time, unit string) time.Time {
	switch strings.ToLower(unit) {
	case "day":
		return startOf(t, "day").Add(24*time.Hour - time.Nanosecond)
	case "week":
		return startOf(t, "week").AddDate(0, 0, 7).Add(-time.Nanosecond)
	case "month":
		return startOf(t, "month").AddDate(0, 1, 0).Add(-time.Nanosecond)
	case "quarter":
		return startOf(t, "quarter").AddDate(0, 3, 0).Add(-time.Nanosecond)
	case "year":
		return startOf(t, "year").AddDate(1, 0, 0).Add(-time.Nanosecond)
	default:
		return t
	}
}

func seekWeekday(t time.Time, weekday string, direction int) time.Time {
	target, ok := weekdays[strings.ToLower(weekday)]
	if !ok {
		return t
	}
	cur := t
	for i := 0; i < 7; i++ {
		cur = cur.AddDate(0, 0, direction)
		if cur.Weekday() == target {
			return cur
		}
	}
	return t
}

func loadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

func strParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

func intParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// goLayout lets callers pass either a strftime-ish shorthand or a raw Go
// reference-time layout; unrecognized shorthand passes through unchanged.
func goLayout(format string) string {
	switch format {
	case "date":
		return "2006-01-02"
	case "datetime":
		return "2006-01-02 15:04:05"
	case "time":
		return "15:04:05"
	default:
		return format
	}
}
