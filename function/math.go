package function

import (
	"encoding/json"
	"math"
)

// Min returns the minimum over the arguments that are numbers. Non-numeric
// arguments are silently skipped: min("a", 3, "b", 1) is 1. The winning
// argument is returned as-is, keeping its original numeric type. Absent when
// no argument is numeric.
var Min = Func(func(args ...interface{}) Result {
	return pick(args, func(candidate, best float64) bool { return candidate < best })
})

// Max returns the maximum over the numeric arguments, with the same
// skip-non-numbers rule as Min. Absent when no argument is numeric.
var Max = Func(func(args ...interface{}) Result {
	return pick(args, func(candidate, best float64) bool { return candidate > best })
})

func pick(args []interface{}, better func(candidate, best float64) bool) Result {
	var bestRaw interface{}
	var bestVal float64
	found := false
	for _, arg := range args {
		f, ok := asFloat(arg)
		if !ok {
			continue
		}
		if !found || better(f, bestVal) {
			bestRaw, bestVal, found = arg, f, true
		}
	}
	if !found {
		return Empty()
	}
	return Of(bestRaw)
}

// Abs returns the absolute value of the first argument if it is numeric;
// further arguments are ignored. Integral input stays integral, floating
// input stays floating. Absent for a missing or non-numeric first argument.
var Abs = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	if i, ok := asInt(args[0]); ok {
		if i < 0 {
			i = -i
		}
		return Of(i)
	}
	if f, ok := asFloat(args[0]); ok {
		return Of(math.Abs(f))
	}
	return Empty()
})

// ToInteger converts the first argument to an int if it is numeric, truncating
// any fractional part. Absent for a missing or non-numeric first argument.
var ToInteger = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	if i, ok := asInt(args[0]); ok {
		return Of(int(i))
	}
	if f, ok := asFloat(args[0]); ok {
		return Of(int(f))
	}
	return Empty()
})

// ToLong converts the first argument to an int64 if it is numeric, truncating
// any fractional part. Absent for a missing or non-numeric first argument.
var ToLong = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	if i, ok := asInt(args[0]); ok {
		return Of(i)
	}
	if f, ok := asFloat(args[0]); ok {
		return Of(int64(f))
	}
	return Empty()
})

// ToDouble converts the first argument to a float64 if it is numeric. Absent
// for a missing or non-numeric first argument.
var ToDouble = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	if f, ok := asFloat(args[0]); ok {
		return Of(f)
	}
	return Empty()
})

// asFloat reports whether v is a numeric document value, and its float64
// form. Strings that happen to parse as numbers do not count, and neither do
// bools; only values the document model decodes as numbers qualify.
func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asInt reports whether v is an integral-typed numeric value, and its int64
// form. Floats are excluded even when whole, so that 2.0 stays floating
// through Abs.
func asInt(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
