package function

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToLower lower-cases the string form of the first argument; further
// arguments are ignored. Absent when there is no first argument or it is
// null.
var ToLower = Func(func(args ...interface{}) Result {
	if len(args) == 0 || args[0] == nil {
		return Empty()
	}
	return Of(strings.ToLower(stringify(args[0])))
})

// ToUpper upper-cases the string form of the first argument; further
// arguments are ignored. Absent when there is no first argument or it is
// null.
var ToUpper = Func(func(args ...interface{}) Result {
	if len(args) == 0 || args[0] == nil {
		return Empty()
	}
	return Of(strings.ToUpper(stringify(args[0])))
})

// Concat concatenates the string form of every argument, in order:
// concat("a", 1, true) yields "a1true". Absent when called with no
// arguments.
var Concat = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(stringify(arg))
	}
	return Of(sb.String())
})

// stringify renders a document value the way it would appear in JSON, except
// that strings are unquoted. Whole floats print without a trailing ".0" so
// that concat("a", 1.0) is "a1".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int8:
		return strconv.FormatInt(int64(t), 10)
	case int16:
		return strconv.FormatInt(int64(t), 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint8:
		return strconv.FormatUint(uint64(t), 10)
	case uint16:
		return strconv.FormatUint(uint64(t), 10)
	case uint32:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprint(v)
	}
}
