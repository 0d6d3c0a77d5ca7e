// Package function implements the function-dispatch core of the reshape
// modifier transforms.
//
// A modifier spec may place a function expression on the right-hand side of an
// output key:
//
//	input:
//	    { "num": -1.0 }
//	spec:
//	    { "num": "=abs(@(1,&0))" }
//	output:
//	    { "num": 1.0 }
//
// The shorthand "=abs" does the same thing, passing the matched value at the
// current location as the sole argument.
//
// Every function receives already-resolved argument values and returns a
// Result. The value is written only when the Result is present; an absent
// Result is a true no-op and the destination key keeps whatever it held
// before. Absence is the only failure signal: a function never panics and
// never returns an error, no matter how unsuitable its input is.
package function

import "sort"

// Result is the outcome of applying a Function: either a present value
// (possibly nil, which writes an explicit null) or absent (write nothing).
type Result struct {
	value   interface{}
	present bool
}

// Of returns a present Result carrying v. Of(nil) is legal and distinct from
// Empty: it means "write null here".
func Of(v interface{}) Result {
	return Result{value: v, present: true}
}

// Empty returns the absent Result.
func Empty() Result {
	return Result{}
}

// IsPresent reports whether the Result carries a value.
func (r Result) IsPresent() bool {
	return r.present
}

// Value returns the carried value, nil when absent.
func (r Result) Value() interface{} {
	return r.value
}

// Get returns the carried value and whether it is present.
func (r Result) Get() (interface{}, bool) {
	return r.value, r.present
}

// Function is a named, pure, variadic operation evaluated at transform time.
// Implementations must be stateless: the same Function value is shared across
// arbitrarily many concurrent transform evaluations.
type Function interface {
	// Apply evaluates the function over already-resolved argument values.
	// It must not mutate args and must return Empty() for any input shape
	// it cannot handle rather than panicking.
	Apply(args ...interface{}) Result
}

// Func adapts an ordinary Go function to the Function interface.
type Func func(args ...interface{}) Result

// Apply implements Function.
func (f Func) Apply(args ...interface{}) Result {
	return f(args...)
}

// Registry maps function names to implementations. It is immutable once
// built and safe for concurrent lookup without locking.
type Registry struct {
	funcs map[string]Function
}

// NewRegistry returns the stock registry containing the built-in functions:
//
//	noop        - always absent, the key keeps its prior value
//	isPresent   - returns the first argument, null or otherwise
//	notNull     - returns the first argument if it is not null
//	isNull      - returns the first argument only if it is null
//	toLower     - lower-cases the string form of the first argument
//	toUpper     - upper-cases the string form of the first argument
//	concat      - concatenates the string form of all arguments, in order
//	min         - minimum over the numeric arguments, non-numbers are skipped
//	max         - maximum over the numeric arguments, non-numbers are skipped
//	abs         - absolute value of the first argument if numeric
//	toInteger   - integer conversion of the first argument if numeric
//	toDouble    - float conversion of the first argument if numeric
//	toLong      - 64-bit integer conversion of the first argument if numeric
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Function{
		"noop":      Noop,
		"isPresent": IsPresent,
		"notNull":   NotNull,
		"isNull":    IsNull,
		"toLower":   ToLower,
		"toUpper":   ToUpper,
		"concat":    Concat,
		"min":       Min,
		"max":       Max,
		"abs":       Abs,
		"toInteger": ToInteger,
		"toDouble":  ToDouble,
		"toLong":    ToLong,
	}}
}

// Lookup resolves a function by exact, case-sensitive name.
func (r *Registry) Lookup(name string) (Function, bool) {
	if r == nil {
		return nil, false
	}
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered function names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a new Registry that additionally maps name to fn. The receiver
// is not modified; callers extend the stock set without touching it.
func (r *Registry) With(name string, fn Function) *Registry {
	funcs := make(map[string]Function, len(r.funcs)+1)
	for k, v := range r.funcs {
		funcs[k] = v
	}
	funcs[name] = fn
	return &Registry{funcs: funcs}
}
