package function

// Noop does nothing: it is absent for every input, so the destination key
// always keeps its prior value.
//
//	spec - "key": "=noop"
var Noop = Func(func(args ...interface{}) Result {
	return Empty()
})

// IsPresent returns the first argument, null or otherwise. Combined with a
// fallback it fills in missing keys while preserving explicit nulls:
//
//	spec - "key": [ "=isPresent", "otherValue" ]
//
//	input  - "key": null        output - "key": null
//	input  - "key": "value"     output - "key": "value"
//	input  - key is missing     output - "key": "otherValue"
var IsPresent = Func(func(args ...interface{}) Result {
	if len(args) == 0 {
		return Empty()
	}
	return Of(args[0])
})

// NotNull returns the first argument if it is not null.
//
//	spec - "key": [ "=notNull", "otherValue" ]
//
//	input  - "key": null        output - "key": "otherValue"
//	input  - "key": "value"     output - "key": "value"
var NotNull = Func(func(args ...interface{}) Result {
	if len(args) == 0 || args[0] == nil {
		return Empty()
	}
	return Of(args[0])
})

// IsNull returns the first argument only if it is null.
//
//	spec - "key": [ "=isNull", "otherValue" ]
//
//	input  - "key": null        output - "key": null
//	input  - "key": "value"     output - "key": "otherValue"
var IsNull = Func(func(args ...interface{}) Result {
	if len(args) == 0 || args[0] != nil {
		return Empty()
	}
	return Of(args[0])
})
