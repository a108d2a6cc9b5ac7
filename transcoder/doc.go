// Package transcoder converts values between Go and the foreign runtime.
//
// Conversion runs in both directions:
//
//	┌──────────────────────────────────────────────────────────┐
//	│ Go value ←→ [Transcoder] ←→ foreign.Handle                 │
//	└──────────────────────────────────────────────────────────┘
//
// # Foreign to Go
//
// ToHost is directed by a requested Go type. The type is classified once
// into a Target and cached. The foreign value is then matched against the
// tags below in order; the first match selects the conversion:
//
//	Tag            Conversion
//	─────────────────────────────────────────────────────────
//	none           nil (scalar targets fail)
//	string         string, or host.Char when exactly one code unit
//	char           host.Char
//	bool           bool
//	array-scalar   element at the requested width
//	int            int8/int16/int32/int64/int, range-checked
//	float          float32/float64, never range-checked
//	array          *ndarray.Array (reference transfer)
//	list, tuple    []any, []T, host.Pair
//
// Array scalars are tried before int and float because they also satisfy
// those checks. The requested width is the only width tried: narrowing that
// does not fit fails with an overflow error stating the valid range, and
// nothing is widened. A bool target applies the truth-value protocol to any
// non-none value. The generic target (AnyType) picks the natural width:
// int64 for integers, float64 for floats, the element kind's own type for
// array scalars.
//
// # Go to foreign
//
// ToForeign dispatches on the exact Go type:
//
//	Go type                      Foreign value
//	─────────────────────────────────────────────────────────
//	nil, host.None               none
//	reflect.Type                 dtype descriptor
//	string                       str
//	host.Char                    one-unit str
//	int8 … int64, int            int
//	float32, float64             float
//	bool                         bool
//	[]any                        list
//	*ndarray.Array               the wrapped array
//	host.Slice                   slice
//	host.Pair                    2-tuple
//	other slices and arrays      tuple
//
// Slices of a supported element type take a typed fast path; any other
// slice or array is converted element by element.
//
// # Errors
//
// Internal conversion paths follow the foreign runtime's convention: a
// failure leaves an error in the interpreter's error slot and returns a
// sentinel. The exported entry points hand the slot to the exception bridge
// and return its error. Unsupported element kinds are reported directly as
// errors.KindUnsupportedKind.
//
// All functions require the interpreter lock.
package transcoder
