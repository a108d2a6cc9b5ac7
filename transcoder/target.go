package transcoder

import (
	"math"
	"reflect"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
)

// TargetKind is the closed set of Go types a foreign value can be
// converted to.
type TargetKind uint8

const (
	TargetAny TargetKind = iota
	TargetInt8
	TargetInt16
	TargetInt32
	TargetInt64
	TargetInt
	TargetFloat32
	TargetFloat64
	TargetBool
	TargetChar
	TargetString
	TargetList  // []any
	TargetSlice // []T for any other classifiable T
	TargetPair
	TargetArray
)

var targetNames = [...]string{
	TargetAny:     "object",
	TargetInt8:    "int8",
	TargetInt16:   "int16",
	TargetInt32:   "int32",
	TargetInt64:   "int64",
	TargetInt:     "int",
	TargetFloat32: "float32",
	TargetFloat64: "float64",
	TargetBool:    "bool",
	TargetChar:    "char",
	TargetString:  "string",
	TargetList:    "list",
	TargetSlice:   "slice",
	TargetPair:    "pair",
	TargetArray:   "array",
}

func (k TargetKind) String() string {
	if int(k) < len(targetNames) {
		return targetNames[k]
	}
	return "unknown"
}

// IsInteger reports whether k is one of the integer widths.
func (k TargetKind) IsInteger() bool {
	return k >= TargetInt8 && k <= TargetInt
}

// IsFloat reports whether k is a floating point width.
func (k TargetKind) IsFloat() bool {
	return k == TargetFloat32 || k == TargetFloat64
}

// bounds returns the valid range of an integer target.
func (k TargetKind) bounds() (lo, hi int64) {
	switch k {
	case TargetInt8:
		return math.MinInt8, math.MaxInt8
	case TargetInt16:
		return math.MinInt16, math.MaxInt16
	case TargetInt32:
		return math.MinInt32, math.MaxInt32
	case TargetInt:
		return math.MinInt, math.MaxInt
	}
	return math.MinInt64, math.MaxInt64
}

// Target is a classified Go type.
type Target struct {
	Kind TargetKind
	Type reflect.Type
	// Elem is the element target of TargetSlice.
	Elem *Target
}

// Name describes the target in error messages.
func (t *Target) Name() string {
	if t.Kind == TargetSlice {
		return "[]" + t.Elem.Name()
	}
	return t.Kind.String()
}

// AnyType is the generic target: every value converts at its natural width.
var AnyType = reflect.TypeFor[any]()

var (
	listType  = reflect.TypeFor[[]any]()
	pairType  = reflect.TypeFor[host.Pair]()
	arrayType = reflect.TypeFor[*ndarray.Array]()
	charType  = reflect.TypeFor[host.Char]()
)

var scalarTargets = map[reflect.Type]TargetKind{
	reflect.TypeFor[int8]():    TargetInt8,
	reflect.TypeFor[int16]():   TargetInt16,
	reflect.TypeFor[int32]():   TargetInt32,
	reflect.TypeFor[int64]():   TargetInt64,
	reflect.TypeFor[int]():     TargetInt,
	reflect.TypeFor[float32](): TargetFloat32,
	reflect.TypeFor[float64](): TargetFloat64,
	reflect.TypeFor[bool]():    TargetBool,
	reflect.TypeFor[string]():  TargetString,
	charType:                   TargetChar,
}

// elemTargets maps supported element kinds to their scalar targets.
var elemTargets = map[dtype.Kind]TargetKind{
	dtype.Int8:    TargetInt8,
	dtype.Int16:   TargetInt16,
	dtype.Int32:   TargetInt32,
	dtype.Int64:   TargetInt64,
	dtype.Float32: TargetFloat32,
	dtype.Float64: TargetFloat64,
	dtype.Bool:    TargetBool,
	dtype.Char:    TargetChar,
}

// Classify returns the cached Target for rt, classifying it on first use.
// It reports false for Go types no foreign value converts to.
func (c *Codec) Classify(rt reflect.Type) (*Target, bool) {
	if rt == nil {
		rt = AnyType
	}
	if cached, ok := c.targets.Load(rt); ok {
		return cached.(*Target), true
	}
	t, ok := classify(rt)
	if !ok {
		return nil, false
	}
	c.targets.Store(rt, t)
	return t, true
}

func classify(rt reflect.Type) (*Target, bool) {
	if k, ok := scalarTargets[rt]; ok {
		return &Target{Kind: k, Type: rt}, true
	}
	switch rt {
	case AnyType:
		return &Target{Kind: TargetAny, Type: rt}, true
	case listType:
		return &Target{Kind: TargetList, Type: rt}, true
	case pairType:
		return &Target{Kind: TargetPair, Type: rt}, true
	case arrayType:
		return &Target{Kind: TargetArray, Type: rt}, true
	}
	if rt.Kind() == reflect.Slice {
		elem, ok := classify(rt.Elem())
		if !ok {
			return nil, false
		}
		return &Target{Kind: TargetSlice, Type: rt, Elem: elem}, true
	}
	return nil, false
}
