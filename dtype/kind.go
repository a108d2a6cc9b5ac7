package dtype

import "reflect"

// Kind is the element type number reported by the array extension.
// Only the eight kinds listed in Supported can be marshaled; the others exist
// so the foreign side can describe arrays the bridge must refuse.
type Kind int16

const (
	Bool    Kind = 0
	Int8    Kind = 1
	Uint8   Kind = 2
	Int16   Kind = 3
	Uint16  Kind = 4
	Int32   Kind = 5
	Uint32  Kind = 6
	Int64   Kind = 7
	Uint64  Kind = 8
	Float32 Kind = 11
	Float64 Kind = 12
	Char    Kind = 19
	Float16 Kind = 23
)

var kindNames = map[Kind]string{
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	Char:    "unicode",
	Float16: "float16",
}

var itemSizes = map[Kind]int{
	Bool:    1,
	Int8:    1,
	Uint8:   1,
	Int16:   2,
	Uint16:  2,
	Int32:   4,
	Uint32:  4,
	Int64:   8,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
	Char:    2,
	Float16: 2,
}

// Supported lists the marshalable kinds in dtype-name table order.
var Supported = [...]Kind{Int8, Int16, Int32, Int64, Float32, Float64, Bool, Char}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Supported reports whether values of this kind can cross the bridge.
func (k Kind) Supported() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Float32, Float64, Bool, Char:
		return true
	}
	return false
}

// ItemSize returns the element width in bytes, or 0 for unknown kinds.
func (k Kind) ItemSize() int {
	return itemSizes[k]
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	}
	return false
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == Float16 || k == Float32 || k == Float64
}

// Parse returns the kind for a dtype name.
func Parse(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	switch name {
	case "char":
		return Char, true
	case "bool_":
		return Bool, true
	}
	return 0, false
}

// GoType returns the host element type for a supported kind.
func (k Kind) GoType() reflect.Type {
	switch k {
	case Int8:
		return reflect.TypeFor[int8]()
	case Int16:
		return reflect.TypeFor[int16]()
	case Int32:
		return reflect.TypeFor[int32]()
	case Int64:
		return reflect.TypeFor[int64]()
	case Float32:
		return reflect.TypeFor[float32]()
	case Float64:
		return reflect.TypeFor[float64]()
	case Bool:
		return reflect.TypeFor[bool]()
	case Char:
		return reflect.TypeFor[uint16]()
	}
	return nil
}
