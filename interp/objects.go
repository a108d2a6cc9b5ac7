package interp

import (
	"math/big"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

type object interface {
	tag() foreign.Tag
	typeName() string
}

type noneObj struct{}

type boolObj struct{ v bool }

type intObj struct{ v *big.Int }

type floatObj struct{ v float64 }

type strObj struct{ units []uint16 }

type listObj struct{ items []foreign.Handle }

type tupleObj struct{ items []foreign.Handle }

type dictObj struct {
	keys []string
	vals map[string]foreign.Handle
}

type sliceObj struct{ start, stop, step foreign.Handle }

type dtypeObj struct{ kind dtype.Kind }

// scalarTypeObj is a callable element type such as int32.
type scalarTypeObj struct{ kind dtype.Kind }

// classObj is an exception class.
type classObj struct {
	name string
	base foreign.Handle
}

type excObj struct {
	class foreign.Handle
	args  foreign.Handle
}

type tbFrame struct {
	file string
	line int
	fn   string
	text string // empty when no source is available
}

type tbObj struct{ frames []tbFrame }

type scalarObj struct {
	kind dtype.Kind
	raw  [8]byte
}

// arrayObj is a strided view of linear memory. Arrays that own their
// buffer have a Null base.
type arrayObj struct {
	kind    dtype.Kind
	shape   []int
	strides []int
	data    uint32
	nbytes  int
	base    foreign.Handle
	owns    bool
	alloc   uint32
}

type moduleObj struct {
	name  string
	attrs map[string]foreign.Handle
	order []string
}

type builtinFunc func(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle

type funcObj struct {
	name string
	fn   builtinFunc
	loc  tbFrame
}

func (noneObj) tag() foreign.Tag       { return foreign.TagNone }
func (boolObj) tag() foreign.Tag       { return foreign.TagBool }
func (intObj) tag() foreign.Tag        { return foreign.TagInt }
func (floatObj) tag() foreign.Tag      { return foreign.TagFloat }
func (strObj) tag() foreign.Tag        { return foreign.TagString }
func (*listObj) tag() foreign.Tag      { return foreign.TagList }
func (*tupleObj) tag() foreign.Tag     { return foreign.TagTuple }
func (*dictObj) tag() foreign.Tag      { return foreign.TagDict }
func (*sliceObj) tag() foreign.Tag     { return foreign.TagSlice }
func (dtypeObj) tag() foreign.Tag      { return foreign.TagDType }
func (scalarTypeObj) tag() foreign.Tag { return foreign.TagType }
func (*classObj) tag() foreign.Tag     { return foreign.TagType }
func (*excObj) tag() foreign.Tag       { return foreign.TagException }
func (*tbObj) tag() foreign.Tag        { return foreign.TagTraceback }
func (*scalarObj) tag() foreign.Tag    { return foreign.TagArrayScalar }
func (*arrayObj) tag() foreign.Tag     { return foreign.TagArray }
func (*moduleObj) tag() foreign.Tag    { return foreign.TagModule }
func (*funcObj) tag() foreign.Tag      { return foreign.TagCallable }

func (noneObj) typeName() string       { return "NoneType" }
func (boolObj) typeName() string       { return "bool" }
func (intObj) typeName() string        { return "int" }
func (floatObj) typeName() string      { return "float" }
func (strObj) typeName() string        { return "str" }
func (*listObj) typeName() string      { return "list" }
func (*tupleObj) typeName() string     { return "tuple" }
func (*dictObj) typeName() string      { return "dict" }
func (*sliceObj) typeName() string     { return "slice" }
func (dtypeObj) typeName() string      { return "dtype" }
func (scalarTypeObj) typeName() string { return "type" }
func (*classObj) typeName() string     { return "type" }
func (*excObj) typeName() string       { return "exception" }
func (*tbObj) typeName() string        { return "traceback" }
func (s *scalarObj) typeName() string  { return s.kind.String() }
func (*arrayObj) typeName() string     { return "ndarray" }
func (*moduleObj) typeName() string    { return "module" }
func (*funcObj) typeName() string      { return "builtin_function_or_method" }

func (a *arrayObj) size() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

func (a *arrayObj) itemSize() int {
	return a.kind.ItemSize()
}

// cContiguous reports whether the array is laid out densely in C order.
func (a *arrayObj) cContiguous() bool {
	expect := a.itemSize()
	for i := len(a.shape) - 1; i >= 0; i-- {
		if a.shape[i] == 1 {
			continue
		}
		if a.strides[i] != expect {
			return false
		}
		expect *= a.shape[i]
	}
	return true
}

func cStrides(shape []int, itemSize int) []int {
	strides := make([]int, len(shape))
	s := itemSize
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = s
		if shape[i] > 0 {
			s *= shape[i]
		}
	}
	return strides
}
