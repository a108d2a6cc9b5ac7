package foreign

import (
	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/dtype"
)

// Functions returning a Handle return a new reference unless documented as
// borrowed. On failure they return Null and leave an error pending in the
// interpreter's error slot. Every method requires the interpreter lock.

// Objects is the generic object protocol.
type Objects interface {
	IncRef(h Handle)
	DecRef(h Handle)

	// Check reports whether h is an instance of the category, including
	// subtypes: a bool is also an int, a float64 array scalar is also a float.
	Check(h Handle, tag Tag) bool
	TagOf(h Handle) Tag
	TypeName(h Handle) string

	None() Handle
	NewInt(v int64) Handle
	NewFloat(v float64) Handle
	NewBool(v bool) Handle
	NewString(units []uint16) Handle
	NewChar(c uint16) Handle
	NewList(n int) Handle
	NewTuple(n int) Handle
	// PutItem stores item at index i of a new list or tuple, stealing the
	// reference to item.
	PutItem(seq Handle, i int, item Handle) bool
	NewDict() Handle
	// DictSet stores v under key without stealing v.
	DictSet(d Handle, key string, v Handle) bool
	// NewSlice borrows its arguments; Null bounds mean absent.
	NewSlice(start, stop, step Handle) Handle

	// Int64 converts through the index protocol. Values past the int64 range
	// fail with an overflow error.
	Int64(h Handle) (int64, bool)
	Float64(h Handle) (float64, bool)
	// Truth applies the truth-value protocol.
	Truth(h Handle) (bool, bool)
	Units(h Handle) ([]uint16, bool)
	Len(h Handle) (int, bool)
	// Item returns a borrowed reference to element i of a list or tuple.
	Item(seq Handle, i int) Handle

	Str(h Handle) Handle
	GetAttr(h Handle, name string) Handle
	GetItem(h, key Handle) Handle
	AssignItem(h, key, v Handle) bool
	// Call invokes fn with a positional tuple and an optional kwargs dict.
	Call(fn, args, kwargs Handle) Handle
	Import(name string) Handle
}

// Scalars covers array scalars: zero-dimensional values carrying an
// element kind.
type Scalars interface {
	// Scalar returns the kind and little-endian element bytes of h.
	Scalar(h Handle) (dtype.Kind, []byte, bool)
	NewScalar(kind dtype.Kind, raw []byte) Handle
}

// Errors is the interpreter's pending-error slot.
type Errors interface {
	ErrOccurred() bool
	// ErrMatches reports whether the pending error is an instance of class.
	ErrMatches(class Handle) bool
	ErrSetString(class Handle, msg string)
	// ErrFetch moves the pending error out of the slot. All three results
	// are new references and may be Null.
	ErrFetch() (typ, value, traceback Handle)
	// ErrRestore puts an error back, stealing the three references.
	ErrRestore(typ, value, traceback Handle)
	ErrClear()
}

// Arrays exposes the metadata of n-dimensional arrays.
type Arrays interface {
	NDim(h Handle) int
	Shape(h Handle) []int
	Strides(h Handle) []int
	ItemSize(h Handle) int
	Size(h Handle) int
	Kind(h Handle) dtype.Kind
	// Base returns a borrowed reference to the array h views, or Null.
	Base(h Handle) Handle
	// Data returns the address of the first element in linear memory.
	Data(h Handle) uint32
	NBytes(h Handle) int
	// NewArray allocates a zero-filled C-contiguous array.
	NewArray(kind dtype.Kind, shape []int) Handle
}

// Iterators builds multi-dimensional iterators over arrays.
type Iterators interface {
	NewIter(array Handle, flags IterFlags, casting Casting) (Iter, bool)
}

// Iter is a native multi-dimensional iterator. Methods returning bool
// report failure with an error pending.
type Iter interface {
	// NextFunc returns the advance function; it reports false once the
	// iteration range is exhausted.
	NextFunc() func() bool
	// MultiIndexFunc returns the multi-index getter, or nil when the
	// iterator does not track a multi-index.
	MultiIndexFunc() func(out []int)

	Reset() bool
	ResetToIterIndexRange(start, end int) bool
	GotoMultiIndex(index []int) bool
	GotoIndex(index int) bool
	GotoIterIndex(index int) bool
	RemoveAxis(axis int) bool
	RemoveMultiIndex() bool

	HasMultiIndex() bool
	HasIndex() bool
	HasDelayedBufAlloc() bool

	NDim() int
	NOp() int
	Shape() ([]int, bool)
	IterSize() int
	IterIndex() int
	IterIndexRange() (start, end int)
	Index() int

	// DataPtrs returns the per-operand element addresses. The slice is
	// updated in place as the iterator moves and is invalidated by
	// RemoveAxis and RemoveMultiIndex.
	DataPtrs() []uint32
	DTypes() []dtype.Kind

	Deallocate() bool
}

// Interpreter is everything the bridge needs from the foreign runtime.
type Interpreter interface {
	Objects
	Scalars
	Errors
	Arrays
	Iterators

	Memory() ndbridge.Memory
	// Version is the array extension version string.
	Version() string
}
