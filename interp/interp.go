package interp

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/interp/internal/heap"
)

// DefaultVersion is the array extension version reported by __version__.
const DefaultVersion = "1.26.4"

// RootModule is the name of the array extension module.
const RootModule = "numeric"

// Config configures an Interpreter.
type Config struct {
	// InitialPages is the initial linear memory size in 64KB pages.
	InitialPages uint32
	// MemoryLimitPages caps linear memory growth. 0 means 4GB.
	MemoryLimitPages uint32
	// Version overrides the reported array extension version.
	Version string
}

// Interpreter is a single-threaded dynamic object runtime with an
// n-dimensional array extension. Callers serialize access; the bridge does
// so with a foreign.GIL.
type Interpreter struct {
	objs    *table
	heap    *heap.Linear
	none    foreign.Handle
	yes     foreign.Handle
	no      foreign.Handle
	modules map[string]foreign.Handle
	classes map[string]foreign.Handle
	version string

	excType  foreign.Handle
	excValue foreign.Handle
	excTB    foreign.Handle
}

var _ foreign.Interpreter = (*Interpreter)(nil)

// New creates an interpreter with its modules installed.
func New(ctx context.Context, cfg Config) (*Interpreter, error) {
	h, err := heap.New(ctx, heap.Config{
		InitialPages:     cfg.InitialPages,
		MemoryLimitPages: cfg.MemoryLimitPages,
	})
	if err != nil {
		return nil, err
	}

	it := &Interpreter{
		objs:    newTable(),
		heap:    h,
		modules: make(map[string]foreign.Handle),
		classes: make(map[string]foreign.Handle),
		version: cfg.Version,
	}
	if it.version == "" {
		it.version = DefaultVersion
	}

	it.none = it.objs.addImmortal(noneObj{})
	it.yes = it.objs.addImmortal(boolObj{v: true})
	it.no = it.objs.addImmortal(boolObj{v: false})

	it.installBuiltins()
	it.installSys()
	it.installTraceback()
	it.installNumeric()

	Logger().Debug("interpreter ready",
		zap.String("version", it.version),
		zap.Int("objects", it.objs.live))
	return it, nil
}

// Close drops the module table and releases linear memory.
func (it *Interpreter) Close(ctx context.Context) error {
	it.ErrClear()
	for name, h := range it.modules {
		it.DecRef(h)
		delete(it.modules, name)
	}
	for name, h := range it.classes {
		it.DecRef(h)
		delete(it.classes, name)
	}
	return it.heap.Close(ctx)
}

// Memory returns the linear memory holding array buffers.
func (it *Interpreter) Memory() ndbridge.Memory {
	return it.heap.Memory()
}

func (it *Interpreter) Version() string {
	return it.version
}

// Live returns the number of live objects, immortals included.
func (it *Interpreter) Live() int {
	return it.objs.live
}

// RefCount returns the reference count of h, or 0 for a dead handle.
func (it *Interpreter) RefCount(h foreign.Handle) int {
	return it.objs.refcount(h)
}

// HeapInUse returns the bytes allocated for array buffers.
func (it *Interpreter) HeapInUse() uint32 {
	return it.heap.InUse()
}

func (it *Interpreter) IncRef(h foreign.Handle) {
	it.objs.incref(h)
}

func (it *Interpreter) DecRef(h foreign.Handle) {
	obj, dead := it.objs.decref(h)
	if !dead {
		return
	}
	switch o := obj.(type) {
	case *listObj:
		it.decrefAll(o.items)
	case *tupleObj:
		it.decrefAll(o.items)
	case *dictObj:
		for _, v := range o.vals {
			it.DecRef(v)
		}
	case *sliceObj:
		it.decrefAll([]foreign.Handle{o.start, o.stop, o.step})
	case *excObj:
		it.DecRef(o.class)
		it.DecRef(o.args)
	case *classObj:
		it.DecRef(o.base)
	case *moduleObj:
		for _, v := range o.attrs {
			it.DecRef(v)
		}
	case *arrayObj:
		if o.owns {
			it.heap.Free(o.data, o.alloc, 8)
		}
		it.DecRef(o.base)
	}
}

func (it *Interpreter) decrefAll(hs []foreign.Handle) {
	for _, h := range hs {
		it.DecRef(h)
	}
}

func (it *Interpreter) Check(h foreign.Handle, tag foreign.Tag) bool {
	obj, ok := it.objs.get(h)
	if !ok {
		return false
	}
	switch tag {
	case foreign.TagInt:
		switch obj.(type) {
		case intObj, boolObj:
			return true
		}
		return false
	case foreign.TagFloat:
		switch o := obj.(type) {
		case floatObj:
			return true
		case *scalarObj:
			return o.kind.IsFloat() && o.kind.ItemSize() == 8
		}
		return false
	case foreign.TagChar:
		s, ok := obj.(strObj)
		return ok && len(s.units) == 1
	case foreign.TagCallable:
		switch obj.(type) {
		case *funcObj, scalarTypeObj, *classObj:
			return true
		}
		return false
	}
	return obj.tag() == tag
}

func (it *Interpreter) TagOf(h foreign.Handle) foreign.Tag {
	obj, ok := it.objs.get(h)
	if !ok {
		return foreign.TagUnknown
	}
	return obj.tag()
}

func (it *Interpreter) TypeName(h foreign.Handle) string {
	obj, ok := it.objs.get(h)
	if !ok {
		return "NULL"
	}
	if e, ok := obj.(*excObj); ok {
		return it.className(e.class)
	}
	return obj.typeName()
}

func (it *Interpreter) None() foreign.Handle {
	it.IncRef(it.none)
	return it.none
}

func (it *Interpreter) NewInt(v int64) foreign.Handle {
	return it.objs.add(intObj{v: big.NewInt(v)})
}

// NewBigInt creates an integer of arbitrary size.
func (it *Interpreter) NewBigInt(v *big.Int) foreign.Handle {
	return it.objs.add(intObj{v: new(big.Int).Set(v)})
}

func (it *Interpreter) NewFloat(v float64) foreign.Handle {
	return it.objs.add(floatObj{v: v})
}

func (it *Interpreter) NewBool(v bool) foreign.Handle {
	h := it.no
	if v {
		h = it.yes
	}
	it.IncRef(h)
	return h
}

func (it *Interpreter) NewString(units []uint16) foreign.Handle {
	return it.objs.add(strObj{units: append([]uint16(nil), units...)})
}

func (it *Interpreter) NewChar(c uint16) foreign.Handle {
	return it.objs.add(strObj{units: []uint16{c}})
}

func (it *Interpreter) newStr(s string) foreign.Handle {
	return it.objs.add(strObj{units: encodeString(s)})
}

func (it *Interpreter) NewList(n int) foreign.Handle {
	if n < 0 {
		return it.raise("SystemError", "negative list size")
	}
	return it.objs.add(&listObj{items: make([]foreign.Handle, n)})
}

func (it *Interpreter) NewTuple(n int) foreign.Handle {
	if n < 0 {
		return it.raise("SystemError", "negative tuple size")
	}
	return it.objs.add(&tupleObj{items: make([]foreign.Handle, n)})
}

// newTupleOf builds a tuple stealing items.
func (it *Interpreter) newTupleOf(items ...foreign.Handle) foreign.Handle {
	return it.objs.add(&tupleObj{items: items})
}

func (it *Interpreter) PutItem(seq foreign.Handle, i int, item foreign.Handle) bool {
	obj, _ := it.objs.get(seq)
	var items []foreign.Handle
	switch o := obj.(type) {
	case *listObj:
		items = o.items
	case *tupleObj:
		items = o.items
	default:
		it.DecRef(item)
		it.raise("SystemError", "bad argument to internal function")
		return false
	}
	if i < 0 || i >= len(items) {
		it.DecRef(item)
		it.raise("IndexError", "list assignment index out of range")
		return false
	}
	old := items[i]
	items[i] = item
	it.DecRef(old)
	return true
}

func (it *Interpreter) NewDict() foreign.Handle {
	return it.objs.add(&dictObj{vals: make(map[string]foreign.Handle)})
}

func (it *Interpreter) DictSet(d foreign.Handle, key string, v foreign.Handle) bool {
	obj, _ := it.objs.get(d)
	o, ok := obj.(*dictObj)
	if !ok {
		it.raise("SystemError", "bad argument to internal function")
		return false
	}
	it.IncRef(v)
	if old, exists := o.vals[key]; exists {
		it.DecRef(old)
	} else {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return true
}

func (it *Interpreter) NewSlice(start, stop, step foreign.Handle) foreign.Handle {
	for _, h := range []foreign.Handle{start, stop, step} {
		it.IncRef(h)
	}
	return it.objs.add(&sliceObj{start: start, stop: stop, step: step})
}

func (it *Interpreter) Int64(h foreign.Handle) (int64, bool) {
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case intObj:
		if !o.v.IsInt64() {
			it.raise("OverflowError", "Python int too large to convert to C long")
			return -1, false
		}
		return o.v.Int64(), true
	case boolObj:
		if o.v {
			return 1, true
		}
		return 0, true
	case *scalarObj:
		if o.kind.IsInteger() || o.kind == dtype.Bool {
			return decodeNum(o.kind, o.raw[:]).i, true
		}
	}
	it.raise("TypeError", "'%s' object cannot be interpreted as an integer", it.TypeName(h))
	return -1, false
}

func (it *Interpreter) Float64(h foreign.Handle) (float64, bool) {
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case floatObj:
		return o.v, true
	case intObj:
		f, _ := new(big.Float).SetInt(o.v).Float64()
		if math.IsInf(f, 0) {
			it.raise("OverflowError", "int too large to convert to float")
			return -1, false
		}
		return f, true
	case boolObj:
		if o.v {
			return 1, true
		}
		return 0, true
	case *scalarObj:
		if o.kind.Supported() || o.kind.IsInteger() || o.kind.IsFloat() {
			return decodeNum(o.kind, o.raw[:]).float(), true
		}
	}
	it.raise("TypeError", "must be real number, not %s", it.TypeName(h))
	return -1, false
}

func (it *Interpreter) Truth(h foreign.Handle) (bool, bool) {
	obj, ok := it.objs.get(h)
	if !ok {
		it.raise("SystemError", "bad argument to internal function")
		return false, false
	}
	switch o := obj.(type) {
	case noneObj:
		return false, true
	case boolObj:
		return o.v, true
	case intObj:
		return o.v.Sign() != 0, true
	case floatObj:
		return o.v != 0, true
	case strObj:
		return len(o.units) > 0, true
	case *listObj:
		return len(o.items) > 0, true
	case *tupleObj:
		return len(o.items) > 0, true
	case *dictObj:
		return len(o.keys) > 0, true
	case *scalarObj:
		n := decodeNum(o.kind, o.raw[:])
		return n.float() != 0, true
	case *arrayObj:
		switch o.size() {
		case 0:
			return false, true
		case 1:
			return it.loadElem(o.kind, o.data).float() != 0, true
		}
		it.raise("ValueError", "The truth value of an array with more than one element is ambiguous. Use a.any() or a.all()")
		return false, false
	}
	return true, true
}

func (it *Interpreter) Units(h foreign.Handle) ([]uint16, bool) {
	obj, _ := it.objs.get(h)
	s, ok := obj.(strObj)
	if !ok {
		it.raise("TypeError", "expected str, got %s", it.TypeName(h))
		return nil, false
	}
	return append([]uint16(nil), s.units...), true
}

func (it *Interpreter) Len(h foreign.Handle) (int, bool) {
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case strObj:
		return len(o.units), true
	case *listObj:
		return len(o.items), true
	case *tupleObj:
		return len(o.items), true
	case *dictObj:
		return len(o.keys), true
	case *arrayObj:
		if len(o.shape) == 0 {
			it.raise("TypeError", "len() of unsized object")
			return -1, false
		}
		return o.shape[0], true
	}
	it.raise("TypeError", "object of type '%s' has no len()", it.TypeName(h))
	return -1, false
}

func (it *Interpreter) Item(seq foreign.Handle, i int) foreign.Handle {
	obj, _ := it.objs.get(seq)
	var items []foreign.Handle
	switch o := obj.(type) {
	case *listObj:
		items = o.items
	case *tupleObj:
		items = o.items
	default:
		return it.raise("TypeError", "'%s' object is not subscriptable", it.TypeName(seq))
	}
	if i < 0 || i >= len(items) {
		return it.raise("IndexError", "%s index out of range", obj.typeName())
	}
	return items[i]
}

func (it *Interpreter) Str(h foreign.Handle) foreign.Handle {
	if _, ok := it.objs.get(h); !ok {
		return it.raise("SystemError", "bad argument to internal function")
	}
	return it.newStr(it.str(h))
}

func (it *Interpreter) Import(name string) foreign.Handle {
	h, ok := it.modules[name]
	if !ok {
		return it.raise("ModuleNotFoundError", "No module named '%s'", name)
	}
	it.IncRef(h)
	return h
}

func (it *Interpreter) className(class foreign.Handle) string {
	obj, _ := it.objs.get(class)
	if c, ok := obj.(*classObj); ok {
		return c.name
	}
	return "?"
}

// String implements fmt.Stringer for debugging.
func (it *Interpreter) String() string {
	return fmt.Sprintf("Interpreter(objects=%d, heap=%d)", it.objs.live, it.heap.InUse())
}
