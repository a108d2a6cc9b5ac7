package interp

import (
	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

func (it *Interpreter) array(h foreign.Handle) *arrayObj {
	obj, _ := it.objs.get(h)
	a, _ := obj.(*arrayObj)
	return a
}

func (it *Interpreter) NDim(h foreign.Handle) int {
	if a := it.array(h); a != nil {
		return len(a.shape)
	}
	return 0
}

func (it *Interpreter) Shape(h foreign.Handle) []int {
	if a := it.array(h); a != nil {
		return append([]int(nil), a.shape...)
	}
	return nil
}

func (it *Interpreter) Strides(h foreign.Handle) []int {
	if a := it.array(h); a != nil {
		return append([]int(nil), a.strides...)
	}
	return nil
}

func (it *Interpreter) ItemSize(h foreign.Handle) int {
	if a := it.array(h); a != nil {
		return a.itemSize()
	}
	return 0
}

func (it *Interpreter) Size(h foreign.Handle) int {
	if a := it.array(h); a != nil {
		return a.size()
	}
	return 0
}

func (it *Interpreter) Kind(h foreign.Handle) dtype.Kind {
	if a := it.array(h); a != nil {
		return a.kind
	}
	return -1
}

func (it *Interpreter) Base(h foreign.Handle) foreign.Handle {
	if a := it.array(h); a != nil {
		return a.base
	}
	return foreign.Null
}

func (it *Interpreter) Data(h foreign.Handle) uint32 {
	if a := it.array(h); a != nil {
		return a.data
	}
	return 0
}

func (it *Interpreter) NBytes(h foreign.Handle) int {
	if a := it.array(h); a != nil {
		return a.size() * a.itemSize()
	}
	return 0
}

func (it *Interpreter) Scalar(h foreign.Handle) (dtype.Kind, []byte, bool) {
	obj, _ := it.objs.get(h)
	s, ok := obj.(*scalarObj)
	if !ok {
		it.raise("TypeError", "expected an array scalar, got %s", it.TypeName(h))
		return 0, nil, false
	}
	return s.kind, append([]byte(nil), s.raw[:s.kind.ItemSize()]...), true
}

func (it *Interpreter) NewScalar(kind dtype.Kind, raw []byte) foreign.Handle {
	size := kind.ItemSize()
	if size == 0 || len(raw) < size {
		return it.raise("TypeError", "data type not understood")
	}
	s := &scalarObj{kind: kind}
	copy(s.raw[:], raw[:size])
	return it.objs.add(s)
}

// NewArray allocates a zero-filled C-contiguous array.
func (it *Interpreter) NewArray(kind dtype.Kind, shape []int) foreign.Handle {
	h, _ := it.newArray(kind, shape)
	return h
}

func (it *Interpreter) newArray(kind dtype.Kind, shape []int) (foreign.Handle, *arrayObj) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			it.raise("ValueError", "negative dimensions are not allowed")
			return foreign.Null, nil
		}
		size *= d
	}
	itemSize := kind.ItemSize()
	if itemSize == 0 {
		it.raise("TypeError", "data type not understood")
		return foreign.Null, nil
	}

	nbytes := uint32(size * itemSize)
	addr, err := it.heap.Alloc(nbytes, 8)
	if err != nil {
		it.raise("MemoryError", "Unable to allocate %d bytes for an array with shape %s and data type %s",
			nbytes, formatShape(shape), kind)
		return foreign.Null, nil
	}
	if nbytes > 0 {
		_ = it.heap.Memory().Write(addr, make([]byte, nbytes))
	}

	a := &arrayObj{
		kind:    kind,
		shape:   append([]int(nil), shape...),
		strides: cStrides(shape, itemSize),
		data:    addr,
		owns:    true,
		alloc:   nbytes,
	}
	return it.objs.add(a), a
}

// newView creates an array sharing base's memory. base gains a reference.
func (it *Interpreter) newView(base foreign.Handle, kind dtype.Kind, shape, strides []int, data uint32) foreign.Handle {
	it.IncRef(base)
	return it.objs.add(&arrayObj{
		kind:    kind,
		shape:   shape,
		strides: strides,
		data:    data,
		base:    base,
	})
}

// forEach visits element addresses in C order.
func forEach(shape, strides []int, data uint32, fn func(addr uint32)) {
	size := 1
	for _, d := range shape {
		size *= d
	}
	if size == 0 {
		return
	}
	coords := make([]int, len(shape))
	addr := int64(data)
	for n := 0; n < size; n++ {
		fn(uint32(addr))
		for d := len(shape) - 1; d >= 0; d-- {
			coords[d]++
			addr += int64(strides[d])
			if coords[d] < shape[d] {
				break
			}
			addr -= int64(strides[d]) * int64(shape[d])
			coords[d] = 0
		}
	}
}

// copyArray makes a C-contiguous copy of a with elements cast to kind.
func (it *Interpreter) copyArray(a *arrayObj, kind dtype.Kind) foreign.Handle {
	h, dst := it.newArray(kind, a.shape)
	if h == foreign.Null {
		return h
	}
	out := dst.data
	step := uint32(kind.ItemSize())
	forEach(a.shape, a.strides, a.data, func(addr uint32) {
		it.storeElem(kind, out, it.loadElem(a.kind, addr))
		out += step
	})
	return h
}

// asArray converts h to an array. Arrays of the wanted kind come back with a
// new reference; everything else is copied.
func (it *Interpreter) asArray(h foreign.Handle, kind dtype.Kind, hasKind bool) foreign.Handle {
	if a := it.array(h); a != nil {
		if !hasKind || a.kind == kind {
			it.IncRef(h)
			return h
		}
		return it.copyArray(a, kind)
	}

	var shape []int
	var leaves []foreign.Handle
	if !it.collect(h, 0, &shape, &leaves) {
		return foreign.Null
	}

	inferred := dtype.Bool
	nums := make([]num, len(leaves))
	for i, leaf := range leaves {
		n, k, ok := it.numOf(leaf)
		if !ok {
			return foreign.Null
		}
		nums[i] = n
		inferred = promote(inferred, k, i == 0)
	}
	if len(leaves) == 0 {
		inferred = dtype.Float64
	}
	if !hasKind {
		kind = inferred
	}

	out, a := it.newArray(kind, shape)
	if out == foreign.Null {
		return out
	}
	addr := a.data
	for _, n := range nums {
		it.storeElem(kind, addr, n)
		addr += uint32(kind.ItemSize())
	}
	return out
}

// collect walks nested lists and tuples, recording the shape at each depth
// and the leaves in C order.
func (it *Interpreter) collect(h foreign.Handle, depth int, shape *[]int, leaves *[]foreign.Handle) bool {
	obj, _ := it.objs.get(h)
	var items []foreign.Handle
	switch o := obj.(type) {
	case *listObj:
		items = o.items
	case *tupleObj:
		items = o.items
	case *arrayObj:
		list := it.toList(o)
		defer it.DecRef(list)
		return it.collect(list, depth, shape, leaves)
	default:
		if depth != len(*shape) {
			it.raise("ValueError", "setting an array element with a sequence. The requested array has an inhomogeneous shape after %d dimensions.", depth)
			return false
		}
		*leaves = append(*leaves, h)
		return true
	}

	switch {
	case depth == len(*shape) && len(*leaves) == 0:
		*shape = append(*shape, len(items))
	case depth >= len(*shape) || (*shape)[depth] != len(items):
		it.raise("ValueError", "setting an array element with a sequence. The requested array has an inhomogeneous shape after %d dimensions.", depth)
		return false
	}
	for _, item := range items {
		if !it.collect(item, depth+1, shape, leaves) {
			return false
		}
	}
	return true
}

// toList converts an array to nested lists of array scalars.
func (it *Interpreter) toList(a *arrayObj) foreign.Handle {
	if len(a.shape) == 0 {
		return it.newScalarFrom(a.kind, it.loadElem(a.kind, a.data))
	}
	list := it.NewList(a.shape[0])
	for i := 0; i < a.shape[0]; i++ {
		data := uint32(int64(a.data) + int64(i)*int64(a.strides[0]))
		var item foreign.Handle
		if len(a.shape) == 1 {
			item = it.newScalarFrom(a.kind, it.loadElem(a.kind, data))
		} else {
			sub := &arrayObj{kind: a.kind, shape: a.shape[1:], strides: a.strides[1:], data: data}
			item = it.toList(sub)
		}
		it.PutItem(list, i, item)
	}
	return list
}

func promote(cur, next dtype.Kind, first bool) dtype.Kind {
	if first {
		return next
	}
	rank := func(k dtype.Kind) int {
		switch {
		case k == dtype.Bool:
			return 0
		case k == dtype.Char:
			return 1
		case k.IsInteger():
			return 2
		}
		return 3
	}
	if rank(next) > rank(cur) {
		if rank(next) == 2 {
			return dtype.Int64
		}
		if rank(next) == 3 {
			return dtype.Float64
		}
		return next
	}
	if rank(next) == rank(cur) && next != cur {
		if rank(cur) == 2 {
			return dtype.Int64
		}
		if rank(cur) == 3 {
			return dtype.Float64
		}
	}
	return cur
}

// region is the result of resolving an index against an array: a single
// element when scalar is set, otherwise a strided view.
type region struct {
	data    uint32
	shape   []int
	strides []int
	scalar  bool
}

func (it *Interpreter) resolveIndex(a *arrayObj, key foreign.Handle) (region, bool) {
	keys := []foreign.Handle{key}
	if obj, _ := it.objs.get(key); obj != nil {
		if t, ok := obj.(*tupleObj); ok {
			keys = t.items
		}
	}
	if len(keys) > len(a.shape) {
		it.raise("IndexError", "too many indices for array: array is %d-dimensional, but %d were indexed", len(a.shape), len(keys))
		return region{}, false
	}

	r := region{}
	data := int64(a.data)
	dim := 0
	for _, k := range keys {
		obj, _ := it.objs.get(k)
		switch o := obj.(type) {
		case *sliceObj:
			start, stop, step, ok := it.sliceIndices(o, a.shape[dim])
			if !ok {
				return region{}, false
			}
			data += int64(start) * int64(a.strides[dim])
			r.shape = append(r.shape, sliceLen(start, stop, step))
			r.strides = append(r.strides, a.strides[dim]*step)
		case intObj, *scalarObj:
			i, ok := it.Int64(k)
			if !ok {
				it.ErrClear()
				it.raise("IndexError", "only integers, slices (`:`), ellipsis (`...`) and integer arrays are valid indices")
				return region{}, false
			}
			n := int64(a.shape[dim])
			if i < 0 {
				i += n
			}
			if i < 0 || i >= n {
				orig := i
				if orig < 0 {
					orig -= n
				}
				it.raise("IndexError", "index %d is out of bounds for axis %d with size %d", orig, dim, n)
				return region{}, false
			}
			data += i * int64(a.strides[dim])
		default:
			it.raise("IndexError", "only integers, slices (`:`), ellipsis (`...`) and integer arrays are valid indices")
			return region{}, false
		}
		dim++
	}
	r.shape = append(r.shape, a.shape[dim:]...)
	r.strides = append(r.strides, a.strides[dim:]...)
	r.data = uint32(data)
	r.scalar = len(r.shape) == 0
	return r, true
}

// sliceIndices follows the dynamic language's slice.indices rules.
func (it *Interpreter) sliceIndices(s *sliceObj, n int) (start, stop, step int, ok bool) {
	bound := func(h foreign.Handle) (int, bool, bool) {
		if obj, _ := it.objs.get(h); obj == nil || obj.tag() == foreign.TagNone {
			return 0, false, true
		}
		v, ok := it.Int64(h)
		return int(v), true, ok
	}

	step = 1
	if v, set, ok := bound(s.step); !ok {
		return 0, 0, 0, false
	} else if set {
		if v == 0 {
			it.raise("ValueError", "slice step cannot be zero")
			return 0, 0, 0, false
		}
		step = v
	}

	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	clamp := func(v int) int {
		if v < 0 {
			v += n
			if v < lower {
				v = lower
			}
		} else if v > upper {
			v = upper
		}
		return v
	}

	if step > 0 {
		start, stop = lower, upper
	} else {
		start, stop = upper, lower
	}
	if v, set, ok := bound(s.start); !ok {
		return 0, 0, 0, false
	} else if set {
		start = clamp(v)
	}
	if v, set, ok := bound(s.stop); !ok {
		return 0, 0, 0, false
	} else if set {
		stop = clamp(v)
	}
	return start, stop, step, true
}

func sliceLen(start, stop, step int) int {
	if step > 0 && stop > start {
		return (stop - start + step - 1) / step
	}
	if step < 0 && start > stop {
		return (start - stop - step - 1) / -step
	}
	return 0
}

func (it *Interpreter) arrayGetItem(h foreign.Handle, a *arrayObj, key foreign.Handle) foreign.Handle {
	r, ok := it.resolveIndex(a, key)
	if !ok {
		return foreign.Null
	}
	if r.scalar {
		return it.newScalarFrom(a.kind, it.loadElem(a.kind, r.data))
	}
	return it.newView(h, a.kind, r.shape, r.strides, r.data)
}

func (it *Interpreter) arraySetItem(a *arrayObj, key, v foreign.Handle) bool {
	r, ok := it.resolveIndex(a, key)
	if !ok {
		return false
	}
	if it.TagOf(v) == foreign.TagList || it.TagOf(v) == foreign.TagTuple || it.TagOf(v) == foreign.TagArray {
		it.raise("ValueError", "setting an array element with a sequence.")
		return false
	}
	n, _, ok := it.numOf(v)
	if !ok {
		return false
	}
	forEach(r.shape, r.strides, r.data, func(addr uint32) {
		it.storeElem(a.kind, addr, n)
	})
	return true
}
