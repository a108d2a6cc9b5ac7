package interp

import (
	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

// nditer walks one array operand in C order. Axes with negative strides
// are walked in memory order unless DontNegateStrides is set; the
// multi-index and C index still refer to the array's logical order.
type nditer struct {
	it      *Interpreter
	array   foreign.Handle
	kind    dtype.Kind
	flags   foreign.IterFlags
	casting foreign.Casting

	// logical layout of the operand, shrunk by RemoveAxis
	data      uint32
	arrShape  []int
	arrStride []int

	shape      []int
	strides    []int
	flipped    []bool
	origin     int64
	idxStrides []int
	idxBase    int
	size       int

	hasMulti bool
	hasIndex bool
	delayed  bool

	coords     []int
	iterIndex  int
	start, end int
	ptrs       []uint32
	released   bool
}

var _ foreign.Iter = (*nditer)(nil)

func (it *Interpreter) NewIter(array foreign.Handle, flags foreign.IterFlags, casting foreign.Casting) (foreign.Iter, bool) {
	a := it.array(array)
	if a == nil {
		it.raise("TypeError", "iterator operand must be an ndarray, not %s", it.TypeName(array))
		return nil, false
	}
	if a.size() == 0 && !flags.Has(foreign.IterZeroSizeOK) {
		it.raise("ValueError", "Iteration of zero-sized operands is not enabled")
		return nil, false
	}

	it.IncRef(array)
	n := &nditer{
		it:        it,
		array:     array,
		kind:      a.kind,
		flags:     flags,
		casting:   casting,
		data:      a.data,
		arrShape:  append([]int(nil), a.shape...),
		arrStride: append([]int(nil), a.strides...),
		hasMulti:  flags.Has(foreign.IterMultiIndex),
		hasIndex:  flags.Has(foreign.IterCIndex),
		delayed:   flags.Has(foreign.IterBuffered) && flags.Has(foreign.IterDelayBufAlloc),
	}
	n.layout()
	n.start, n.end = 0, n.size
	n.seek(0)
	Logger().Debug("iterator created")
	return n, true
}

// layout derives the walk order from the logical layout.
func (n *nditer) layout() {
	nd := len(n.arrShape)
	n.shape = append([]int(nil), n.arrShape...)
	n.strides = append([]int(nil), n.arrStride...)
	n.flipped = make([]bool, nd)
	n.idxStrides = make([]int, nd)
	n.coords = make([]int, nd)
	n.ptrs = make([]uint32, 1)
	n.origin = int64(n.data)
	n.idxBase = 0

	n.size = 1
	for _, d := range n.shape {
		n.size *= d
	}

	c := 1
	for d := nd - 1; d >= 0; d-- {
		n.idxStrides[d] = c
		c *= n.shape[d]
	}
	if n.flags.Has(foreign.IterDontNegateStrides) {
		return
	}
	for d := 0; d < nd; d++ {
		if n.strides[d] >= 0 || n.shape[d] == 0 {
			continue
		}
		n.origin += int64(n.shape[d]-1) * int64(n.strides[d])
		n.strides[d] = -n.strides[d]
		n.flipped[d] = true
		n.idxBase += (n.shape[d] - 1) * n.idxStrides[d]
		n.idxStrides[d] = -n.idxStrides[d]
	}
}

// seek positions the walk at iteration index i.
func (n *nditer) seek(i int) {
	n.iterIndex = i
	if i < n.size {
		rem := i
		for d := len(n.shape) - 1; d >= 0; d-- {
			n.coords[d] = rem % n.shape[d]
			rem /= n.shape[d]
		}
	}
	addr := n.origin
	for d, c := range n.coords {
		addr += int64(c) * int64(n.strides[d])
	}
	n.ptrs[0] = uint32(addr)
}

func (n *nditer) NextFunc() func() bool {
	return func() bool {
		if n.iterIndex+1 < n.end {
			n.seek(n.iterIndex + 1)
			return true
		}
		n.iterIndex = n.end
		return false
	}
}

func (n *nditer) MultiIndexFunc() func([]int) {
	if !n.hasMulti {
		return nil
	}
	return func(out []int) {
		for d, c := range n.coords {
			if n.flipped[d] {
				c = n.shape[d] - 1 - c
			}
			out[d] = c
		}
	}
}

func (n *nditer) Reset() bool {
	n.delayed = false
	n.seek(n.start)
	return true
}

func (n *nditer) ResetToIterIndexRange(start, end int) bool {
	if start < 0 || end > n.size || start > end {
		n.it.raise("ValueError", "Out-of-bounds range [%d, %d) passed to ResetToIterIndexRange", start, end)
		return false
	}
	n.start, n.end = start, end
	return n.Reset()
}

func (n *nditer) GotoMultiIndex(index []int) bool {
	if !n.hasMulti {
		n.it.raise("ValueError", "Cannot call GotoMultiIndex on an iterator without requesting a multi-index")
		return false
	}
	if len(index) != len(n.shape) {
		n.it.raise("ValueError", "Iterator GotoMultiIndex called with %d indices for %d dimensions", len(index), len(n.shape))
		return false
	}
	pos := 0
	for d, v := range index {
		if v < 0 || v >= n.shape[d] {
			n.it.raise("IndexError", "Iterator GotoMultiIndex called with an out-of-bounds multi-index")
			return false
		}
		if n.flipped[d] {
			v = n.shape[d] - 1 - v
		}
		pos = pos*n.shape[d] + v
	}
	if pos < n.start || pos >= n.end {
		n.it.raise("IndexError", "Iterator GotoMultiIndex called with a multi-index outside the restricted iteration range")
		return false
	}
	n.seek(pos)
	return true
}

func (n *nditer) GotoIndex(index int) bool {
	if !n.hasIndex {
		n.it.raise("ValueError", "Cannot call GotoIndex on an iterator without requesting a C or Fortran index")
		return false
	}
	if index < 0 || index >= n.size {
		n.it.raise("IndexError", "Iterator GotoIndex called with an out-of-bounds index")
		return false
	}
	pos := 0
	rem := index
	for d := range n.shape {
		c := rem / abs(n.idxStrides[d])
		rem %= abs(n.idxStrides[d])
		if n.flipped[d] {
			c = n.shape[d] - 1 - c
		}
		pos = pos*n.shape[d] + c
	}
	if pos < n.start || pos >= n.end {
		n.it.raise("IndexError", "Iterator GotoIndex called with an index outside the restricted iteration range")
		return false
	}
	n.seek(pos)
	return true
}

func (n *nditer) GotoIterIndex(index int) bool {
	if index < n.start || index >= n.end {
		n.it.raise("IndexError", "Iterator GotoIterIndex called with an iterindex outside the iteration range.")
		return false
	}
	n.seek(index)
	return true
}

func (n *nditer) RemoveAxis(axis int) bool {
	switch {
	case !n.hasMulti:
		n.it.raise("ValueError", "Iterator RemoveAxis may only be called if a multi-index is being tracked")
		return false
	case n.flags.Has(foreign.IterBuffered):
		n.it.raise("ValueError", "Iterator RemoveAxis may not be called on a buffered iterator")
		return false
	case axis < 0 || axis >= len(n.shape):
		n.it.raise("ValueError", "axis out of bounds in iterator RemoveAxis")
		return false
	}
	n.arrShape = append(n.arrShape[:axis:axis], n.arrShape[axis+1:]...)
	n.arrStride = append(n.arrStride[:axis:axis], n.arrStride[axis+1:]...)
	n.layout()
	n.start, n.end = 0, n.size
	return n.Reset()
}

func (n *nditer) RemoveMultiIndex() bool {
	n.hasMulti = false
	n.ptrs = []uint32{n.ptrs[0]}
	n.start, n.end = 0, n.size
	return n.Reset()
}

func (n *nditer) HasMultiIndex() bool      { return n.hasMulti }
func (n *nditer) HasIndex() bool           { return n.hasIndex }
func (n *nditer) HasDelayedBufAlloc() bool { return n.delayed }
func (n *nditer) NDim() int                { return len(n.shape) }
func (n *nditer) NOp() int                 { return 1 }
func (n *nditer) IterSize() int            { return n.size }
func (n *nditer) IterIndex() int           { return n.iterIndex }
func (n *nditer) DataPtrs() []uint32       { return n.ptrs }
func (n *nditer) DTypes() []dtype.Kind     { return []dtype.Kind{n.kind} }

func (n *nditer) IterIndexRange() (int, int) {
	return n.start, n.end
}

func (n *nditer) Shape() ([]int, bool) {
	return append([]int(nil), n.shape...), true
}

func (n *nditer) Index() int {
	if !n.hasIndex {
		return -1
	}
	idx := n.idxBase
	for d, c := range n.coords {
		idx += c * n.idxStrides[d]
	}
	return idx
}

func (n *nditer) Deallocate() bool {
	if n.released {
		return true
	}
	n.released = true
	n.it.DecRef(n.array)
	Logger().Debug("iterator deallocated")
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
