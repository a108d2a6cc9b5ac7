package interp

import (
	"testing"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

// newRange builds arange(n) reshaped to shape with the given kind.
func newRange(t *testing.T, it *Interpreter, kind dtype.Kind, shape ...int) foreign.Handle {
	t.Helper()
	h, a := it.newArray(kind, shape)
	if h == foreign.Null {
		t.Fatalf("newArray failed: %s", pendingType(it))
	}
	addr := a.data
	for i := 0; i < a.size(); i++ {
		it.storeElem(kind, addr, intNum(int64(i)))
		addr += uint32(kind.ItemSize())
	}
	return h
}

func newTestIter(t *testing.T, it *Interpreter, arr foreign.Handle, flags foreign.IterFlags) foreign.Iter {
	t.Helper()
	iter, ok := it.NewIter(arr, flags|foreign.IterForced, foreign.CastSafe)
	if !ok {
		t.Fatalf("NewIter failed: %s", pendingType(it))
	}
	t.Cleanup(func() { iter.Deallocate() })
	return iter
}

func current(it *Interpreter, iter foreign.Iter) int64 {
	return it.loadElem(iter.DTypes()[0], iter.DataPtrs()[0]).i
}

func TestIter_COrder(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Int32, 2, 3)
	defer it.DecRef(arr)

	iter := newTestIter(t, it, arr, 0)
	next := iter.NextFunc()
	getMulti := iter.MultiIndexFunc()
	if getMulti == nil {
		t.Fatal("expected multi-index tracking")
	}

	multi := make([]int, 2)
	var values []int64
	for {
		getMulti(multi)
		if want := [2]int{int(current(it, iter)) / 3, int(current(it, iter)) % 3}; multi[0] != want[0] || multi[1] != want[1] {
			t.Errorf("multi-index %v, want %v", multi, want)
		}
		if iter.Index() != int(current(it, iter)) {
			t.Errorf("index %d, want %d", iter.Index(), current(it, iter))
		}
		values = append(values, current(it, iter))
		if !next() {
			break
		}
	}
	if len(values) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(values))
	}
	for i, v := range values {
		if v != int64(i) {
			t.Errorf("element %d = %d", i, v)
		}
	}
	if iter.IterIndex() != 6 {
		t.Errorf("expected iter index 6 after exhaustion, got %d", iter.IterIndex())
	}
}

func TestIter_NegativeStrides(t *testing.T) {
	it := newTestInterp(t)
	base := newRange(t, it, dtype.Int64, 4)
	defer it.DecRef(base)
	arr := it.newView(base, dtype.Int64, []int{4}, []int{-8}, it.Data(base)+24)
	defer it.DecRef(arr)

	tests := []struct {
		name       string
		flags      foreign.IterFlags
		firstValue int64
		firstMulti int
	}{
		{"memory order", 0, 0, 3},
		{"dont negate", foreign.IterDontNegateStrides, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iter := newTestIter(t, it, arr, tt.flags)
			multi := make([]int, 1)
			iter.MultiIndexFunc()(multi)
			if got := current(it, iter); got != tt.firstValue {
				t.Errorf("first value %d, want %d", got, tt.firstValue)
			}
			if multi[0] != tt.firstMulti {
				t.Errorf("first multi-index %d, want %d", multi[0], tt.firstMulti)
			}
			if iter.Index() != tt.firstMulti {
				t.Errorf("first C index %d, want %d", iter.Index(), tt.firstMulti)
			}
		})
	}
}

func TestIter_ZeroSize(t *testing.T) {
	it := newTestInterp(t)
	arr := it.NewArray(dtype.Float64, []int{0, 3})
	defer it.DecRef(arr)

	if _, ok := it.NewIter(arr, foreign.IterForced, foreign.CastSafe); ok {
		t.Fatal("expected zero-size failure")
	}
	if got := pendingType(it); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}

	iter := newTestIter(t, it, arr, foreign.IterZeroSizeOK)
	if iter.IterSize() != 0 {
		t.Errorf("expected size 0, got %d", iter.IterSize())
	}
	if iter.NextFunc()() {
		t.Error("next on an empty iterator should fail")
	}
}

func TestIter_Goto(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Int16, 2, 3)
	defer it.DecRef(arr)
	iter := newTestIter(t, it, arr, 0)

	if !iter.GotoMultiIndex([]int{1, 1}) {
		t.Fatalf("GotoMultiIndex failed: %s", pendingType(it))
	}
	if got := current(it, iter); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
	if !iter.GotoIndex(2) {
		t.Fatalf("GotoIndex failed: %s", pendingType(it))
	}
	if got := current(it, iter); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if !iter.GotoIterIndex(5) {
		t.Fatalf("GotoIterIndex failed: %s", pendingType(it))
	}
	if got := current(it, iter); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}

	tests := []struct {
		name string
		move func() bool
		want string
	}{
		{"multi-index out of bounds", func() bool { return iter.GotoMultiIndex([]int{2, 0}) }, "IndexError"},
		{"wrong count", func() bool { return iter.GotoMultiIndex([]int{1}) }, "ValueError"},
		{"index out of bounds", func() bool { return iter.GotoIndex(6) }, "IndexError"},
		{"iter index out of bounds", func() bool { return iter.GotoIterIndex(-1) }, "IndexError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.move() {
				t.Fatal("expected failure")
			}
			if got := pendingType(it); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestIter_Range(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Int64, 6)
	defer it.DecRef(arr)
	iter := newTestIter(t, it, arr, 0)

	if !iter.ResetToIterIndexRange(2, 4) {
		t.Fatalf("ResetToIterIndexRange failed: %s", pendingType(it))
	}
	next := iter.NextFunc()
	var got []int64
	for ok := true; ok; ok = next() {
		got = append(got, current(it, iter))
	}
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("expected [2 3], got %v", got)
	}
	if start, end := iter.IterIndexRange(); start != 2 || end != 4 {
		t.Errorf("unexpected range [%d, %d)", start, end)
	}

	if iter.ResetToIterIndexRange(4, 7) {
		t.Fatal("expected out-of-bounds range failure")
	}
	if got := pendingType(it); got != "ValueError" {
		t.Errorf("expected ValueError, got %s", got)
	}
}

func TestIter_DelayedBufAlloc(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Float32, 3)
	defer it.DecRef(arr)

	iter := newTestIter(t, it, arr, foreign.IterBuffered|foreign.IterDelayBufAlloc)
	if !iter.HasDelayedBufAlloc() {
		t.Fatal("expected delayed buffer allocation")
	}
	iter.Reset()
	if iter.HasDelayedBufAlloc() {
		t.Error("reset should allocate buffers")
	}
	if iter.RemoveAxis(0) {
		t.Error("RemoveAxis must fail on a buffered iterator")
	}
	it.ErrClear()
}

func TestIter_RemoveAxis(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Int8, 2, 3)
	defer it.DecRef(arr)
	iter := newTestIter(t, it, arr, 0)

	before := iter.DataPtrs()
	if !iter.RemoveAxis(0) {
		t.Fatalf("RemoveAxis failed: %s", pendingType(it))
	}
	if &before[0] == &iter.DataPtrs()[0] {
		t.Error("data pointers should be reallocated")
	}
	shape, _ := iter.Shape()
	if len(shape) != 1 || shape[0] != 3 || iter.IterSize() != 3 {
		t.Errorf("unexpected shape %v size %d", shape, iter.IterSize())
	}

	if !iter.RemoveMultiIndex() {
		t.Fatalf("RemoveMultiIndex failed: %s", pendingType(it))
	}
	if iter.HasMultiIndex() || iter.MultiIndexFunc() != nil {
		t.Error("multi-index should be gone")
	}
	if iter.RemoveAxis(0) {
		t.Error("RemoveAxis requires a multi-index")
	}
	it.ErrClear()
}

func TestIter_DeallocateReleasesArray(t *testing.T) {
	it := newTestInterp(t)
	arr := newRange(t, it, dtype.Int32, 4)

	iter, ok := it.NewIter(arr, foreign.IterForced, foreign.CastSafe)
	if !ok {
		t.Fatal("NewIter failed")
	}
	if it.RefCount(arr) != 2 {
		t.Errorf("expected 2 references, got %d", it.RefCount(arr))
	}
	iter.Deallocate()
	iter.Deallocate()
	if it.RefCount(arr) != 1 {
		t.Errorf("expected 1 reference, got %d", it.RefCount(arr))
	}
	it.DecRef(arr)
}
