package ndarray

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
)

// Factory wraps array handles for one interpreter.
type Factory struct {
	api      foreign.Interpreter
	gil      *foreign.GIL
	tracker  *Tracker
	nextID   atomic.Uint64
	autoFree bool
	closed   atomic.Bool
}

// NewFactory creates a Factory. tracker may be nil.
func NewFactory(api foreign.Interpreter, gil *foreign.GIL, tracker *Tracker) *Factory {
	return &Factory{api: api, gil: gil, tracker: tracker}
}

// EnableAutoFree makes wrappers created afterwards release their reference
// under the interpreter lock when they are garbage collected without Free.
func (f *Factory) EnableAutoFree() {
	f.autoFree = true
}

// Close stops collected wrappers from touching the interpreter. Call it
// with the lock held, before the interpreter shuts down.
func (f *Factory) Close() {
	f.closed.Store(true)
}

// Tracker returns the factory's tracker, or nil.
func (f *Factory) Tracker() *Tracker {
	return f.tracker
}

// Array is a host wrapper over a foreign array.
type Array struct {
	f        *Factory
	id       uint64
	h        foreign.Handle
	kind     dtype.Kind
	shape    []int
	strides  []int
	itemSize int
	size     int
	view     bool
	start    uint32
	end      uint32
	cleanup  *runtime.Cleanup
}

// orphan is what a collected wrapper's cleanup needs to release its handle.
type orphan struct {
	f  *Factory
	id uint64
	h  foreign.Handle
}

func releaseOrphan(o orphan) {
	o.f.gil.Acquire()
	defer o.f.gil.Release()
	if o.f.closed.Load() {
		return
	}
	o.f.api.DecRef(o.h)
	if o.f.tracker != nil {
		o.f.tracker.untrack(o.id)
	}
	Logger().Debug("collected array released", zap.Uint64("id", o.id))
}

// Wrap takes a new reference to the array h and snapshots its metadata.
// The caller keeps its own reference. Requires the interpreter lock.
func (f *Factory) Wrap(h foreign.Handle) (*Array, error) {
	if !f.api.Check(h, foreign.TagArray) {
		return nil, errors.TypeMismatch(errors.PhaseDecode, nil, "*ndarray.Array", f.api.TypeName(h))
	}
	start, end := BufferRange(f.api, h)
	f.api.IncRef(h)
	a := &Array{
		f:        f,
		id:       f.nextID.Add(1),
		h:        h,
		kind:     f.api.Kind(h),
		shape:    f.api.Shape(h),
		strides:  f.api.Strides(h),
		itemSize: f.api.ItemSize(h),
		size:     f.api.Size(h),
		view:     f.api.Base(h) != foreign.Null,
		start:    start,
		end:      end,
	}
	if f.tracker != nil {
		f.tracker.track(a)
	}
	if f.autoFree {
		c := runtime.AddCleanup(a, releaseOrphan, orphan{f: f, id: a.id, h: h})
		a.cleanup = &c
	}
	Logger().Debug("array wrapped",
		zap.Uint64("id", a.id),
		zap.String("kind", a.kind.String()),
		zap.Ints("shape", a.shape))
	return a, nil
}

// BufferRange returns the byte range [start, end) of linear memory backing
// the array h. Views are resolved against their root base: the range starts
// at the view's first element and spans itemsize + Σ(shape_i-1)·stride_i
// bytes, clamped to the root's end. When that extent is negative the
// root's full range is returned. Requires the interpreter lock.
func BufferRange(api foreign.Arrays, h foreign.Handle) (start, end uint32) {
	data := api.Data(h)
	root := api.Base(h)
	if root == foreign.Null {
		return data, data + uint32(api.NBytes(h))
	}
	for b := api.Base(root); b != foreign.Null; b = api.Base(root) {
		root = b
	}
	rootStart := api.Data(root)
	rootEnd := rootStart + uint32(api.NBytes(root))

	shape, strides := api.Shape(h), api.Strides(h)
	extent := int64(api.ItemSize(h))
	for i, n := range shape {
		if n == 0 {
			return data, data
		}
		extent += int64(n-1) * int64(strides[i])
	}
	if extent < 0 {
		return rootStart, rootEnd
	}
	end = data + uint32(extent)
	if end > rootEnd {
		end = rootEnd
	}
	return data, end
}

// Handle returns the wrapped handle, or Null once freed.
func (a *Array) Handle() foreign.Handle { return a.h }

// ID identifies the wrapper within its factory.
func (a *Array) ID() uint64 { return a.id }

func (a *Array) Kind() dtype.Kind { return a.kind }
func (a *Array) NDim() int        { return len(a.shape) }
func (a *Array) ItemSize() int    { return a.itemSize }
func (a *Array) Size() int        { return a.size }
func (a *Array) IsView() bool     { return a.view }
func (a *Array) Freed() bool      { return a.h == foreign.Null }

func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

func (a *Array) Strides() []int {
	return append([]int(nil), a.strides...)
}

// Range returns the byte range computed by BufferRange at wrap time.
func (a *Array) Range() (start, end uint32) {
	return a.start, a.end
}

// Bytes returns a zero-copy view of the array's buffer. The view detaches
// when linear memory grows; View.Stale and View.Check report it.
func (a *Array) Bytes() (View, error) {
	if a.Freed() {
		return View{}, errors.State(errors.PhaseHeap, "array has been freed")
	}
	mem := a.f.api.Memory()
	gen := mem.Generation()
	buf, err := mem.Read(a.start, a.end-a.start)
	if err != nil {
		return View{}, errors.Wrap(errors.PhaseHeap, errors.KindOutOfBounds, err, "array buffer outside linear memory")
	}
	return View{Data: buf, mem: mem, gen: gen}, nil
}

// Free releases the foreign reference, acquiring the interpreter lock.
// Calling it again is a no-op.
func (a *Array) Free() {
	a.f.gil.Acquire()
	defer a.f.gil.Release()
	a.FreeHeld()
}

// FreeHeld is Free for callers already holding the interpreter lock.
func (a *Array) FreeHeld() {
	if a.h == foreign.Null {
		return
	}
	h := a.h
	a.h = foreign.Null
	if a.cleanup != nil {
		a.cleanup.Stop()
		a.cleanup = nil
	}
	if a.f.closed.Load() {
		return
	}
	a.f.api.DecRef(h)
	if a.f.tracker != nil {
		a.f.tracker.untrack(a.id)
	}
	Logger().Debug("array freed", zap.Uint64("id", a.id))
}

func (a *Array) String() string {
	if a.Freed() {
		return fmt.Sprintf("Array#%d(freed)", a.id)
	}
	return fmt.Sprintf("Array#%d(%s%v)", a.id, a.kind, a.shape)
}
