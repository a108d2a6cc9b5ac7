package cursor

import (
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/bridge"
	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/transcoder"
)

const (
	msgInvalid    = "Iterator is invalid"
	msgPastEnd    = "Iterator is past the end"
	msgNoMulti    = "Iterator is not tracking a multi-index"
	msgNoIndex    = "Iterator does not have an index"
	msgDelayed    = "Iterator construction used delayed buffer allocation, and no reset has been done yet"
	msgBadState   = "Iterator is in an invalid state"
	msgWrongCount = "Wrong number of indices"
	msgOperand    = "Iterator index is out of bounds"
)

// Cursor walks one array. It keeps the array's foreign reference alive
// through the iterator until Close.
type Cursor struct {
	api    foreign.Interpreter
	bridge *bridge.Bridge
	iter   foreign.Iter

	next  func() bool
	multi func([]int)
	ptrs  []uint32
	kinds []dtype.Kind

	started  bool
	finished bool
}

// New creates a cursor over arr. flags may hold any caller-selectable
// iterator flags; read-only access and both index kinds are always added.
func New(api foreign.Interpreter, b *bridge.Bridge, arr *ndarray.Array, flags foreign.IterFlags, casting foreign.Casting) (*Cursor, error) {
	if arr == nil || arr.Freed() {
		return nil, errors.State(errors.PhaseCursor, "cannot iterate a freed array")
	}
	if casting > foreign.CastUnsafe {
		return nil, errors.InvalidInput(errors.PhaseCursor, "unknown casting rule "+casting.String())
	}

	iter, ok := api.NewIter(arr.Handle(), flags|foreign.IterForced, casting)
	if !ok {
		return nil, failed(b)
	}
	c := &Cursor{api: api, bridge: b, iter: iter}
	c.refresh()
	c.settle()
	Logger().Debug("cursor created",
		zap.Stringer("array", arr),
		zap.Stringer("flags", flags|foreign.IterForced),
		zap.Stringer("casting", casting),
		zap.Int("size", iter.IterSize()))
	return c, nil
}

// refresh re-reads the cached iterator state after a structural change.
func (c *Cursor) refresh() {
	c.next = c.iter.NextFunc()
	c.multi = nil
	if c.iter.HasMultiIndex() && !c.iter.HasDelayedBufAlloc() {
		c.multi = c.iter.MultiIndexFunc()
	}
	c.ptrs = c.iter.DataPtrs()
	c.kinds = c.iter.DTypes()
}

// settle applies the empty-range rule shared by construction and reset.
func (c *Cursor) settle() {
	empty := c.iter.IterSize() == 0
	c.started, c.finished = empty, empty
}

// resolveMulti picks up a multi-index accessor the iterator did not offer
// before, as after a reset that resolved delayed buffer allocation.
func (c *Cursor) resolveMulti() {
	if c.multi == nil && c.iter.HasMultiIndex() && !c.iter.HasDelayedBufAlloc() {
		c.multi = c.iter.MultiIndexFunc()
	}
}

func (c *Cursor) valid() error {
	if c.iter == nil {
		return errors.State(errors.PhaseCursor, msgInvalid)
	}
	return nil
}

func (c *Cursor) live() error {
	if c.iter == nil || c.finished {
		return errors.State(errors.PhaseCursor, msgPastEnd)
	}
	return nil
}

// Finished reports whether the cursor is closed or exhausted.
func (c *Cursor) Finished() bool {
	return c.iter == nil || c.finished
}

// Started reports whether Advance has succeeded since the last reset or
// seek.
func (c *Cursor) Started() bool {
	return c.started
}

// Advance moves to the next element. The first call after construction,
// reset or seek stays on the current element. It returns false once the
// range is exhausted and keeps returning false until a reset or seek.
func (c *Cursor) Advance() bool {
	if c.iter == nil || c.next == nil || c.finished {
		c.finished = true
		return false
	}
	if c.started && !c.next() {
		c.finished = true
		return false
	}
	c.started = true
	return true
}

// Next advances and returns the value of operand 0. ok is false when the
// cursor is exhausted.
func (c *Cursor) Next() (v any, ok bool, err error) {
	if !c.Advance() {
		return nil, false, nil
	}
	v, err = c.Value(0)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Value decodes the current element of operand op. Negative op counts from
// the last operand.
func (c *Cursor) Value(op int) (any, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	if c.iter.HasDelayedBufAlloc() {
		return nil, errors.State(errors.PhaseCursor, msgDelayed)
	}
	nop := c.iter.NOp()
	if op < 0 {
		op += nop
	}
	if op < 0 || op >= nop {
		return nil, errors.New(errors.PhaseCursor, errors.KindOutOfBounds).
			Value(op).
			Detail(msgOperand).
			Build()
	}

	kind := c.kinds[op]
	if !kind.Supported() {
		return nil, errors.UnsupportedKind(errors.PhaseCursor, kind.String())
	}
	raw, err := c.api.Memory().Read(c.ptrs[op], uint32(kind.ItemSize()))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCursor, errors.KindOutOfBounds, err, "element outside linear memory")
	}
	v, err := transcoder.Element(kind, raw)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Reset rewinds to the start of the current range.
func (c *Cursor) Reset() error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.Reset() {
		return failed(c.bridge)
	}
	c.settle()
	c.resolveMulti()
	return nil
}

// SeekMultiIndex moves to the element at index, one entry per dimension.
func (c *Cursor) SeekMultiIndex(index []int) error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.HasMultiIndex() {
		return errors.State(errors.PhaseCursor, msgNoMulti)
	}
	if len(index) != c.iter.NDim() {
		return errors.New(errors.PhaseCursor, errors.KindInvalidInput).
			Value(len(index)).
			Detail(msgWrongCount).
			Build()
	}
	if !c.iter.GotoMultiIndex(index) {
		return failed(c.bridge)
	}
	c.started, c.finished = false, false
	return nil
}

// SeekIndex moves to the element at C-order index i.
func (c *Cursor) SeekIndex(i int) error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.HasIndex() {
		return errors.State(errors.PhaseCursor, msgNoIndex)
	}
	if !c.iter.GotoIndex(i) {
		return failed(c.bridge)
	}
	c.started, c.finished = false, false
	return nil
}

// SeekIterIndex moves to iteration index i.
func (c *Cursor) SeekIterIndex(i int) error {
	if err := c.valid(); err != nil {
		return err
	}
	if c.iter.HasDelayedBufAlloc() {
		return errors.State(errors.PhaseCursor, msgDelayed)
	}
	if !c.iter.GotoIterIndex(i) {
		return failed(c.bridge)
	}
	c.started, c.finished = false, false
	return nil
}

// SetRange restricts iteration to iteration indices [start, end) and
// rewinds to start.
func (c *Cursor) SetRange(start, end int) error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.ResetToIterIndexRange(start, end) {
		return failed(c.bridge)
	}
	empty := start >= end
	c.started, c.finished = empty, empty
	c.resolveMulti()
	return nil
}

// Range returns the current iteration range.
func (c *Cursor) Range() (start, end int, err error) {
	if err := c.valid(); err != nil {
		return 0, 0, err
	}
	start, end = c.iter.IterIndexRange()
	return start, end, nil
}

// RemoveAxis drops axis from iteration and rewinds.
func (c *Cursor) RemoveAxis(axis int) error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.RemoveAxis(axis) {
		return failed(c.bridge)
	}
	c.refresh()
	c.settle()
	return nil
}

// RemoveMultiIndex stops multi-index tracking and rewinds. Afterwards the
// iterator may coalesce dimensions.
func (c *Cursor) RemoveMultiIndex() error {
	if err := c.valid(); err != nil {
		return err
	}
	if !c.iter.RemoveMultiIndex() {
		return failed(c.bridge)
	}
	c.refresh()
	c.settle()
	return nil
}

// MultiIndex returns the current position, one entry per dimension.
func (c *Cursor) MultiIndex() ([]int, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	if c.multi == nil {
		switch {
		case !c.iter.HasMultiIndex():
			return nil, errors.State(errors.PhaseCursor, msgNoMulti)
		case c.iter.HasDelayedBufAlloc():
			return nil, errors.State(errors.PhaseCursor, msgDelayed)
		}
		return nil, errors.State(errors.PhaseCursor, msgBadState)
	}
	out := make([]int, c.iter.NDim())
	c.multi(out)
	return out, nil
}

// Index returns the current C-order index.
func (c *Cursor) Index() (int, error) {
	if err := c.live(); err != nil {
		return -1, err
	}
	if !c.iter.HasIndex() {
		return -1, errors.State(errors.PhaseCursor, msgNoIndex)
	}
	return c.iter.Index(), nil
}

// IterIndex returns the current iteration index.
func (c *Cursor) IterIndex() (int, error) {
	if err := c.live(); err != nil {
		return -1, err
	}
	return c.iter.IterIndex(), nil
}

// Shape returns the iteration shape.
func (c *Cursor) Shape() ([]int, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	shape, ok := c.iter.Shape()
	if !ok {
		return nil, failed(c.bridge)
	}
	return shape, nil
}

func (c *Cursor) NDim() (int, error) {
	if err := c.valid(); err != nil {
		return 0, err
	}
	return c.iter.NDim(), nil
}

func (c *Cursor) IterSize() (int, error) {
	if err := c.valid(); err != nil {
		return 0, err
	}
	return c.iter.IterSize(), nil
}

// Close deallocates the iterator. Calling it again is a no-op.
func (c *Cursor) Close() error {
	if c.iter == nil {
		return nil
	}
	iter := c.iter
	c.iter = nil
	c.next, c.multi = nil, nil
	c.ptrs, c.kinds = nil, nil
	Logger().Debug("cursor closed")
	if !iter.Deallocate() {
		return failed(c.bridge)
	}
	return nil
}

// failed hands the pending foreign error to the bridge.
func failed(b *bridge.Bridge) error {
	if err := b.Translate(errors.PhaseCursor); err != nil {
		return err
	}
	return errors.State(errors.PhaseCursor, "iterator call failed without a foreign error")
}
