package ndarray

import (
	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/errors"
)

// View is a zero-copy window on an array buffer. Data aliases linear memory
// only while the memory keeps the generation it had when the view was taken.
type View struct {
	Data []byte
	mem  ndbridge.Memory
	gen  uint64
}

// Stale reports whether the memory has grown since the view was taken. A
// stale Data misses later interpreter writes and host writes to it are lost.
func (v View) Stale() bool {
	return v.mem == nil || v.mem.Generation() != v.gen
}

// Check returns a state error for a stale view.
func (v View) Check() error {
	if v.Stale() {
		return errors.New(errors.PhaseHeap, errors.KindState).
			Value(v.gen).
			Detail("array view detached by memory growth; call Bytes again").
			Build()
	}
	return nil
}
