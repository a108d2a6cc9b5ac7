package transcoder

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/ndbridge/bridge"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/ndarray"
)

// errPending marks a failure whose error is waiting in the foreign slot.
var errPending = errors.New(errors.PhaseDispatch, errors.KindForeign).
	Detail("foreign error pending").
	Build()

// Codec converts values for one interpreter.
type Codec struct {
	api     foreign.Interpreter
	table   *handles.Table
	bridge  *bridge.Bridge
	arrays  *ndarray.Factory
	targets sync.Map // reflect.Type -> *Target
}

// New creates a Codec. Arrays decoded by the codec are wrapped by arrays.
func New(api foreign.Interpreter, table *handles.Table, b *bridge.Bridge, arrays *ndarray.Factory) *Codec {
	return &Codec{
		api:    api,
		table:  table,
		bridge: b,
		arrays: arrays,
	}
}

// Arrays returns the factory used for array results.
func (c *Codec) Arrays() *ndarray.Factory {
	return c.arrays
}

// Encode converts v to a new foreign reference. On failure it returns Null
// and leaves the error in the foreign slot for the caller to translate.
func (c *Codec) Encode(v any) foreign.Handle {
	return c.encode(v)
}

// ToForeign converts v to a new foreign reference.
func (c *Codec) ToForeign(v any) (foreign.Handle, error) {
	h := c.encode(v)
	if h == foreign.Null {
		return foreign.Null, c.fail(errors.PhaseEncode, errPending)
	}
	return h, nil
}

// ToHost converts the borrowed handle h to the Go type rt. A nil rt means
// AnyType. Arrays are wrapped by reference transfer; the caller frees the
// returned wrappers.
func (c *Codec) ToHost(h foreign.Handle, rt reflect.Type) (any, error) {
	t, ok := c.Classify(rt)
	if !ok {
		c.bridge.Raise(handles.TypeError, "cannot convert %s to Go type %s", c.api.TypeName(h), rt)
		return nil, c.fail(errors.PhaseDispatch, errPending)
	}
	v, err := c.decode(h, t)
	if err != nil {
		return nil, c.fail(errors.PhaseDecode, err)
	}
	return v, nil
}

// Decode converts h to T.
func Decode[T any](c *Codec, h foreign.Handle) (T, error) {
	var zero T
	v, err := c.ToHost(h, reflect.TypeFor[T]())
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		c.discard(v)
		return zero, errors.TypeMismatch(errors.PhaseDecode, nil, reflect.TypeFor[T]().String(), fmt.Sprintf("%T", v))
	}
	return out, nil
}

// Free releases every array wrapper inside a decoded value. Requires the
// interpreter lock.
func (c *Codec) Free(v any) {
	c.discard(v)
}

// fail turns errPending into the bridge's translation. Host errors pass
// through unchanged.
func (c *Codec) fail(phase errors.Phase, err error) error {
	if err != errPending {
		return err
	}
	if translated := c.bridge.Translate(phase); translated != nil {
		return translated
	}
	return errors.State(phase, "conversion failed without a foreign error")
}
