package transcoder

import (
	"reflect"

	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
)

// foreignOrder is the dispatch order for foreign values. Array scalars come
// before int and float, and bool before int, because the later checks also
// accept them.
var foreignOrder = [...]foreign.Tag{
	foreign.TagNone,
	foreign.TagString,
	foreign.TagChar,
	foreign.TagBool,
	foreign.TagArrayScalar,
	foreign.TagInt,
	foreign.TagFloat,
	foreign.TagArray,
	foreign.TagList,
	foreign.TagTuple,
}

// classifyForeign returns the first tag in foreignOrder that h satisfies,
// or TagUnknown.
func (c *Codec) classifyForeign(h foreign.Handle) foreign.Tag {
	for _, tag := range foreignOrder {
		if c.api.Check(h, tag) {
			return tag
		}
	}
	return foreign.TagUnknown
}

// decode converts the borrowed handle h to t. Failures either leave an
// error in the foreign slot and return errPending, or return a host error.
func (c *Codec) decode(h foreign.Handle, t *Target) (any, error) {
	tag := c.classifyForeign(h)
	if tag == foreign.TagNone {
		return c.decodeNone(h, t)
	}
	if t.Kind == TargetBool {
		return c.decodeBool(h)
	}

	switch tag {
	case foreign.TagString, foreign.TagChar:
		return c.decodeString(h, t)
	case foreign.TagBool:
		if t.Kind != TargetAny {
			return c.mismatch(h, t)
		}
		return c.decodeBool(h)
	case foreign.TagArrayScalar:
		return c.decodeArrayScalar(h, t)
	case foreign.TagInt:
		return c.decodeInt(h, t)
	case foreign.TagFloat:
		return c.decodeFloat(h, t)
	case foreign.TagArray:
		return c.decodeArray(h, t)
	case foreign.TagList, foreign.TagTuple:
		return c.decodeSequence(h, t)
	}
	c.bridge.Raise(handles.TypeError, "cannot convert %s to %s", c.api.TypeName(h), t.Name())
	return nil, errPending
}

// decodeNone maps none to nil for reference-like targets.
func (c *Codec) decodeNone(h foreign.Handle, t *Target) (any, error) {
	switch t.Kind {
	case TargetAny, TargetArray:
		return nil, nil
	case TargetList, TargetSlice:
		return reflect.Zero(t.Type).Interface(), nil
	}
	return c.mismatch(h, t)
}

// decodeArray wraps an array by reference transfer.
func (c *Codec) decodeArray(h foreign.Handle, t *Target) (any, error) {
	if t.Kind != TargetAny && t.Kind != TargetArray {
		return c.mismatch(h, t)
	}
	return c.arrays.Wrap(h)
}

// decodeSequence converts a list or tuple. The result is sized up front
// and filled in index order.
func (c *Codec) decodeSequence(h foreign.Handle, t *Target) (any, error) {
	n, ok := c.api.Len(h)
	if !ok {
		return nil, errPending
	}
	switch t.Kind {
	case TargetAny, TargetList:
		return fill[any](c, h, n, c.anyTarget())
	case TargetPair:
		return c.decodePair(h, n)
	case TargetSlice:
		return c.decodeSlice(h, n, t)
	}
	return c.mismatch(h, t)
}

func (c *Codec) decodePair(h foreign.Handle, n int) (any, error) {
	if n != 2 {
		c.bridge.Raise(handles.TypeError, "Expected a sequence of length 2 for pair but received length %d.", n)
		return nil, errPending
	}
	generic := c.anyTarget()
	first, err := c.decode(c.api.Item(h, 0), generic)
	if err != nil {
		return nil, err
	}
	second, err := c.decode(c.api.Item(h, 1), generic)
	if err != nil {
		c.discard(first)
		return nil, err
	}
	return host.Pair{First: first, Second: second}, nil
}

// decodeSlice fills a typed slice, taking a typed path for the supported
// element types.
func (c *Codec) decodeSlice(h foreign.Handle, n int, t *Target) (any, error) {
	switch t.Elem.Kind {
	case TargetInt8:
		return fill[int8](c, h, n, t.Elem)
	case TargetInt16:
		return fill[int16](c, h, n, t.Elem)
	case TargetInt32:
		return fill[int32](c, h, n, t.Elem)
	case TargetInt64:
		return fill[int64](c, h, n, t.Elem)
	case TargetFloat32:
		return fill[float32](c, h, n, t.Elem)
	case TargetFloat64:
		return fill[float64](c, h, n, t.Elem)
	case TargetBool:
		return fill[bool](c, h, n, t.Elem)
	case TargetChar:
		return fill[host.Char](c, h, n, t.Elem)
	}

	out := reflect.MakeSlice(t.Type, n, n)
	for i := 0; i < n; i++ {
		v, err := c.decode(c.api.Item(h, i), t.Elem)
		if err != nil {
			c.discard(out.Interface())
			return nil, err
		}
		if v != nil {
			out.Index(i).Set(reflect.ValueOf(v))
		}
	}
	return out.Interface(), nil
}

func fill[T any](c *Codec, h foreign.Handle, n int, elem *Target) ([]T, error) {
	out := make([]T, n)
	for i := range out {
		v, err := c.decode(c.api.Item(h, i), elem)
		if err != nil {
			c.discard(out)
			return nil, err
		}
		out[i], _ = v.(T)
	}
	return out, nil
}

func (c *Codec) anyTarget() *Target {
	t, _ := c.Classify(AnyType)
	return t
}

// discard frees every array wrapper inside a partially decoded value.
func (c *Codec) discard(v any) {
	switch x := v.(type) {
	case nil:
	case *ndarray.Array:
		if x != nil {
			x.FreeHeld()
		}
	case host.Pair:
		c.discard(x.First)
		c.discard(x.Second)
	case []any:
		for _, e := range x {
			c.discard(e)
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return
		}
		switch rv.Type().Elem().Kind() {
		case reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Struct:
			for i := 0; i < rv.Len(); i++ {
				c.discard(rv.Index(i).Interface())
			}
		}
	}
}
