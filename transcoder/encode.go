package transcoder

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
)

// encode converts v to a new foreign reference. On failure it returns Null
// with an error pending.
func (c *Codec) encode(v any) foreign.Handle {
	switch x := v.(type) {
	case nil, host.NoneType:
		return c.api.None()
	case reflect.Type:
		return c.encodeDType(x)
	case string:
		return c.api.NewString(host.EncodeUTF16(x))
	case host.Char:
		return c.api.NewChar(uint16(x))
	case int8:
		return c.api.NewInt(int64(x))
	case int16:
		return c.api.NewInt(int64(x))
	case int32:
		return c.api.NewInt(int64(x))
	case int64:
		return c.api.NewInt(x)
	case int:
		return c.api.NewInt(int64(x))
	case float32:
		return c.api.NewFloat(float64(x))
	case float64:
		return c.api.NewFloat(x)
	case bool:
		return c.api.NewBool(x)
	case []any:
		return c.encodeList(x)
	case *ndarray.Array:
		return c.encodeArray(x)
	case host.Slice:
		return c.encodeSlice(x)
	case host.Pair:
		return c.encodeTuple(2, func(i int) any {
			if i == 0 {
				return x.First
			}
			return x.Second
		})
	}
	return c.encodeSequence(v)
}

// encodeDType maps a Go element type to the foreign dtype descriptor.
func (c *Codec) encodeDType(rt reflect.Type) foreign.Handle {
	kind, ok := c.table.KindOf(rt)
	if !ok {
		c.bridge.Raise(handles.TypeError, "no dtype for Go type %s", rt)
		return foreign.Null
	}
	args := c.api.NewTuple(1)
	if args == foreign.Null {
		return foreign.Null
	}
	defer c.api.DecRef(args)
	typ := c.table.TypeObject(kind)
	c.api.IncRef(typ)
	if !c.api.PutItem(args, 0, typ) {
		return foreign.Null
	}
	return c.api.Call(c.table.DTypeFunc(), args, foreign.Null)
}

func (c *Codec) encodeList(items []any) foreign.Handle {
	list := c.api.NewList(len(items))
	if list == foreign.Null {
		return foreign.Null
	}
	for i, item := range items {
		h := c.encode(item)
		if h == foreign.Null || !c.api.PutItem(list, i, h) {
			c.api.DecRef(list)
			return foreign.Null
		}
	}
	return list
}

func (c *Codec) encodeArray(a *ndarray.Array) foreign.Handle {
	if a == nil {
		return c.api.None()
	}
	if a.Freed() {
		c.bridge.Raise(handles.ValueError, "%s has been freed", a)
		return foreign.Null
	}
	h := a.Handle()
	c.api.IncRef(h)
	return h
}

func (c *Codec) encodeSlice(s host.Slice) foreign.Handle {
	bounds := [3]foreign.Handle{}
	for i, p := range [3]*int{s.Start, s.Stop, s.Step} {
		if p == nil {
			continue
		}
		bounds[i] = c.api.NewInt(int64(*p))
	}
	defer func() {
		for _, b := range bounds {
			if b != foreign.Null {
				c.api.DecRef(b)
			}
		}
	}()
	return c.api.NewSlice(bounds[0], bounds[1], bounds[2])
}

// encodeTuple builds an n-tuple from at(0..n-1) in index order.
func (c *Codec) encodeTuple(n int, at func(i int) any) foreign.Handle {
	return c.fillTuple(n, func(i int) foreign.Handle { return c.encode(at(i)) })
}

// encodeSequence converts Go slices and arrays into tuples. Supported
// element types take a typed path; anything else goes element by element.
func (c *Codec) encodeSequence(v any) foreign.Handle {
	switch x := v.(type) {
	case []int8:
		return encodeInts(c, x)
	case []int16:
		return encodeInts(c, x)
	case []int32:
		return encodeInts(c, x)
	case []int64:
		return encodeInts(c, x)
	case []float32:
		return encodeFloats(c, x)
	case []float64:
		return encodeFloats(c, x)
	case []bool:
		return c.fillTuple(len(x), func(i int) foreign.Handle { return c.api.NewBool(x[i]) })
	case []host.Char:
		return c.fillTuple(len(x), func(i int) foreign.Handle { return c.api.NewChar(uint16(x[i])) })
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return c.encodeTuple(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	}
	Logger().Debug("unsupported Go type", zap.Stringer("type", reflect.TypeOf(v)))
	c.bridge.Raise(handles.TypeError, "cannot convert Go type %T", v)
	return foreign.Null
}

func encodeInts[T int8 | int16 | int32 | int64](c *Codec, xs []T) foreign.Handle {
	return c.fillTuple(len(xs), func(i int) foreign.Handle { return c.api.NewInt(int64(xs[i])) })
}

func encodeFloats[T float32 | float64](c *Codec, xs []T) foreign.Handle {
	return c.fillTuple(len(xs), func(i int) foreign.Handle { return c.api.NewFloat(float64(xs[i])) })
}

// fillTuple builds an n-tuple, stealing each item.
func (c *Codec) fillTuple(n int, item func(i int) foreign.Handle) foreign.Handle {
	tuple := c.api.NewTuple(n)
	if tuple == foreign.Null {
		return foreign.Null
	}
	for i := 0; i < n; i++ {
		h := item(i)
		if h == foreign.Null || !c.api.PutItem(tuple, i, h) {
			c.api.DecRef(tuple)
			return foreign.Null
		}
	}
	return tuple
}
