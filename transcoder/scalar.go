package transcoder

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/host"
)

// Element decodes one little-endian array element at its natural width.
// Kinds outside the supported set fail with "Unknown type".
func Element(kind dtype.Kind, raw []byte) (any, error) {
	if !kind.Supported() {
		return nil, errors.UnsupportedKind(errors.PhaseDecode, kind.String())
	}
	if len(raw) < kind.ItemSize() {
		return nil, errors.OutOfBounds(errors.PhaseDecode, nil, kind.ItemSize()-1, len(raw))
	}
	switch kind {
	case dtype.Int8:
		return int8(raw[0]), nil
	case dtype.Int16:
		return int16(binary.LittleEndian.Uint16(raw)), nil
	case dtype.Int32:
		return int32(binary.LittleEndian.Uint32(raw)), nil
	case dtype.Int64:
		return int64(binary.LittleEndian.Uint64(raw)), nil
	case dtype.Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
	case dtype.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
	case dtype.Bool:
		return raw[0] != 0, nil
	case dtype.Char:
		return host.Char(binary.LittleEndian.Uint16(raw)), nil
	}
	return nil, errors.UnsupportedKind(errors.PhaseDecode, kind.String())
}

// EncodeElement is the inverse of Element for values of the kind's Go type.
func EncodeElement(kind dtype.Kind, v any) ([]byte, bool) {
	raw := make([]byte, kind.ItemSize())
	switch x := v.(type) {
	case int8:
		if kind != dtype.Int8 {
			return nil, false
		}
		raw[0] = byte(x)
	case int16:
		if kind != dtype.Int16 {
			return nil, false
		}
		binary.LittleEndian.PutUint16(raw, uint16(x))
	case int32:
		if kind != dtype.Int32 {
			return nil, false
		}
		binary.LittleEndian.PutUint32(raw, uint32(x))
	case int64:
		if kind != dtype.Int64 {
			return nil, false
		}
		binary.LittleEndian.PutUint64(raw, uint64(x))
	case float32:
		if kind != dtype.Float32 {
			return nil, false
		}
		binary.LittleEndian.PutUint32(raw, math.Float32bits(x))
	case float64:
		if kind != dtype.Float64 {
			return nil, false
		}
		binary.LittleEndian.PutUint64(raw, math.Float64bits(x))
	case bool:
		if kind != dtype.Bool {
			return nil, false
		}
		if x {
			raw[0] = 1
		}
	case host.Char:
		if kind != dtype.Char {
			return nil, false
		}
		binary.LittleEndian.PutUint16(raw, uint16(x))
	default:
		return nil, false
	}
	return raw, true
}

// narrow range-checks v against an integer target and converts it.
func (c *Codec) narrow(v int64, k TargetKind) (any, error) {
	lo, hi := k.bounds()
	if v < lo || v > hi {
		c.bridge.Raise(handles.OverflowError, "%d is outside the valid range of %s [%d, %d]", v, k, lo, hi)
		return nil, errPending
	}
	switch k {
	case TargetInt8:
		return int8(v), nil
	case TargetInt16:
		return int16(v), nil
	case TargetInt32:
		return int32(v), nil
	case TargetInt:
		return int(v), nil
	}
	return v, nil
}

// toFloat converts to a float target. float32 overflow becomes ±Inf.
func toFloat(f float64, k TargetKind) any {
	if k == TargetFloat32 {
		return float32(f)
	}
	return f
}

func (c *Codec) mismatch(h foreign.Handle, t *Target) (any, error) {
	c.bridge.Raise(handles.TypeError, "Expected %s but received a %s.", t.Name(), c.api.TypeName(h))
	return nil, errPending
}

// decodeInt converts a foreign integer.
func (c *Codec) decodeInt(h foreign.Handle, t *Target) (any, error) {
	switch {
	case t.Kind == TargetAny:
		t = &Target{Kind: TargetInt64}
	case !t.Kind.IsInteger():
		return c.mismatch(h, t)
	}
	v, ok := c.api.Int64(h)
	if !ok {
		return nil, errPending
	}
	return c.narrow(v, t.Kind)
}

// decodeFloat converts a foreign float.
func (c *Codec) decodeFloat(h foreign.Handle, t *Target) (any, error) {
	switch {
	case t.Kind == TargetAny:
		t = &Target{Kind: TargetFloat64}
	case !t.Kind.IsFloat():
		return c.mismatch(h, t)
	}
	f, ok := c.api.Float64(h)
	if !ok {
		return nil, errPending
	}
	return toFloat(f, t.Kind), nil
}

// decodeString converts a foreign string to a string or a single Char.
func (c *Codec) decodeString(h foreign.Handle, t *Target) (any, error) {
	switch t.Kind {
	case TargetAny, TargetString, TargetChar:
	default:
		return c.mismatch(h, t)
	}
	units, ok := c.api.Units(h)
	if !ok {
		return nil, errPending
	}
	if t.Kind != TargetChar {
		return host.DecodeUTF16(units), nil
	}
	if len(units) != 1 {
		c.bridge.Raise(handles.TypeError, "Expected char but received a %s.", c.api.TypeName(h))
		return nil, errPending
	}
	return host.Char(units[0]), nil
}

// decodeBool applies the truth-value protocol.
func (c *Codec) decodeBool(h foreign.Handle) (any, error) {
	v, ok := c.api.Truth(h)
	if !ok {
		return nil, errPending
	}
	return v, nil
}

// decodeArrayScalar converts an array scalar at the requested width.
func (c *Codec) decodeArrayScalar(h foreign.Handle, t *Target) (any, error) {
	kind, raw, ok := c.api.Scalar(h)
	if !ok {
		return nil, errPending
	}
	v, err := Element(kind, raw)
	if err != nil {
		return nil, err
	}
	if t.Kind == TargetAny {
		return v, nil
	}

	switch x := v.(type) {
	case int8, int16, int32, int64:
		if !t.Kind.IsInteger() {
			return c.mismatch(h, t)
		}
		return c.narrow(widen(x), t.Kind)
	case float32:
		if !t.Kind.IsFloat() {
			return c.mismatch(h, t)
		}
		if t.Kind == TargetFloat32 {
			return x, nil
		}
		return float64(x), nil
	case float64:
		if !t.Kind.IsFloat() {
			return c.mismatch(h, t)
		}
		return toFloat(x, t.Kind), nil
	case host.Char:
		switch t.Kind {
		case TargetChar:
			return x, nil
		case TargetString:
			return x.String(), nil
		}
	}
	return c.mismatch(h, t)
}

func widen(v any) int64 {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	}
	return 0
}
