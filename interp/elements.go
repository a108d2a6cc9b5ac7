package interp

import (
	"encoding/binary"
	"math"
	"unicode/utf16"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

// num is an element value in transit between kinds.
type num struct {
	i       int64
	f       float64
	isFloat bool
}

func intNum(i int64) num     { return num{i: i} }
func floatNum(f float64) num { return num{f: f, isFloat: true} }

func (n num) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n num) int() int64 {
	if n.isFloat {
		return int64(n.f)
	}
	return n.i
}

// decodeNum reads a little-endian element of kind.
func decodeNum(kind dtype.Kind, raw []byte) num {
	switch kind {
	case dtype.Bool, dtype.Uint8:
		return intNum(int64(raw[0]))
	case dtype.Int8:
		return intNum(int64(int8(raw[0])))
	case dtype.Int16:
		return intNum(int64(int16(binary.LittleEndian.Uint16(raw))))
	case dtype.Uint16, dtype.Char:
		return intNum(int64(binary.LittleEndian.Uint16(raw)))
	case dtype.Int32:
		return intNum(int64(int32(binary.LittleEndian.Uint32(raw))))
	case dtype.Uint32:
		return intNum(int64(binary.LittleEndian.Uint32(raw)))
	case dtype.Int64, dtype.Uint64:
		return intNum(int64(binary.LittleEndian.Uint64(raw)))
	case dtype.Float16:
		return floatNum(halfToFloat(binary.LittleEndian.Uint16(raw)))
	case dtype.Float32:
		return floatNum(float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))))
	case dtype.Float64:
		return floatNum(math.Float64frombits(binary.LittleEndian.Uint64(raw)))
	}
	return num{}
}

// encodeNum writes n as kind, casting unsafely like the array extension.
func encodeNum(kind dtype.Kind, n num) [8]byte {
	var raw [8]byte
	switch kind {
	case dtype.Bool:
		if n.float() != 0 {
			raw[0] = 1
		}
	case dtype.Int8, dtype.Uint8:
		raw[0] = byte(n.int())
	case dtype.Int16, dtype.Uint16, dtype.Char:
		binary.LittleEndian.PutUint16(raw[:], uint16(n.int()))
	case dtype.Int32, dtype.Uint32:
		binary.LittleEndian.PutUint32(raw[:], uint32(n.int()))
	case dtype.Int64, dtype.Uint64:
		binary.LittleEndian.PutUint64(raw[:], uint64(n.int()))
	case dtype.Float16:
		binary.LittleEndian.PutUint16(raw[:], floatToHalf(n.float()))
	case dtype.Float32:
		binary.LittleEndian.PutUint32(raw[:], math.Float32bits(float32(n.float())))
	case dtype.Float64:
		binary.LittleEndian.PutUint64(raw[:], math.Float64bits(n.float()))
	}
	return raw
}

func (it *Interpreter) loadElem(kind dtype.Kind, addr uint32) num {
	raw, err := it.heap.Memory().Read(addr, uint32(kind.ItemSize()))
	if err != nil {
		return num{}
	}
	return decodeNum(kind, raw)
}

func (it *Interpreter) storeElem(kind dtype.Kind, addr uint32, n num) {
	raw := encodeNum(kind, n)
	_ = it.heap.Memory().Write(addr, raw[:kind.ItemSize()])
}

// numOf reads a number-like object. Single-unit strings count as numbers
// so that char arrays can be built from them.
func (it *Interpreter) numOf(h foreign.Handle) (num, dtype.Kind, bool) {
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case boolObj:
		if o.v {
			return intNum(1), dtype.Bool, true
		}
		return intNum(0), dtype.Bool, true
	case intObj:
		if !o.v.IsInt64() {
			it.raise("OverflowError", "Python int too large to convert to C long")
			return num{}, 0, false
		}
		return intNum(o.v.Int64()), dtype.Int64, true
	case floatObj:
		return floatNum(o.v), dtype.Float64, true
	case *scalarObj:
		return decodeNum(o.kind, o.raw[:]), o.kind, true
	case strObj:
		if len(o.units) == 1 {
			return intNum(int64(o.units[0])), dtype.Char, true
		}
		it.raise("ValueError", "could not convert string to float: '%s'", decodeString(o.units))
		return num{}, 0, false
	}
	it.raise("TypeError", "float() argument must be a string or a real number, not '%s'", it.TypeName(h))
	return num{}, 0, false
}

// newScalarFrom boxes n as an array scalar of kind.
func (it *Interpreter) newScalarFrom(kind dtype.Kind, n num) foreign.Handle {
	return it.objs.add(&scalarObj{kind: kind, raw: encodeNum(kind, n)})
}

func encodeString(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func decodeString(units []uint16) string {
	return string(utf16.Decode(units))
}

func halfToFloat(h uint16) float64 {
	sign := uint32(h>>15) << 31
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff
	switch {
	case exp == 0 && frac == 0:
		return float64(math.Float32frombits(sign))
	case exp == 0:
		f := float64(frac) / 1024 * math.Pow(2, -14)
		if sign != 0 {
			f = -f
		}
		return f
	case exp == 0x1f:
		return float64(math.Float32frombits(sign | 0x7f800000 | frac<<13))
	}
	return float64(math.Float32frombits(sign | (exp+112)<<23 | frac<<13))
}

func floatToHalf(f float64) uint16 {
	bits := math.Float32bits(float32(f))
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	frac := bits & 0x7fffff
	switch {
	case bits&0x7fffffff == 0:
		return sign
	case bits>>23&0xff == 0xff:
		if frac != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		return sign
	}
	return sign | uint16(exp)<<10 | uint16(frac>>13)
}
