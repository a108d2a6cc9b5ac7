package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

func (it *Interpreter) str(h foreign.Handle) string {
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case strObj:
		return decodeString(o.units)
	case *excObj:
		t := it.tuple(o.args)
		switch len(t) {
		case 0:
			return ""
		case 1:
			return it.str(t[0])
		}
		return it.repr(o.args)
	}
	return it.repr(h)
}

func (it *Interpreter) tuple(h foreign.Handle) []foreign.Handle {
	obj, _ := it.objs.get(h)
	if t, ok := obj.(*tupleObj); ok {
		return t.items
	}
	return nil
}

func (it *Interpreter) repr(h foreign.Handle) string {
	obj, ok := it.objs.get(h)
	if !ok {
		return "<NULL>"
	}
	switch o := obj.(type) {
	case noneObj:
		return "None"
	case boolObj:
		if o.v {
			return "True"
		}
		return "False"
	case intObj:
		return o.v.String()
	case floatObj:
		return formatFloat(o.v)
	case strObj:
		return "'" + decodeString(o.units) + "'"
	case *listObj:
		return "[" + it.joinRepr(o.items) + "]"
	case *tupleObj:
		if len(o.items) == 1 {
			return "(" + it.repr(o.items[0]) + ",)"
		}
		return "(" + it.joinRepr(o.items) + ")"
	case *dictObj:
		parts := make([]string, len(o.keys))
		for i, k := range o.keys {
			parts[i] = "'" + k + "': " + it.repr(o.vals[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *sliceObj:
		return "slice(" + it.reprOrNone(o.start) + ", " + it.reprOrNone(o.stop) + ", " + it.reprOrNone(o.step) + ")"
	case dtypeObj:
		return "dtype('" + o.kind.String() + "')"
	case scalarTypeObj:
		return "<class '" + RootModule + "." + o.kind.String() + "'>"
	case *classObj:
		return "<class '" + o.name + "'>"
	case *excObj:
		return it.className(o.class) + it.repr(o.args)
	case *tbObj:
		return "<traceback object>"
	case *scalarObj:
		return formatElem(o.kind, decodeNum(o.kind, o.raw[:]))
	case *arrayObj:
		return it.formatArray(o)
	case *moduleObj:
		return "<module '" + o.name + "'>"
	case *funcObj:
		return "<built-in function " + o.name + ">"
	}
	return "<object>"
}

func (it *Interpreter) reprOrNone(h foreign.Handle) string {
	if h == foreign.Null {
		return "None"
	}
	return it.repr(h)
}

func (it *Interpreter) joinRepr(items []foreign.Handle) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = it.repr(item)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".en") {
		s += ".0"
	}
	return s
}

func formatElem(kind dtype.Kind, n num) string {
	switch {
	case kind == dtype.Bool:
		if n.i != 0 {
			return "True"
		}
		return "False"
	case kind == dtype.Char:
		return "'" + decodeString([]uint16{uint16(n.i)}) + "'"
	case kind.IsFloat():
		s := formatFloat(n.float())
		return strings.TrimSuffix(s, "0")
	}
	return strconv.FormatInt(n.i, 10)
}

// formatArray renders an array the way the extension prints it:
// nested brackets, space separated, one row per line.
func (it *Interpreter) formatArray(a *arrayObj) string {
	if len(a.shape) == 0 {
		return formatElem(a.kind, it.loadElem(a.kind, a.data))
	}
	var b strings.Builder
	it.formatDim(&b, a, 0, a.data)
	return b.String()
}

func (it *Interpreter) formatDim(b *strings.Builder, a *arrayObj, dim int, data uint32) {
	b.WriteByte('[')
	for i := 0; i < a.shape[dim]; i++ {
		addr := uint32(int64(data) + int64(i)*int64(a.strides[dim]))
		if i > 0 {
			if dim == len(a.shape)-1 {
				b.WriteByte(' ')
			} else {
				b.WriteString(strings.Repeat("\n", len(a.shape)-dim-1))
				b.WriteString(strings.Repeat(" ", dim+1))
			}
		}
		if dim == len(a.shape)-1 {
			b.WriteString(formatElem(a.kind, it.loadElem(a.kind, addr)))
		} else {
			it.formatDim(b, a, dim+1, addr)
		}
	}
	b.WriteByte(']')
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
