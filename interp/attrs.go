package interp

import (
	"github.com/wippyai/ndbridge/foreign"
)

func (it *Interpreter) GetAttr(h foreign.Handle, name string) foreign.Handle {
	obj, ok := it.objs.get(h)
	if !ok {
		return it.raise("SystemError", "bad argument to internal function")
	}
	switch o := obj.(type) {
	case *moduleObj:
		if v, ok := o.attrs[name]; ok {
			it.IncRef(v)
			return v
		}
		return it.raise("AttributeError", "module '%s' has no attribute '%s'", o.name, name)
	case *classObj:
		if name == "__name__" {
			return it.newStr(o.name)
		}
	case scalarTypeObj:
		if name == "__name__" {
			return it.newStr(o.kind.String())
		}
	case *funcObj:
		if name == "__name__" {
			return it.newStr(o.name)
		}
	case *excObj:
		switch name {
		case "args":
			it.IncRef(o.args)
			return o.args
		case "code":
			args := it.tuple(o.args)
			if len(args) == 0 {
				return it.None()
			}
			it.IncRef(args[0])
			return args[0]
		}
	case dtypeObj:
		switch name {
		case "name":
			return it.newStr(o.kind.String())
		case "itemsize":
			return it.NewInt(int64(o.kind.ItemSize()))
		}
	case *scalarObj:
		switch name {
		case "dtype":
			return it.objs.add(dtypeObj{kind: o.kind})
		case "itemsize":
			return it.NewInt(int64(o.kind.ItemSize()))
		}
	case *arrayObj:
		return it.arrayAttr(h, o, name)
	}
	return it.raise("AttributeError", "'%s' object has no attribute '%s'", it.TypeName(h), name)
}

func (it *Interpreter) arrayAttr(h foreign.Handle, a *arrayObj, name string) foreign.Handle {
	ints := func(vs []int) foreign.Handle {
		t := it.NewTuple(len(vs))
		for i, v := range vs {
			it.PutItem(t, i, it.NewInt(int64(v)))
		}
		return t
	}
	switch name {
	case "shape":
		return ints(a.shape)
	case "strides":
		return ints(a.strides)
	case "ndim":
		return it.NewInt(int64(len(a.shape)))
	case "size":
		return it.NewInt(int64(a.size()))
	case "itemsize":
		return it.NewInt(int64(a.itemSize()))
	case "nbytes":
		return it.NewInt(int64(a.size() * a.itemSize()))
	case "dtype":
		return it.objs.add(dtypeObj{kind: a.kind})
	case "base":
		if a.base == foreign.Null {
			return it.None()
		}
		it.IncRef(a.base)
		return a.base
	case "T":
		return it.transposeView(h, a)
	}
	return it.raise("AttributeError", "'ndarray' object has no attribute '%s'", name)
}

func (it *Interpreter) GetItem(h, key foreign.Handle) foreign.Handle {
	obj, ok := it.objs.get(h)
	if !ok {
		return it.raise("SystemError", "bad argument to internal function")
	}
	switch o := obj.(type) {
	case *listObj, *tupleObj:
		i, ok := it.Int64(key)
		if !ok {
			it.ErrClear()
			return it.raise("TypeError", "%s indices must be integers or slices, not %s", obj.typeName(), it.TypeName(key))
		}
		n, _ := it.Len(h)
		if i < 0 {
			i += int64(n)
		}
		item := it.Item(h, int(i))
		if item != foreign.Null {
			it.IncRef(item)
		}
		return item
	case *dictObj:
		units, ok := it.Units(key)
		if !ok {
			return foreign.Null
		}
		v, exists := o.vals[decodeString(units)]
		if !exists {
			return it.raise("KeyError", "%s", it.repr(key))
		}
		it.IncRef(v)
		return v
	case *arrayObj:
		return it.arrayGetItem(h, o, key)
	}
	return it.raise("TypeError", "'%s' object is not subscriptable", it.TypeName(h))
}

func (it *Interpreter) AssignItem(h, key, v foreign.Handle) bool {
	obj, ok := it.objs.get(h)
	if !ok {
		it.raise("SystemError", "bad argument to internal function")
		return false
	}
	switch o := obj.(type) {
	case *listObj:
		i, ok := it.Int64(key)
		if !ok {
			return false
		}
		if i < 0 {
			i += int64(len(o.items))
		}
		it.IncRef(v)
		return it.PutItem(h, int(i), v)
	case *dictObj:
		units, ok := it.Units(key)
		if !ok {
			return false
		}
		return it.DictSet(h, decodeString(units), v)
	case *arrayObj:
		return it.arraySetItem(o, key, v)
	}
	it.raise("TypeError", "'%s' object does not support item assignment", it.TypeName(h))
	return false
}

// Call invokes fn. args must be a tuple; kwargs may be Null or a dict.
func (it *Interpreter) Call(fn, args, kwargs foreign.Handle) foreign.Handle {
	positional := it.tuple(args)
	if positional == nil && it.TagOf(args) != foreign.TagTuple {
		return it.raise("TypeError", "argument list must be a tuple")
	}
	kw := make(map[string]foreign.Handle)
	if kwargs != foreign.Null {
		obj, _ := it.objs.get(kwargs)
		d, ok := obj.(*dictObj)
		if !ok {
			return it.raise("TypeError", "argument after ** must be a mapping, not %s", it.TypeName(kwargs))
		}
		for _, k := range d.keys {
			kw[k] = d.vals[k]
		}
	}
	return it.call(fn, positional, kw)
}

func (it *Interpreter) call(fn foreign.Handle, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	obj, ok := it.objs.get(fn)
	if !ok {
		return it.raise("SystemError", "bad argument to internal function")
	}
	switch o := obj.(type) {
	case *funcObj:
		out := o.fn(it, args, kw)
		if out == foreign.Null {
			if !it.ErrOccurred() {
				it.raise("SystemError", "%s() returned NULL without setting an exception", o.name)
			}
			it.pushFrame(o.loc)
		}
		return out
	case scalarTypeObj:
		return it.constructScalar(o, args, kw)
	case *classObj:
		if len(kw) > 0 {
			return it.raise("TypeError", "%s() takes no keyword arguments", o.name)
		}
		tuple := it.NewTuple(len(args))
		for i, a := range args {
			it.IncRef(a)
			it.PutItem(tuple, i, a)
		}
		return it.newException(fn, tuple)
	}
	return it.raise("TypeError", "'%s' object is not callable", it.TypeName(fn))
}

// callAttr calls module attribute name of mod from inside a builtin, so
// failures record one more frame.
func (it *Interpreter) callAttr(mod, name string, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	m, ok := it.modules[mod]
	if !ok {
		return it.raise("ModuleNotFoundError", "No module named '%s'", mod)
	}
	fn := it.GetAttr(m, name)
	if fn == foreign.Null {
		return fn
	}
	defer it.DecRef(fn)
	return it.call(fn, args, kw)
}

func (it *Interpreter) constructScalar(t scalarTypeObj, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	if len(kw) > 0 {
		return it.raise("TypeError", "%s() takes no keyword arguments", t.kind)
	}
	if len(args) == 0 {
		return it.newScalarFrom(t.kind, num{isFloat: t.kind.IsFloat()})
	}
	if len(args) > 1 {
		return it.raise("TypeError", "%s() takes at most 1 argument (%d given)", t.kind, len(args))
	}
	if units, ok := it.objs.get(args[0]); ok {
		if s, isStr := units.(strObj); isStr && len(s.units) != 1 {
			n, ok := parseNumber(decodeString(s.units), t.kind)
			if !ok {
				return it.raise("ValueError", "could not convert string to %s: '%s'", t.kind, decodeString(s.units))
			}
			return it.newScalarFrom(t.kind, n)
		}
	}
	n, _, ok := it.numOf(args[0])
	if !ok {
		return foreign.Null
	}
	return it.newScalarFrom(t.kind, n)
}
