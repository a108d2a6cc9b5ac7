package interp

import (
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/foreign"
)

const (
	coreSource    = "numeric/_core/fromnumeric.src"
	numericSource = "numeric/_core/numeric.src"
	linalgSource  = "numeric/linalg/_linalg.src"
	frozenCore    = "<frozen numeric._core>"
)

func (it *Interpreter) newModule(name string) (foreign.Handle, *moduleObj) {
	m := &moduleObj{name: name, attrs: make(map[string]foreign.Handle)}
	h := it.objs.add(m)
	it.modules[name] = h
	return h, m
}

// setAttr stores v on m, stealing the reference.
func (it *Interpreter) setAttr(m *moduleObj, name string, v foreign.Handle) {
	if old, ok := m.attrs[name]; ok {
		it.DecRef(old)
	} else {
		m.order = append(m.order, name)
	}
	m.attrs[name] = v
}

func (it *Interpreter) def(m *moduleObj, name string, fn builtinFunc, loc tbFrame) {
	if loc.fn == "" {
		loc.fn = name
	}
	it.setAttr(m, name, it.objs.add(&funcObj{name: name, fn: fn, loc: loc}))
}

// bind matches positional and keyword arguments against names. Absent
// optional parameters come back as Null. All results are borrowed.
func (it *Interpreter) bind(fn string, args []foreign.Handle, kw map[string]foreign.Handle, names []string, required int) ([]foreign.Handle, bool) {
	if len(args) > len(names) {
		it.raise("TypeError", "%s() takes at most %d positional arguments (%d given)", fn, len(names), len(args))
		return nil, false
	}
	out := make([]foreign.Handle, len(names))
	copy(out, args)
	for k, v := range kw {
		idx := -1
		for i, n := range names {
			if n == k {
				idx = i
				break
			}
		}
		if idx < 0 {
			it.raise("TypeError", "%s() got an unexpected keyword argument '%s'", fn, k)
			return nil, false
		}
		if idx < len(args) {
			it.raise("TypeError", "%s() got multiple values for argument '%s'", fn, k)
			return nil, false
		}
		out[idx] = v
	}
	for i := 0; i < required; i++ {
		if out[i] == foreign.Null {
			it.raise("TypeError", "%s() missing required argument '%s' (pos %d)", fn, names[i], i+1)
			return nil, false
		}
	}
	return out, true
}

func (it *Interpreter) isNone(h foreign.Handle) bool {
	return h == foreign.Null || h == it.none
}

func (it *Interpreter) installBuiltins() {
	it.installClasses()
	_, m := it.newModule("builtins")
	for _, c := range exceptionClasses {
		h := it.classes[c.name]
		it.IncRef(h)
		it.setAttr(m, c.name, h)
	}
	it.def(m, "float", builtinFloat, tbFrame{file: "builtins"})
	it.def(m, "int", builtinInt, tbFrame{file: "builtins"})
	it.def(m, "len", builtinLen, tbFrame{file: "builtins"})
	it.def(m, "str", builtinStr, tbFrame{file: "builtins"})
}

func (it *Interpreter) installSys() {
	_, m := it.newModule("sys")
	it.def(m, "exit", sysExit, tbFrame{file: "sys"})
}

func (it *Interpreter) installTraceback() {
	_, m := it.newModule("traceback")
	it.def(m, "extract_tb", extractTB, tbFrame{file: "traceback.src", line: 61, text: "return StackSummary._extract_from_extended_frame_gen(tb, limit=limit)"})
}

func (it *Interpreter) installNumeric() {
	_, m := it.newModule(RootModule)
	it.setAttr(m, "__version__", it.newStr(it.version))

	it.def(m, "array", numArray, tbFrame{file: numericSource, line: 212, text: "return _array(object, dtype=dtype)"})
	it.def(m, "asarray", numAsArray, tbFrame{file: numericSource, line: 240, text: "return _asarray(a, dtype=dtype)"})
	it.def(m, "_asarray", numAsArray, tbFrame{file: frozenCore, fn: "_asarray"})
	it.def(m, "zeros", numZeros, tbFrame{file: numericSource, line: 141, text: "return _zeros(shape, dtype)"})
	it.def(m, "arange", numArange, tbFrame{file: numericSource, line: 88, text: "return _arange(start, stop, step, dtype=dtype)"})
	it.def(m, "reshape", numReshape, tbFrame{file: coreSource, line: 285, text: "return _wrapfunc(a, 'reshape', shape)"})
	it.def(m, "transpose", numTranspose, tbFrame{file: coreSource, line: 655, text: "return _wrapfunc(a, 'transpose', axes)"})
	it.def(m, "flip", numFlip, tbFrame{file: coreSource, line: 312, text: "return m[indexer]"})
	it.def(m, "sum", numSum, tbFrame{file: coreSource, line: 2313, text: "return _wrapreduction(a, add, 'sum', axis, dtype, out, keepdims=keepdims)"})
	it.def(m, "astype", numAsType, tbFrame{file: coreSource, line: 702, text: "return x.astype(dtype, copy=copy)"})
	it.def(m, "tolist", numToList, tbFrame{file: coreSource, line: 740, text: "return a.tolist()"})
	it.def(m, "dtype", numDType, tbFrame{file: numericSource, line: 30, text: "return _dtype(obj)"})

	for _, k := range []dtype.Kind{dtype.Int8, dtype.Uint8, dtype.Int16, dtype.Int32, dtype.Int64,
		dtype.Float16, dtype.Float32, dtype.Float64, dtype.Bool, dtype.Char} {
		it.setAttr(m, k.String(), it.objs.add(scalarTypeObj{kind: k}))
	}
	it.IncRef(m.attrs[dtype.Bool.String()])
	it.setAttr(m, "bool_", m.attrs[dtype.Bool.String()])

	linalg, lm := it.newModule(RootModule + ".linalg")
	it.def(lm, "norm", linalgNorm, tbFrame{file: linalgSource, line: 2583, text: "x = asarray(x)"})
	it.IncRef(linalg)
	it.setAttr(m, "linalg", linalg)
}

func builtinFloat(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("float", args, kw, []string{"x"}, 0)
	if !ok {
		return foreign.Null
	}
	if a[0] == foreign.Null {
		return it.NewFloat(0)
	}
	if obj, _ := it.objs.get(a[0]); obj != nil {
		if s, isStr := obj.(strObj); isStr {
			n, ok := parseNumber(decodeString(s.units), dtype.Float64)
			if !ok {
				return it.raise("ValueError", "could not convert string to float: '%s'", decodeString(s.units))
			}
			return it.NewFloat(n.f)
		}
	}
	f, ok := it.Float64(a[0])
	if !ok {
		return foreign.Null
	}
	return it.NewFloat(f)
}

func builtinInt(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("int", args, kw, []string{"x"}, 0)
	if !ok {
		return foreign.Null
	}
	if a[0] == foreign.Null {
		return it.NewInt(0)
	}
	obj, _ := it.objs.get(a[0])
	switch o := obj.(type) {
	case intObj:
		it.IncRef(a[0])
		return a[0]
	case floatObj:
		if math.IsInf(o.v, 0) || math.IsNaN(o.v) {
			return it.raise("OverflowError", "cannot convert float infinity to integer")
		}
		return it.NewInt(int64(o.v))
	case strObj:
		n, ok := parseNumber(decodeString(o.units), dtype.Int64)
		if !ok {
			return it.raise("ValueError", "invalid literal for int() with base 10: '%s'", decodeString(o.units))
		}
		return it.NewInt(n.i)
	}
	n, _, ok := it.numOf(a[0])
	if !ok {
		return foreign.Null
	}
	return it.NewInt(n.int())
}

func builtinLen(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("len", args, kw, []string{"obj"}, 1)
	if !ok {
		return foreign.Null
	}
	n, ok := it.Len(a[0])
	if !ok {
		return foreign.Null
	}
	return it.NewInt(int64(n))
}

func builtinStr(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("str", args, kw, []string{"object"}, 0)
	if !ok {
		return foreign.Null
	}
	if a[0] == foreign.Null {
		return it.newStr("")
	}
	return it.Str(a[0])
}

func sysExit(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("exit", args, kw, []string{"status"}, 0)
	if !ok {
		return foreign.Null
	}
	var excArgs foreign.Handle
	if a[0] == foreign.Null {
		excArgs = it.newTupleOf()
	} else {
		it.IncRef(a[0])
		excArgs = it.newTupleOf(a[0])
	}
	class := it.classes["SystemExit"]
	exc := it.newException(class, excArgs)
	it.IncRef(class)
	it.ErrRestore(class, exc, foreign.Null)
	return foreign.Null
}

// kindArg interprets a dtype argument. ok is false with an error pending;
// set is false when the argument is absent or None.
func (it *Interpreter) kindArg(h foreign.Handle) (kind dtype.Kind, set, ok bool) {
	if it.isNone(h) {
		return 0, false, true
	}
	obj, _ := it.objs.get(h)
	switch o := obj.(type) {
	case dtypeObj:
		return o.kind, true, true
	case scalarTypeObj:
		return o.kind, true, true
	case strObj:
		name := decodeString(o.units)
		if k, found := dtype.Parse(name); found {
			return k, true, true
		}
		it.raise("TypeError", "data type '%s' not understood", name)
		return 0, false, false
	}
	it.raise("TypeError", "Cannot interpret '%s' as a data type", it.repr(h))
	return 0, false, false
}

// shapeArg accepts an int or a sequence of ints.
func (it *Interpreter) shapeArg(h foreign.Handle) ([]int, bool) {
	if it.Check(h, foreign.TagInt) || it.TagOf(h) == foreign.TagArrayScalar {
		n, ok := it.Int64(h)
		return []int{int(n)}, ok
	}
	n, ok := it.Len(h)
	if !ok || it.TagOf(h) == foreign.TagString {
		it.ErrClear()
		it.raise("TypeError", "'%s' object cannot be interpreted as an integer", it.TypeName(h))
		return nil, false
	}
	shape := make([]int, n)
	for i := range shape {
		v, ok := it.Int64(it.Item(h, i))
		if !ok {
			return nil, false
		}
		shape[i] = int(v)
	}
	return shape, true
}

func (it *Interpreter) axisArg(h foreign.Handle, ndim int) (int, bool, bool) {
	if it.isNone(h) {
		return 0, false, true
	}
	v, ok := it.Int64(h)
	if !ok {
		return 0, false, false
	}
	axis := int(v)
	if axis < -ndim || axis >= ndim {
		it.raise("ValueError", "axis %d is out of bounds for array of dimension %d", axis, ndim)
		return 0, false, false
	}
	if axis < 0 {
		axis += ndim
	}
	return axis, true, true
}

func (it *Interpreter) boolArg(h foreign.Handle) (bool, bool) {
	if it.isNone(h) {
		return false, true
	}
	return it.Truth(h)
}

func numArray(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("array", args, kw, []string{"object", "dtype"}, 1)
	if !ok {
		return foreign.Null
	}
	kind, set, ok := it.kindArg(a[1])
	if !ok {
		return foreign.Null
	}
	if arr := it.array(a[0]); arr != nil {
		if !set {
			kind = arr.kind
		}
		return it.copyArray(arr, kind)
	}
	return it.asArray(a[0], kind, set)
}

func numAsArray(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("asarray", args, kw, []string{"a", "dtype"}, 1)
	if !ok {
		return foreign.Null
	}
	kind, set, ok := it.kindArg(a[1])
	if !ok {
		return foreign.Null
	}
	return it.asArray(a[0], kind, set)
}

func numZeros(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("zeros", args, kw, []string{"shape", "dtype"}, 1)
	if !ok {
		return foreign.Null
	}
	shape, ok := it.shapeArg(a[0])
	if !ok {
		return foreign.Null
	}
	kind, set, ok := it.kindArg(a[1])
	if !ok {
		return foreign.Null
	}
	if !set {
		kind = dtype.Float64
	}
	return it.NewArray(kind, shape)
}

func numArange(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("arange", args, kw, []string{"start", "stop", "step", "dtype"}, 1)
	if !ok {
		return foreign.Null
	}
	bounds := make([]num, 3)
	isFloat := false
	for i := 0; i < 3; i++ {
		if it.isNone(a[i]) {
			continue
		}
		n, _, ok := it.numOf(a[i])
		if !ok {
			return foreign.Null
		}
		bounds[i] = n
		isFloat = isFloat || n.isFloat
	}
	start, stop, step := bounds[0], bounds[1], bounds[2]
	if it.isNone(a[1]) {
		start, stop = num{}, bounds[0]
	}
	if it.isNone(a[2]) {
		step = intNum(1)
	}
	if step.float() == 0 {
		return it.raise("ZeroDivisionError", "division by zero")
	}

	kind, set, ok := it.kindArg(a[3])
	if !ok {
		return foreign.Null
	}
	if !set {
		kind = dtype.Int64
		if isFloat {
			kind = dtype.Float64
		}
	}

	n := int(math.Ceil((stop.float() - start.float()) / step.float()))
	if n < 0 {
		n = 0
	}
	h, arr := it.newArray(kind, []int{n})
	if h == foreign.Null {
		return h
	}
	addr := arr.data
	for i := 0; i < n; i++ {
		var v num
		if isFloat {
			v = floatNum(start.float() + float64(i)*step.float())
		} else {
			v = intNum(start.i + int64(i)*step.i)
		}
		it.storeElem(kind, addr, v)
		addr += uint32(kind.ItemSize())
	}
	return h
}

func numReshape(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("reshape", args, kw, []string{"a", "shape"}, 2)
	if !ok {
		return foreign.Null
	}
	shape, ok := it.shapeArg(a[1])
	if !ok {
		return foreign.Null
	}
	src := it.asArray(a[0], 0, false)
	if src == foreign.Null {
		return src
	}
	defer it.DecRef(src)
	arr := it.array(src)

	size := arr.size()
	known, unknown := 1, -1
	for i, d := range shape {
		switch {
		case d == -1 && unknown < 0:
			unknown = i
		case d < 0:
			return it.raise("ValueError", "can only specify one unknown dimension")
		default:
			known *= d
		}
	}
	if unknown >= 0 && known > 0 && size%known == 0 {
		shape[unknown] = size / known
		known = size
	}
	if known != size || (unknown >= 0 && shape[unknown] < 0) {
		return it.raise("ValueError", "cannot reshape array of size %d into shape %s", size, formatShape(shape))
	}

	if arr.cContiguous() {
		return it.newView(src, arr.kind, shape, cStrides(shape, arr.itemSize()), arr.data)
	}
	cp := it.copyArray(arr, arr.kind)
	if cp == foreign.Null {
		return cp
	}
	out := it.array(cp)
	out.shape = shape
	out.strides = cStrides(shape, out.itemSize())
	return cp
}

func (it *Interpreter) transposeView(h foreign.Handle, a *arrayObj) foreign.Handle {
	n := len(a.shape)
	shape := make([]int, n)
	strides := make([]int, n)
	for i := 0; i < n; i++ {
		shape[i] = a.shape[n-1-i]
		strides[i] = a.strides[n-1-i]
	}
	return it.newView(h, a.kind, shape, strides, a.data)
}

func numTranspose(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("transpose", args, kw, []string{"a"}, 1)
	if !ok {
		return foreign.Null
	}
	src := it.asArray(a[0], 0, false)
	if src == foreign.Null {
		return src
	}
	defer it.DecRef(src)
	return it.transposeView(src, it.array(src))
}

func numFlip(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("flip", args, kw, []string{"m", "axis"}, 1)
	if !ok {
		return foreign.Null
	}
	src := it.asArray(a[0], 0, false)
	if src == foreign.Null {
		return src
	}
	defer it.DecRef(src)
	arr := it.array(src)

	axis, set, ok := it.axisArg(a[1], len(arr.shape))
	if !ok {
		return foreign.Null
	}
	strides := append([]int(nil), arr.strides...)
	data := int64(arr.data)
	for d := range arr.shape {
		if set && d != axis {
			continue
		}
		if arr.shape[d] > 0 {
			data += int64(arr.shape[d]-1) * int64(strides[d])
		}
		strides[d] = -strides[d]
	}
	return it.newView(src, arr.kind, append([]int(nil), arr.shape...), strides, uint32(data))
}

// sumKind is the accumulator kind the extension picks for a sum.
func sumKind(k dtype.Kind) (dtype.Kind, bool) {
	switch {
	case k == dtype.Char:
		return 0, false
	case k.IsFloat():
		return k, true
	}
	return dtype.Int64, true
}

func numSum(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("sum", args, kw, []string{"a", "axis", "dtype", "out", "keepdims"}, 1)
	if !ok {
		return foreign.Null
	}
	if !it.isNone(a[3]) {
		return it.raise("NotImplementedError", "sum() does not support out")
	}
	src := it.asArray(a[0], 0, false)
	if src == foreign.Null {
		return src
	}
	defer it.DecRef(src)
	arr := it.array(src)

	kind, set, ok := it.kindArg(a[2])
	if !ok {
		return foreign.Null
	}
	if !set {
		if kind, ok = sumKind(arr.kind); !ok {
			return it.raise("TypeError", "the resolved dtypes are not compatible with add.reduce")
		}
	}
	keepdims, ok := it.boolArg(a[4])
	if !ok {
		return foreign.Null
	}
	add := func(acc, x num) num {
		if kind.IsFloat() {
			return floatNum(acc.float() + x.float())
		}
		return intNum(acc.i + x.int())
	}
	return it.reduce(arr, a[1], keepdims, kind, num{isFloat: kind.IsFloat()}, add, nil)
}

// reduce folds arr along axis (all axes when axisArg is None) with fn,
// starting from init. finish, when set, maps each accumulated value.
func (it *Interpreter) reduce(arr *arrayObj, axisArg foreign.Handle, keepdims bool, kind dtype.Kind, init num, fn func(acc, x num) num, finish func(num) num) foreign.Handle {
	if finish == nil {
		finish = func(n num) num { return n }
	}
	axis, set, ok := it.axisArg(axisArg, len(arr.shape))
	if !ok {
		return foreign.Null
	}

	if !set {
		acc := init
		forEach(arr.shape, arr.strides, arr.data, func(addr uint32) {
			acc = fn(acc, it.loadElem(arr.kind, addr))
		})
		acc = finish(acc)
		if !keepdims {
			return it.newScalarFrom(kind, acc)
		}
		ones := make([]int, len(arr.shape))
		for i := range ones {
			ones[i] = 1
		}
		h, out := it.newArray(kind, ones)
		if h != foreign.Null {
			it.storeElem(kind, out.data, acc)
		}
		return h
	}

	outerShape := append(append([]int(nil), arr.shape[:axis]...), arr.shape[axis+1:]...)
	outerStrides := append(append([]int(nil), arr.strides[:axis]...), arr.strides[axis+1:]...)
	h, out := it.newArray(kind, outerShape)
	if h == foreign.Null {
		return h
	}
	dst := out.data
	forEach(outerShape, outerStrides, arr.data, func(base uint32) {
		acc := init
		for i := 0; i < arr.shape[axis]; i++ {
			addr := uint32(int64(base) + int64(i)*int64(arr.strides[axis]))
			acc = fn(acc, it.loadElem(arr.kind, addr))
		}
		it.storeElem(kind, dst, finish(acc))
		dst += uint32(kind.ItemSize())
	})
	if keepdims {
		shape := append([]int(nil), arr.shape...)
		shape[axis] = 1
		out.shape = shape
		out.strides = cStrides(shape, kind.ItemSize())
	}
	return h
}

func numAsType(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("astype", args, kw, []string{"x", "dtype"}, 2)
	if !ok {
		return foreign.Null
	}
	arr := it.array(a[0])
	if arr == nil {
		return it.raise("TypeError", "Input should be an ndarray. Got %s instead.", it.TypeName(a[0]))
	}
	kind, _, ok := it.kindArg(a[1])
	if !ok {
		return foreign.Null
	}
	return it.copyArray(arr, kind)
}

func numToList(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("tolist", args, kw, []string{"a"}, 1)
	if !ok {
		return foreign.Null
	}
	arr := it.array(a[0])
	if arr == nil {
		return it.raise("TypeError", "Input should be an ndarray. Got %s instead.", it.TypeName(a[0]))
	}
	return it.toList(arr)
}

func numDType(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("dtype", args, kw, []string{"obj"}, 1)
	if !ok {
		return foreign.Null
	}
	if it.isNone(a[0]) {
		return it.objs.add(dtypeObj{kind: dtype.Float64})
	}
	kind, _, ok := it.kindArg(a[0])
	if !ok {
		return foreign.Null
	}
	return it.objs.add(dtypeObj{kind: kind})
}

func linalgNorm(it *Interpreter, args []foreign.Handle, kw map[string]foreign.Handle) foreign.Handle {
	a, ok := it.bind("norm", args, kw, []string{"x", "ord", "axis", "keepdims"}, 1)
	if !ok {
		return foreign.Null
	}
	src := it.callAttr(RootModule, "_asarray", a[:1], nil)
	if src == foreign.Null {
		return src
	}
	defer it.DecRef(src)
	arr := it.array(src)
	if arr.kind == dtype.Char {
		return it.raise("TypeError", "norm() is not defined for unicode arrays")
	}

	ord := 2.0
	if !it.isNone(a[1]) {
		f, ok := it.Float64(a[1])
		if !ok {
			return foreign.Null
		}
		ord = f
	}
	keepdims, ok := it.boolArg(a[3])
	if !ok {
		return foreign.Null
	}

	var fn func(acc, x num) num
	finish := func(n num) num { return n }
	switch {
	case math.IsInf(ord, 1):
		fn = func(acc, x num) num { return floatNum(math.Max(acc.f, math.Abs(x.float()))) }
	case math.IsInf(ord, -1):
		fn = func(acc, x num) num { return floatNum(math.Min(acc.f, math.Abs(x.float()))) }
	case ord == 1:
		fn = func(acc, x num) num { return floatNum(acc.f + math.Abs(x.float())) }
	case ord == 2:
		fn = func(acc, x num) num { return floatNum(acc.f + x.float()*x.float()) }
		finish = func(n num) num { return floatNum(math.Sqrt(n.f)) }
	case ord > 0:
		fn = func(acc, x num) num { return floatNum(acc.f + math.Pow(math.Abs(x.float()), ord)) }
		finish = func(n num) num { return floatNum(math.Pow(n.f, 1/ord)) }
	default:
		return it.raise("ValueError", "Invalid norm order '%s' for vectors", formatFloat(ord))
	}
	init := floatNum(0)
	if math.IsInf(ord, -1) {
		init = floatNum(math.Inf(1))
	}
	return it.reduce(arr, a[2], keepdims, dtype.Float64, init, fn, finish)
}

// parseNumber parses a numeric literal for kind. Float literals beyond the
// float64 range parse to infinity.
func parseNumber(s string, kind dtype.Kind) (num, bool) {
	s = strings.TrimSpace(s)
	if kind.IsFloat() {
		switch strings.ToLower(strings.TrimLeft(s, "+-")) {
		case "inf", "infinity":
			if strings.HasPrefix(s, "-") {
				return floatNum(math.Inf(-1)), true
			}
			return floatNum(math.Inf(1)), true
		case "nan":
			return floatNum(math.NaN()), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
				return num{}, false
			}
		}
		return floatNum(f), true
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return num{}, false
	}
	return intNum(i), true
}
