package interp

import (
	"fmt"

	"github.com/wippyai/ndbridge/foreign"
)

// exception hierarchy: name -> base
var exceptionClasses = []struct {
	name string
	base string
}{
	{"BaseException", ""},
	{"SystemExit", "BaseException"},
	{"Exception", "BaseException"},
	{"ArithmeticError", "Exception"},
	{"OverflowError", "ArithmeticError"},
	{"ZeroDivisionError", "ArithmeticError"},
	{"LookupError", "Exception"},
	{"IndexError", "LookupError"},
	{"KeyError", "LookupError"},
	{"TypeError", "Exception"},
	{"ValueError", "Exception"},
	{"AttributeError", "Exception"},
	{"RuntimeError", "Exception"},
	{"NotImplementedError", "RuntimeError"},
	{"ImportError", "Exception"},
	{"ModuleNotFoundError", "ImportError"},
	{"MemoryError", "Exception"},
	{"SystemError", "Exception"},
}

func (it *Interpreter) installClasses() {
	for _, c := range exceptionClasses {
		base := foreign.Null
		if c.base != "" {
			base = it.classes[c.base]
			it.IncRef(base)
		}
		it.classes[c.name] = it.objs.add(&classObj{name: c.name, base: base})
	}
}

// raise sets the pending error to an instance of the named class and
// returns Null so that callers can `return it.raise(...)`.
func (it *Interpreter) raise(class, format string, args ...any) foreign.Handle {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	it.ErrSetString(it.classes[class], msg)
	return foreign.Null
}

func (it *Interpreter) ErrOccurred() bool {
	return it.excType != foreign.Null
}

func (it *Interpreter) ErrMatches(class foreign.Handle) bool {
	if it.excType == foreign.Null {
		return false
	}
	return it.isSubclass(it.excType, class)
}

func (it *Interpreter) isSubclass(c, of foreign.Handle) bool {
	for c != foreign.Null {
		if c == of {
			return true
		}
		obj, _ := it.objs.get(c)
		cls, ok := obj.(*classObj)
		if !ok {
			return false
		}
		c = cls.base
	}
	return false
}

func (it *Interpreter) ErrSetString(class foreign.Handle, msg string) {
	if _, ok := it.objs.get(class); !ok {
		class = it.classes["SystemError"]
		msg = "error set with an invalid exception class: " + msg
	}
	exc := it.newException(class, it.newTupleOf(it.newStr(msg)))
	it.ErrClear()
	it.IncRef(class)
	it.excType = class
	it.excValue = exc
}

// newException builds an instance of class, stealing args.
func (it *Interpreter) newException(class, args foreign.Handle) foreign.Handle {
	it.IncRef(class)
	return it.objs.add(&excObj{class: class, args: args})
}

func (it *Interpreter) ErrFetch() (typ, value, traceback foreign.Handle) {
	typ, value, traceback = it.excType, it.excValue, it.excTB
	it.excType, it.excValue, it.excTB = foreign.Null, foreign.Null, foreign.Null
	return typ, value, traceback
}

func (it *Interpreter) ErrRestore(typ, value, traceback foreign.Handle) {
	it.ErrClear()
	it.excType, it.excValue, it.excTB = typ, value, traceback
}

func (it *Interpreter) ErrClear() {
	typ, value, tb := it.ErrFetch()
	it.DecRef(typ)
	it.DecRef(value)
	it.DecRef(tb)
}

// pushFrame records that the pending error passed through f. Frames are
// kept outermost first.
func (it *Interpreter) pushFrame(f tbFrame) {
	if it.excType == foreign.Null {
		return
	}
	if it.excTB == foreign.Null {
		it.excTB = it.objs.add(&tbObj{})
	}
	obj, _ := it.objs.get(it.excTB)
	tb := obj.(*tbObj)
	tb.frames = append([]tbFrame{f}, tb.frames...)
}

// extractTB implements traceback.extract_tb: a list of
// (filename, lineno, name, line) tuples, outermost first.
func extractTB(it *Interpreter, args []foreign.Handle, _ map[string]foreign.Handle) foreign.Handle {
	if len(args) != 1 {
		return it.raise("TypeError", "extract_tb() takes exactly 1 argument (%d given)", len(args))
	}
	var frames []tbFrame
	obj, _ := it.objs.get(args[0])
	switch tb := obj.(type) {
	case *tbObj:
		frames = tb.frames
	case noneObj:
	default:
		return it.raise("TypeError", "extract_tb() argument must be a traceback, not %s", it.TypeName(args[0]))
	}

	list := it.NewList(len(frames))
	for i, f := range frames {
		text := it.None()
		if f.text != "" {
			text = it.newStr(f.text)
		}
		entry := it.newTupleOf(it.newStr(f.file), it.NewInt(int64(f.line)), it.newStr(f.fn), text)
		it.PutItem(list, i, entry)
	}
	return list
}
