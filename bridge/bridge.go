package bridge

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/host"
)

// maxHostFrames bounds the host part of a merged trace.
const maxHostFrames = 64

// Options configures a Bridge. Zero values select the defaults.
type Options struct {
	// Stderr receives SystemExit messages. Defaults to os.Stderr.
	Stderr io.Writer
	// Exit is called with the SystemExit code. Defaults to os.Exit.
	Exit func(code int)
	// Fatal is called with every fatal translation failure.
	Fatal func(err error)
}

// Bridge translates errors pending in one interpreter.
// Every method requires the interpreter lock.
type Bridge struct {
	api    foreign.Interpreter
	table  *handles.Table
	stderr io.Writer
	exit   func(int)
	fatal  func(error)
}

// New creates a Bridge over api using the classes cached in table.
func New(api foreign.Interpreter, table *handles.Table, opts Options) *Bridge {
	b := &Bridge{
		api:    api,
		table:  table,
		stderr: opts.Stderr,
		exit:   opts.Exit,
		fatal:  opts.Fatal,
	}
	if b.stderr == nil {
		b.stderr = os.Stderr
	}
	if b.exit == nil {
		b.exit = os.Exit
	}
	return b
}

// Raise sets the pending foreign error to an instance of the cached class
// name. Unknown names raise RuntimeError.
func (b *Bridge) Raise(class, format string, args ...any) {
	h := b.table.Class(class)
	if h == foreign.Null {
		h = b.table.Class(handles.RuntimeError)
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	b.api.ErrSetString(h, msg)
}

// Pending reports whether a foreign error is waiting to be translated.
func (b *Bridge) Pending() bool {
	return b.api.ErrOccurred()
}

// Translate returns nil when no foreign error is pending. Otherwise it
// clears the slot and returns the translated error, or nil after handling
// a SystemExit.
func (b *Bridge) Translate(phase errors.Phase) error {
	if !b.api.ErrOccurred() {
		return nil
	}
	if b.api.ErrMatches(b.table.Class(handles.SystemExit)) {
		b.systemExit()
		return nil
	}

	kind := b.kind()
	hostFrames := captureHost(1)

	typ, value, tb := b.api.ErrFetch()
	scope := foreign.NewScope(b.api)
	scope.Own(typ)
	scope.Own(value)
	scope.Own(tb)
	defer scope.Release()

	typeName, message, err := b.describe(scope, typ, value)
	if err != nil {
		return b.escalate(phase, "cannot describe foreign error", err)
	}

	frames, err := b.foreignFrames(scope, tb)
	if err != nil {
		return b.escalate(phase, fmt.Sprintf("cannot build stack trace for %s: %s", typeName, message), err)
	}

	trace := make([]errors.Frame, 0, len(frames)+len(hostFrames))
	for i := len(frames) - 1; i >= 0; i-- {
		trace = append(trace, frames[i])
	}
	trace = append(trace, hostFrames...)

	Logger().Debug("foreign error translated",
		zap.String("phase", string(phase)),
		zap.String("type", typeName),
		zap.Int("frames", len(frames)))
	return errors.Foreign(phase, kind, typeName, message, trace)
}

// kind maps the pending error's class onto the host error taxonomy.
func (b *Bridge) kind() errors.Kind {
	switch {
	case b.api.ErrMatches(b.table.Class(handles.TypeError)):
		return errors.KindTypeMismatch
	case b.api.ErrMatches(b.table.Class(handles.OverflowError)):
		return errors.KindOverflow
	case b.api.ErrMatches(b.table.Class(handles.IndexError)):
		return errors.KindOutOfBounds
	}
	return errors.KindForeign
}

// describe returns the error's type name and primary message: the first
// positional argument when the value carries any, else its string form.
func (b *Bridge) describe(scope *foreign.Scope, typ, value foreign.Handle) (string, string, error) {
	name := scope.Own(b.api.GetAttr(typ, "__name__"))
	if name == foreign.Null {
		return "", "", b.internal("exception type has no __name__")
	}
	typeName, err := b.text(name)
	if err != nil {
		return "", "", err
	}
	if value == foreign.Null {
		return typeName, "", nil
	}

	subject := foreign.Borrow(b.api, value)
	if args := scope.Own(b.api.GetAttr(value, "args")); args != foreign.Null {
		if n, ok := b.api.Len(args); ok && n > 0 {
			subject = foreign.Borrow(b.api, b.api.Item(args, 0))
		}
	}
	b.api.ErrClear()

	s := scope.Own(b.api.Str(subject.Handle()))
	if s == foreign.Null {
		return typeName, "", b.internal("cannot format %s message", typeName)
	}
	message, err := b.text(s)
	return typeName, message, err
}

// foreignFrames runs traceback.extract_tb and converts every entry that
// has source text. The result is outermost first.
func (b *Bridge) foreignFrames(scope *foreign.Scope, tb foreign.Handle) ([]errors.Frame, error) {
	if tb == foreign.Null {
		return nil, nil
	}
	args := scope.Own(b.api.NewTuple(1))
	if args == foreign.Null {
		return nil, b.internal("cannot allocate extract_tb arguments")
	}
	// PutItem steals the slot reference.
	if !b.api.PutItem(args, 0, foreign.Borrow(b.api, tb).Retain().Steal()) {
		return nil, b.internal("cannot pack extract_tb arguments")
	}
	entries := scope.Own(b.api.Call(b.table.ExtractTB(), args, foreign.Null))
	if entries == foreign.Null {
		return nil, b.internal("extract_tb failed")
	}
	n, ok := b.api.Len(entries)
	if !ok {
		return nil, b.internal("extract_tb returned %s", b.api.TypeName(entries))
	}

	frames := make([]errors.Frame, 0, n)
	for i := 0; i < n; i++ {
		entry := b.api.Item(entries, i)
		if entry == foreign.Null {
			return nil, b.internal("traceback entry %d missing", i)
		}
		if text := b.api.Item(entry, 3); text == foreign.Null || b.api.Check(text, foreign.TagNone) {
			b.api.ErrClear()
			continue
		}
		file, err := b.text(b.api.Item(entry, 0))
		if err != nil {
			return nil, err
		}
		line, ok := b.api.Int64(b.api.Item(entry, 1))
		if !ok {
			return nil, b.internal("traceback entry %d has no line number", i)
		}
		fn, err := b.text(b.api.Item(entry, 2))
		if err != nil {
			return nil, err
		}
		module, base := splitFile(file)
		frames = append(frames, errors.Frame{
			Module:   module,
			Function: fn,
			File:     base,
			Line:     int(line),
			Foreign:  true,
		})
	}
	return frames, nil
}

// splitFile returns the path without its extension and the base name.
// Either defaults to the whole name when there is no dot or separator.
func splitFile(file string) (module, base string) {
	module, base = file, file
	if i := strings.LastIndexByte(file, '.'); i >= 0 {
		module = file[:i]
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		base = file[i+1:]
	}
	return module, base
}

func (b *Bridge) text(h foreign.Handle) (string, error) {
	if h == foreign.Null {
		return "", b.internal("missing string")
	}
	units, ok := b.api.Units(h)
	if !ok {
		return "", b.internal("expected str, got %s", b.api.TypeName(h))
	}
	return host.DecodeUTF16(units), nil
}

// internal reports a failure of the translation itself, clearing whatever
// the failing foreign call left in the slot.
func (b *Bridge) internal(format string, args ...any) error {
	b.api.ErrClear()
	return errors.New(errors.PhaseBridge, errors.KindForeign).Detail(format, args...).Build()
}

func (b *Bridge) escalate(phase errors.Phase, detail string, cause error) error {
	b.api.ErrClear()
	err := errors.New(errors.PhaseBridge, errors.KindFatal).
		Detail("%s (during %s)", detail, phase).
		Cause(cause).
		Build()
	Logger().Error("foreign error translation failed", zap.Error(err))
	if b.fatal != nil {
		b.fatal(err)
	}
	return err
}

// systemExit reports the exit code and calls the exit hook. A code that is
// neither None nor an integer is printed and exits with status 1.
func (b *Bridge) systemExit() {
	typ, value, tb := b.api.ErrFetch()
	scope := foreign.NewScope(b.api)
	scope.Own(typ)
	scope.Own(value)
	scope.Own(tb)
	defer scope.Release()

	status := 0
	if value != foreign.Null {
		code := scope.Own(b.api.GetAttr(value, "code"))
		switch {
		case code == foreign.Null || b.api.Check(code, foreign.TagNone):
		case b.api.Check(code, foreign.TagInt):
			if v, ok := b.api.Int64(code); ok {
				status = int(v)
			} else {
				status = 1
			}
		default:
			status = 1
			if s := scope.Own(b.api.Str(code)); s != foreign.Null {
				if units, ok := b.api.Units(s); ok {
					fmt.Fprintln(b.stderr, host.DecodeUTF16(units))
				}
			}
		}
	}
	b.api.ErrClear()
	Logger().Info("foreign runtime requested exit", zap.Int("code", status))
	b.exit(status)
}

// captureHost records the calling goroutine's frames, skipping skip
// callers above captureHost.
func captureHost(skip int) []errors.Frame {
	pcs := make([]uintptr, maxHostFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]errors.Frame, 0, n)
	for {
		f, more := frames.Next()
		if f.Function != "" {
			pkg, fn := splitFunc(f.Function)
			out = append(out, errors.Frame{
				Module:   pkg,
				Function: fn,
				File:     path.Base(f.File),
				Line:     f.Line,
			})
		}
		if !more {
			break
		}
	}
	return out
}

// splitFunc splits a qualified function name such as
// "example.com/pkg.(*T).Method" into package path and function.
func splitFunc(name string) (pkg, fn string) {
	slash := strings.LastIndexByte(name, '/')
	dot := strings.IndexByte(name[slash+1:], '.')
	if dot < 0 {
		return "", name
	}
	return name[:slash+1+dot], name[slash+2+dot:]
}
