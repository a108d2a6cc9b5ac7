package handles

import (
	"fmt"
	"reflect"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/host"
)

// Exception class names resolved by Load.
const (
	TypeError      = "TypeError"
	OverflowError  = "OverflowError"
	ValueError     = "ValueError"
	IndexError     = "IndexError"
	AttributeError = "AttributeError"
	RuntimeError   = "RuntimeError"
	SystemExit     = "SystemExit"
)

var classNames = []string{
	TypeError, OverflowError, ValueError, IndexError, AttributeError, RuntimeError, SystemExit,
}

const (
	DefaultRootModule        = "numeric"
	DefaultVersionConstraint = ">= 1.16.0"
)

// Options configures Load.
type Options struct {
	// RootModule is the array extension module name.
	RootModule string
	// VersionConstraint is checked against the extension's __version__.
	// An empty constraint uses DefaultVersionConstraint.
	VersionConstraint string
}

// Table holds one owned reference to every cached object.
type Table struct {
	api       foreign.Interpreter
	rootName  string
	root      foreign.Handle
	dtypeFn   foreign.Handle
	extractTB foreign.Handle
	types     map[dtype.Kind]foreign.Handle
	classes   map[string]foreign.Handle
	hostTypes map[dtype.Kind]reflect.Type
	hostKinds map[reflect.Type]dtype.Kind
	version   *semver.Version
	released  bool
}

// hostElemTypes maps each supported kind to its host class.
var hostElemTypes = map[dtype.Kind]reflect.Type{
	dtype.Int8:    reflect.TypeFor[int8](),
	dtype.Int16:   reflect.TypeFor[int16](),
	dtype.Int32:   reflect.TypeFor[int32](),
	dtype.Int64:   reflect.TypeFor[int64](),
	dtype.Float32: reflect.TypeFor[float32](),
	dtype.Float64: reflect.TypeFor[float64](),
	dtype.Bool:    reflect.TypeFor[bool](),
	dtype.Char:    reflect.TypeFor[host.Char](),
}

// Load resolves every cached object. On failure the references taken so far
// are released and the pending foreign error is cleared.
func Load(api foreign.Interpreter, opts Options) (*Table, error) {
	if opts.RootModule == "" {
		opts.RootModule = DefaultRootModule
	}
	if opts.VersionConstraint == "" {
		opts.VersionConstraint = DefaultVersionConstraint
	}
	constraint, err := semver.NewConstraint(opts.VersionConstraint)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInit, errors.KindInvalidInput, err,
			fmt.Sprintf("invalid version constraint %q", opts.VersionConstraint))
	}

	t := &Table{
		api:       api,
		rootName:  opts.RootModule,
		types:     make(map[dtype.Kind]foreign.Handle, len(dtype.Supported)),
		classes:   make(map[string]foreign.Handle, len(classNames)),
		hostTypes: hostElemTypes,
		hostKinds: make(map[reflect.Type]dtype.Kind, len(hostElemTypes)),
	}
	for k, rt := range hostElemTypes {
		t.hostKinds[rt] = k
	}

	if t.root, err = t.importModule(opts.RootModule); err != nil {
		return nil, err
	}
	if t.dtypeFn, err = t.attr(t.root, opts.RootModule, "dtype"); err != nil {
		t.Release()
		return nil, err
	}
	for _, k := range dtype.Supported {
		h, err := t.attr(t.root, opts.RootModule, k.String())
		if err != nil {
			t.Release()
			return nil, err
		}
		t.types[k] = h
	}

	builtins, err := t.importModule("builtins")
	if err != nil {
		t.Release()
		return nil, err
	}
	defer api.DecRef(builtins)
	for _, name := range classNames {
		h, err := t.attr(builtins, "builtins", name)
		if err != nil {
			t.Release()
			return nil, err
		}
		t.classes[name] = h
	}

	tb, err := t.importModule("traceback")
	if err != nil {
		t.Release()
		return nil, err
	}
	defer api.DecRef(tb)
	if t.extractTB, err = t.attr(tb, "traceback", "extract_tb"); err != nil {
		t.Release()
		return nil, err
	}

	if t.version, err = t.checkVersion(constraint, opts.VersionConstraint); err != nil {
		t.Release()
		return nil, err
	}

	Logger().Debug("handle cache loaded",
		zap.String("module", opts.RootModule),
		zap.String("version", t.version.String()),
		zap.Int("types", len(t.types)),
		zap.Int("classes", len(t.classes)))
	return t, nil
}

func (t *Table) importModule(name string) (foreign.Handle, error) {
	h := t.api.Import(name)
	if h == foreign.Null {
		return foreign.Null, t.failure(errors.NotFound(errors.PhaseInit, "module", name))
	}
	return h, nil
}

func (t *Table) attr(obj foreign.Handle, owner, name string) (foreign.Handle, error) {
	h := t.api.GetAttr(obj, name)
	if h == foreign.Null {
		return foreign.Null, t.failure(errors.NotFound(errors.PhaseInit, "attribute", owner+"."+name))
	}
	return h, nil
}

// failure attaches the pending foreign error text to e and clears the slot.
func (t *Table) failure(e *errors.Error) error {
	if !t.api.ErrOccurred() {
		return e
	}
	typ, value, tb := t.api.ErrFetch()
	scope := foreign.NewScope(t.api)
	scope.Own(typ)
	scope.Own(value)
	scope.Own(tb)
	defer scope.Release()

	msg := t.api.TypeName(value)
	if s := scope.Own(t.api.Str(value)); s != foreign.Null {
		if units, ok := t.api.Units(s); ok {
			msg += ": " + host.DecodeUTF16(units)
		}
	}
	t.api.ErrClear()
	e.Cause = fmt.Errorf("%s", msg)
	return e
}

// checkVersion reads __version__ from the root module, falling back to the
// interpreter's reported version when the attribute is missing.
func (t *Table) checkVersion(c *semver.Constraints, constraint string) (*semver.Version, error) {
	raw := t.api.Version()
	if h := t.api.GetAttr(t.root, "__version__"); h != foreign.Null {
		if units, ok := t.api.Units(h); ok {
			raw = host.DecodeUTF16(units)
		}
		t.api.DecRef(h)
	}
	t.api.ErrClear()

	v, err := semver.NewVersion(raw)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInit, errors.KindInvalidInput, err,
			fmt.Sprintf("unparsable %s version %q", t.rootName, raw))
	}
	if ok, errs := c.Validate(v); !ok {
		var cause error
		if len(errs) > 0 {
			cause = errs[0]
		}
		return nil, errors.Wrap(errors.PhaseInit, errors.KindNotInitialized, cause,
			fmt.Sprintf("%s %s does not satisfy %q", t.rootName, v, constraint))
	}
	return v, nil
}

// Root returns a borrowed reference to the array extension module.
func (t *Table) Root() foreign.Handle { return t.root }

// RootName returns the array extension module name.
func (t *Table) RootName() string { return t.rootName }

// DTypeFunc returns a borrowed reference to the dtype constructor.
func (t *Table) DTypeFunc() foreign.Handle { return t.dtypeFn }

// ExtractTB returns a borrowed reference to traceback.extract_tb.
func (t *Table) ExtractTB() foreign.Handle { return t.extractTB }

// Version returns the loaded array extension version.
func (t *Table) Version() *semver.Version { return t.version }

// TypeObject returns a borrowed reference to the element type object of
// kind, or Null for unsupported kinds.
func (t *Table) TypeObject(kind dtype.Kind) foreign.Handle {
	return t.types[kind]
}

// Class returns a borrowed reference to an exception class resolved by
// Load, or Null.
func (t *Table) Class(name string) foreign.Handle {
	return t.classes[name]
}

// HostType returns the host class for a supported kind.
func (t *Table) HostType(kind dtype.Kind) reflect.Type {
	return t.hostTypes[kind]
}

// KindOf returns the kind whose host class is rt.
func (t *Table) KindOf(rt reflect.Type) (dtype.Kind, bool) {
	k, ok := t.hostKinds[rt]
	return k, ok
}

// Released reports whether Release has run.
func (t *Table) Released() bool { return t.released }

// Release drops every cached reference. Calling it again is a no-op.
func (t *Table) Release() {
	if t.released {
		return
	}
	t.released = true
	drop := func(h *foreign.Handle) {
		if *h != foreign.Null {
			t.api.DecRef(*h)
			*h = foreign.Null
		}
	}
	drop(&t.extractTB)
	for name, h := range t.classes {
		drop(&h)
		delete(t.classes, name)
	}
	for k, h := range t.types {
		drop(&h)
		delete(t.types, k)
	}
	drop(&t.dtypeFn)
	drop(&t.root)
	Logger().Debug("handle cache released")
}
