package runtime

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/bridge"
	"github.com/wippyai/ndbridge/cursor"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/interp"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/transcoder"
)

// Runtime owns one interpreter and everything cached for it.
type Runtime struct {
	cfg     Config
	api     foreign.Interpreter
	owned   *interp.Interpreter
	gil     *foreign.GIL
	table   *handles.Table
	bridge  *bridge.Bridge
	codec   *transcoder.Codec
	arrays  *ndarray.Factory
	tracker *ndarray.Tracker
	casting foreign.Casting
	closed  bool
}

// New boots the embedded interpreter and loads the handle cache.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := buildOptions(opts)
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	setLoggers(o.logger)

	it, err := interp.New(ctx, interp.Config{
		InitialPages:     o.cfg.InitialPages,
		MemoryLimitPages: o.cfg.MemoryLimitPages,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseInit, errors.KindNotInitialized, err, "start interpreter")
	}
	r, err := newRuntime(it, o)
	if err != nil {
		_ = it.Close(ctx)
		return nil, err
	}
	r.owned = it
	return r, nil
}

// NewWithInterpreter builds a Runtime over an interpreter the caller owns.
// Close releases the handle cache but leaves the interpreter running.
func NewWithInterpreter(api foreign.Interpreter, opts ...Option) (*Runtime, error) {
	if api == nil {
		return nil, errors.NotInitialized(errors.PhaseInit, "interpreter")
	}
	o := buildOptions(opts)
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	setLoggers(o.logger)
	return newRuntime(api, o)
}

func newRuntime(api foreign.Interpreter, o options) (*Runtime, error) {
	table, err := handles.Load(api, handles.Options{
		RootModule:        o.cfg.RootModule,
		VersionConstraint: o.cfg.VersionConstraint,
	})
	if err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:     o.cfg,
		api:     api,
		gil:     &foreign.GIL{},
		table:   table,
		tracker: ndarray.NewTracker(),
		casting: o.cfg.casting(),
	}
	r.bridge = bridge.New(api, table, bridge.Options{
		Stderr: o.stderr,
		Exit:   o.exit,
		Fatal:  o.fatal,
	})
	r.arrays = ndarray.NewFactory(api, r.gil, r.tracker)
	r.arrays.EnableAutoFree()
	r.codec = transcoder.New(api, table, r.bridge, r.arrays)

	Logger().Info("runtime ready",
		zap.String("root", table.RootName()),
		zap.Stringer("version", table.Version()),
		zap.Stringer("casting", r.casting))
	return r, nil
}

// setLoggers installs l in every package. A nil l leaves them unchanged.
func setLoggers(l *zap.Logger) {
	if l == nil {
		return
	}
	SetLogger(l)
	interp.SetLogger(l.Named("interp"))
	handles.SetLogger(l.Named("handles"))
	ndarray.SetLogger(l.Named("ndarray"))
	transcoder.SetLogger(l.Named("transcoder"))
	bridge.SetLogger(l.Named("bridge"))
	cursor.SetLogger(l.Named("cursor"))
}

// Config returns the configuration the runtime was built with.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Tracker returns the tracker of live array wrappers.
func (r *Runtime) Tracker() *ndarray.Tracker {
	return r.tracker
}

// Exec runs fn with the interpreter lock held. ctx is only checked before
// entry; a running call is not interrupted.
func (r *Runtime) Exec(ctx context.Context, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.gil.With(func() error {
		if r.closed {
			return errors.NotInitialized(errors.PhaseInvoke, "runtime")
		}
		return fn(&Session{rt: r})
	})
}

// Invoke calls the function at path in its own Exec.
func (r *Runtime) Invoke(ctx context.Context, path string, args []any, kwargs map[string]any) (any, error) {
	var out any
	err := r.Exec(ctx, func(s *Session) error {
		var err error
		out, err = s.Invoke(path, args, kwargs)
		return err
	})
	return out, err
}

// Leaks reports the array wrappers that were never freed.
func (r *Runtime) Leaks() []ndarray.Leak {
	return r.tracker.Leaks()
}

// Close frees the remaining array wrappers, logging each as a leak, and
// releases the handle cache. An interpreter started by New is shut down.
// Calling Close again is a no-op.
func (r *Runtime) Close(ctx context.Context) error {
	r.gil.Acquire()
	defer r.gil.Release()
	if r.closed {
		return nil
	}
	r.closed = true

	for _, leak := range r.tracker.Leaks() {
		Logger().Warn("array leaked",
			zap.Uint64("id", leak.ID),
			zap.String("array", leak.Desc),
			zap.Bool("collected", leak.Collected))
	}
	for _, a := range r.tracker.Live() {
		a.FreeHeld()
	}
	r.arrays.Close()
	r.table.Release()

	if r.owned != nil {
		if err := r.owned.Close(ctx); err != nil {
			return errors.Wrap(errors.PhaseHeap, errors.KindState, err, "close interpreter")
		}
	}
	Logger().Debug("runtime closed")
	return nil
}
