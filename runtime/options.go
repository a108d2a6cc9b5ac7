package runtime

import (
	"io"

	"go.uber.org/zap"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	cfg    Config
	logger *zap.Logger
	stderr io.Writer
	exit   func(int)
	fatal  func(error)
}

func buildOptions(opts []Option) options {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the logger of every bridge package.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStderr redirects SystemExit messages.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithExit replaces os.Exit as the SystemExit handler.
func WithExit(fn func(code int)) Option {
	return func(o *options) { o.exit = fn }
}

// WithFatal registers a callback for fatal bridge failures.
func WithFatal(fn func(err error)) Option {
	return func(o *options) { o.fatal = fn }
}
