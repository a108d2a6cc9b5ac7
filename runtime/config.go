package runtime

import (
	stderrors "errors"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
)

// Config is the file-level configuration of a Runtime.
type Config struct {
	// MemoryLimitPages caps the interpreter heap in 64KB pages. 0 means 4GB.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
	// InitialPages is the initial heap size in 64KB pages.
	InitialPages uint32 `yaml:"initial_pages"`
	// RootModule is the array extension module functions are resolved from.
	RootModule string `yaml:"root_module"`
	// VersionConstraint is checked against the root module's __version__.
	VersionConstraint string `yaml:"version_constraint"`
	// DefaultCasting is the cursor casting rule when none is given.
	DefaultCasting string `yaml:"default_casting"`
	// LogLevel is used by LoggerFor: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		RootModule:        handles.DefaultRootModule,
		VersionConstraint: handles.DefaultVersionConstraint,
		DefaultCasting:    foreign.CastSafe.String(),
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their defaults; unknown fields are an error.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.NotFound(errors.PhaseInit, "config file", path)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes YAML configuration from r.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(errors.PhaseInit, errors.KindInvalidInput, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if c.DefaultCasting != "" {
		if _, ok := foreign.ParseCasting(c.DefaultCasting); !ok {
			return errors.New(errors.PhaseInit, errors.KindInvalidInput).
				Path("default_casting").
				Value(c.DefaultCasting).
				Detail("must be one of no, equiv, safe, same_kind, unsafe").
				Build()
		}
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return errors.New(errors.PhaseInit, errors.KindInvalidInput).
				Path("log_level").
				Value(c.LogLevel).
				Cause(err).
				Build()
		}
	}
	if c.InitialPages > 0 && c.MemoryLimitPages > 0 && c.InitialPages > c.MemoryLimitPages {
		return errors.InvalidInput(errors.PhaseInit, "initial_pages exceeds memory_limit_pages")
	}
	return nil
}

// casting returns the parsed default casting rule.
func (c Config) casting() foreign.Casting {
	if cast, ok := foreign.ParseCasting(c.DefaultCasting); ok {
		return cast
	}
	return foreign.CastSafe
}

// LoggerFor builds a console logger at the configured level. Development
// mode adds caller and stack information.
func (c Config) LoggerFor(development bool) (*zap.Logger, error) {
	var zc zap.Config
	if development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if c.LogLevel != "" && !development {
		level, err := zap.ParseAtomicLevel(c.LogLevel)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseInit, errors.KindInvalidInput, err, "log_level")
		}
		zc.Level = level
	}
	return zc.Build()
}
