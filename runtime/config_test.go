package runtime

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, cfg Config)
		wantErr string
	}{
		{
			name:  "empty input keeps defaults",
			input: "",
			check: func(t *testing.T, cfg Config) {
				if cfg != DefaultConfig() {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name: "overrides",
			input: `
memory_limit_pages: 256
initial_pages: 4
default_casting: same_kind
log_level: debug
`,
			check: func(t *testing.T, cfg Config) {
				if cfg.MemoryLimitPages != 256 || cfg.InitialPages != 4 {
					t.Errorf("unexpected pages %d/%d", cfg.InitialPages, cfg.MemoryLimitPages)
				}
				if cfg.casting() != foreign.CastSameKind {
					t.Errorf("expected same_kind casting, got %s", cfg.casting())
				}
				if cfg.RootModule != DefaultConfig().RootModule {
					t.Errorf("root module should keep its default, got %q", cfg.RootModule)
				}
			},
		},
		{
			name:    "unknown field",
			input:   "memory_pages: 3\n",
			wantErr: "memory_pages",
		},
		{
			name:    "bad casting",
			input:   "default_casting: sometimes\n",
			wantErr: "default_casting",
		},
		{
			name:    "bad log level",
			input:   "log_level: loud\n",
			wantErr: "log_level",
		},
		{
			name:    "initial above limit",
			input:   "memory_limit_pages: 2\ninitial_pages: 8\n",
			wantErr: "initial_pages exceeds memory_limit_pages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.wantErr)
				}
				if !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
					t.Errorf("expected invalid input, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q does not mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseConfig failed: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ndbridge.yaml")
	if err := os.WriteFile(path, []byte("root_module: numeric\nlog_level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected warn, got %q", cfg.LogLevel)
	}

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindNotFound}) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestLoggerFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "error"
	for _, dev := range []bool{false, true} {
		l, err := cfg.LoggerFor(dev)
		if err != nil {
			t.Fatalf("LoggerFor(%v) failed: %v", dev, err)
		}
		if !dev && l.Core().Enabled(-1) {
			t.Error("production logger at error level should not enable debug")
		}
	}
}
