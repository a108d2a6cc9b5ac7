package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/ndbridge/host"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		raw     string
		want    any
		wantErr bool
	}{
		{"3", int64(3), false},
		{"-7", int64(-7), false},
		{"2.5", 2.5, false},
		{"true", true, false},
		{"abc", "abc", false},
		{`"42"`, "42", false},
		{"null", host.None, false},
		{"[1, 2.5, [true]]", []any{int64(1), 2.5, []any{true}}, false},
		{"{a: 1}", nil, true},
		{"18446744073709551615", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseLiteral(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLiteral failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseKeyword(t *testing.T) {
	name, v, err := parseKeyword("axis=1")
	if err != nil || name != "axis" || v != int64(1) {
		t.Errorf("got %q=%v, %v", name, v, err)
	}
	for _, raw := range []string{"axis", "=1"} {
		if _, _, err := parseKeyword(raw); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}

func TestTargetType(t *testing.T) {
	tests := []struct {
		name string
		want reflect.Type
	}{
		{"", nil},
		{"string", reflect.TypeFor[string]()},
		{"int16", reflect.TypeFor[int16]()},
		{"float32", reflect.TypeFor[float32]()},
	}
	for _, tt := range tests {
		got, err := targetType(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("targetType(%q) = %v, %v", tt.name, got, err)
		}
	}
	if _, err := targetType("complex128"); err == nil {
		t.Error("expected error for an unsupported type")
	}
}

func TestParseIndex(t *testing.T) {
	got, err := parseIndex(" 1, 2 ,")
	if err != nil || !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("got %v, %v", got, err)
	}
	if _, err := parseIndex("1,x"); err == nil {
		t.Error("expected error")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCallCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"norm", []string{"call", "linalg.norm", "--arg", "[3, 4]"}, "5"},
		{"sum as int16", []string{"call", "sum", "--arg", "[[1, 2], [3, 4]]", "--as", "int16"}, "10"},
		{"keyword", []string{"call", "sum", "--arg", "[[1, 2], [3, 4]]", "--kw", "axis=0"}, "[4 6]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
		})
	}

	if _, err := run(t, "call", "linalg.norm", "--arg", "abc"); err == nil {
		t.Error("expected a foreign error")
	}
}

func TestIterCommand(t *testing.T) {
	out, err := run(t, "iter", "--shape", "2,2", "--dtype", "int32")
	if err != nil {
		t.Fatalf("iter failed: %v", err)
	}
	want := "[0 0]\t0\t0\n[0 1]\t1\t1\n[1 0]\t2\t2\n[1 1]\t3\t3\n"
	if out != want {
		t.Errorf("got\n%s\nwant\n%s", out, want)
	}

	if _, err := run(t, "iter", "--casting", "sometimes"); err == nil {
		t.Error("expected a casting error")
	}
	if _, err := run(t, "iter", "--flag", "bogus"); err == nil {
		t.Error("expected a flag error")
	}
}
