package runtime

import (
	"bytes"
	"context"
	stderrors "errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{
		WithStderr(&bytes.Buffer{}),
		WithExit(func(code int) { t.Errorf("unexpected exit %d", code) }),
		WithFatal(func(err error) { t.Errorf("unexpected fatal error: %v", err) }),
	}, opts...)
	rt, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

// exec runs fn in a session and fails the test on error.
func exec(t *testing.T, rt *Runtime, fn func(*Session) error) {
	t.Helper()
	if err := rt.Exec(context.Background(), fn); err != nil {
		t.Fatalf("Exec failed: %v", err)
	}
}

func asError(t *testing.T, err error) *errors.Error {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	return e
}

// matrix returns arange(6) reshaped to (2, 3).
func matrix(t *testing.T, s *Session) *ndarray.Array {
	t.Helper()
	flat, err := s.Invoke("arange", []any{6}, nil)
	if err != nil {
		t.Fatalf("arange failed: %v", err)
	}
	defer s.Free(flat)
	out, err := s.Invoke("reshape", []any{flat, []any{2, 3}}, nil)
	if err != nil {
		t.Fatalf("reshape failed: %v", err)
	}
	arr, ok := out.(*ndarray.Array)
	if !ok {
		t.Fatalf("expected *ndarray.Array, got %T", out)
	}
	return arr
}

func TestInvoke_Norm(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		a, err := s.Invoke("arange", []any{6}, map[string]any{"dtype": reflect.TypeFor[int32]()})
		if err != nil {
			return err
		}
		defer s.Free(a)
		arr := a.(*ndarray.Array)
		if arr.Kind().String() != "int32" || arr.Size() != 6 {
			t.Errorf("unexpected array %s", arr)
		}

		want := math.Sqrt(55)
		for _, path := range []string{"linalg.norm", "numeric.linalg.norm"} {
			got, err := s.Invoke(path, []any{a}, map[string]any{"foo": 5})
			if err != nil {
				return err
			}
			if f, ok := got.(float64); !ok || math.Abs(f-want) > 1e-12 {
				t.Errorf("%s: expected %v, got %v (%T)", path, want, got, got)
			}
		}
		return nil
	})
	if n := rt.Tracker().Len(); n != 0 {
		t.Errorf("expected no live arrays, got %d", n)
	}
}

func TestInvoke_Kwargs(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		got, err := s.Invoke("sum", []any{m}, map[string]any{"axis": 0})
		if err != nil {
			return err
		}
		defer s.Free(got)
		sums, ok := got.(*ndarray.Array)
		if !ok {
			t.Fatalf("expected array, got %T", got)
		}
		for i, want := range []int64{3, 5, 7} {
			v, err := s.Item(sums, i)
			if err != nil {
				return err
			}
			if v != want {
				t.Errorf("sum[%d] = %v, want %d", i, v, want)
			}
		}
		return nil
	})
}

func TestInvokeAs(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		got, err := s.InvokeAs("sum", []any{m}, nil, reflect.TypeFor[int16]())
		if err != nil {
			return err
		}
		if got != int16(15) {
			t.Errorf("expected int16(15), got %v (%T)", got, got)
		}

		_, err = s.InvokeAs("sum", []any{m}, nil, reflect.TypeFor[string]())
		if e := asError(t, err); e.Kind != errors.KindTypeMismatch {
			t.Errorf("expected type mismatch, got %s", e.Kind)
		}
		return nil
	})
}

func TestInvoke_Errors(t *testing.T) {
	rt := newTestRuntime(t)

	tests := []struct {
		name   string
		path   string
		args   []any
		kind   errors.Kind
		phase  errors.Phase
		prefix string
	}{
		{"foreign value error", "linalg.norm", []any{"abc"}, errors.KindForeign, errors.PhaseInvoke, "ValueError: "},
		{"missing attribute", "linalg.nope", nil, errors.KindForeign, errors.PhaseInvoke, "AttributeError: "},
		{"empty path segment", "linalg..norm", nil, errors.KindInvalidInput, errors.PhaseInvoke, ""},
		{"unsupported argument", "sum", []any{map[string]int{}}, errors.KindTypeMismatch, errors.PhaseEncode, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rt.Invoke(context.Background(), tt.path, tt.args, nil)
			e := asError(t, err)
			if e.Kind != tt.kind || e.Phase != tt.phase {
				t.Errorf("got %s/%s, want %s/%s", e.Phase, e.Kind, tt.phase, tt.kind)
			}
			if tt.prefix != "" && !strings.HasPrefix(e.Message(), tt.prefix) {
				t.Errorf("message %q lacks prefix %q", e.Message(), tt.prefix)
			}
		})
	}
}

func TestInvoke_MergedTrace(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := rt.Invoke(context.Background(), "linalg.norm", []any{"abc"}, nil)
	e := asError(t, err)

	var foreignFrames, hostFrames int
	for _, f := range e.Trace {
		if f.Foreign {
			foreignFrames++
		} else {
			hostFrames++
		}
	}
	if foreignFrames == 0 || hostFrames == 0 {
		t.Errorf("expected foreign and host frames, got %d and %d", foreignFrames, hostFrames)
	}
	if len(e.Trace) > 0 && !e.Trace[0].Foreign {
		t.Errorf("trace should start with the innermost foreign frame, got %s", e.Trace[0])
	}
}

func TestItem(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		tests := []struct {
			index []int
			want  int64
		}{
			{[]int{0, 0}, 0},
			{[]int{1, 2}, 5},
			{[]int{1, -1}, 5},
			{[]int{-2, 1}, 1},
		}
		for _, tt := range tests {
			got, err := s.Item(m, tt.index...)
			if err != nil {
				t.Errorf("Item%v: %v", tt.index, err)
				continue
			}
			if got != tt.want {
				t.Errorf("Item%v = %v, want %d", tt.index, got, tt.want)
			}
		}

		for _, index := range [][]int{{2, 0}, {0, 3}, {-3, 0}} {
			_, err := s.Item(m, index...)
			e := asError(t, err)
			if e.Kind != errors.KindOutOfBounds || e.Detail != "Index is out of bounds." {
				t.Errorf("Item%v: unexpected error %v", index, e)
			}
		}

		row, err := s.Item(m, 1)
		if err != nil {
			return err
		}
		defer s.Free(row)
		arr, ok := row.(*ndarray.Array)
		if !ok || arr.NDim() != 1 || arr.Size() != 3 {
			t.Fatalf("expected a row of 3, got %v", row)
		}
		if v, _ := s.Item(arr, 0); v != int64(3) {
			t.Errorf("row[0] = %v, want 3", v)
		}
		return nil
	})
}

func TestSetItem(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		if err := s.SetItem(m, 42, 0, 1); err != nil {
			return err
		}
		if v, _ := s.Item(m, 0, 1); v != int64(42) {
			t.Errorf("expected 42, got %v", v)
		}

		if err := s.SetSlice(m, 7, host.All(), 0); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if v, _ := s.Item(m, i, 0); v != int64(7) {
				t.Errorf("m[%d, 0] = %v, want 7", i, v)
			}
		}

		err := s.SetItem(m, []any{1, 2}, 0, 0)
		if e := asError(t, err); e.Kind != errors.KindForeign {
			t.Errorf("expected foreign error, got %s", e.Kind)
		}
		return nil
	})
}

func TestSlice_SharesBuffer(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		a, err := s.Invoke("arange", []any{6}, nil)
		if err != nil {
			return err
		}
		defer s.Free(a)
		arr := a.(*ndarray.Array)

		out, err := s.Slice(arr, host.Span(1, 4))
		if err != nil {
			return err
		}
		defer s.Free(out)
		view := out.(*ndarray.Array)
		if view.Size() != 3 {
			t.Fatalf("expected 3 elements, got %d", view.Size())
		}
		if v, _ := s.Item(view, 0); v != int64(1) {
			t.Errorf("view[0] = %v, want 1", v)
		}

		if err := s.SetItem(view, 99, 0); err != nil {
			return err
		}
		if v, _ := s.Item(arr, 1); v != int64(99) {
			t.Errorf("write through view not visible, got %v", v)
		}

		scalar, err := s.Slice(arr, 2)
		if err != nil {
			return err
		}
		if scalar != int64(2) {
			t.Errorf("expected int64(2), got %v (%T)", scalar, scalar)
		}
		return nil
	})
}

func TestBytes_DetectsGrowth(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		old, err := m.Bytes()
		if err != nil {
			return err
		}
		big, err := s.Invoke("zeros", []any{[]any{300000}}, nil)
		if err != nil {
			return err
		}
		s.Free(big)
		if err := s.SetItem(m, 99, 0, 0); err != nil {
			return err
		}

		if !old.Stale() {
			t.Error("view taken before growth should be stale")
		}
		if err := old.Check(); !stderrors.Is(err, errors.ErrState) {
			t.Errorf("expected state error, got %v", err)
		}
		fresh, err := m.Bytes()
		if err != nil {
			return err
		}
		if fresh.Stale() || fresh.Data[0] != 99 {
			t.Errorf("fresh view: stale=%v first byte=%d", fresh.Stale(), fresh.Data[0])
		}
		return nil
	})
}

func TestFreedArray(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		s.Free(m)

		if _, err := s.Item(m, 0, 0); !stderrors.Is(err, errors.ErrState) {
			t.Errorf("Item: expected state error, got %v", err)
		}
		if _, err := s.Slice(m, 0); !stderrors.Is(err, errors.ErrState) {
			t.Errorf("Slice: expected state error, got %v", err)
		}
		if err := s.SetItem(m, 1, 0, 0); !stderrors.Is(err, errors.ErrState) {
			t.Errorf("SetItem: expected state error, got %v", err)
		}
		return nil
	})
}

func TestStr(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		tests := []struct {
			in   any
			want string
		}{
			{int64(42), "42"},
			{"héllo 😀", "héllo 😀"},
			{true, "True"},
		}
		for _, tt := range tests {
			got, err := s.Str(tt.in)
			if err != nil {
				t.Errorf("Str(%v): %v", tt.in, err)
				continue
			}
			if got != tt.want {
				t.Errorf("Str(%v) = %q, want %q", tt.in, got, tt.want)
			}
		}

		m := matrix(t, s)
		defer s.Free(m)
		str, err := s.Str(m)
		if err != nil {
			return err
		}
		if !strings.Contains(str, "5") {
			t.Errorf("unexpected array string %q", str)
		}
		return nil
	})
}

func TestNewCursor(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		m := matrix(t, s)
		defer s.Free(m)

		c, err := s.NewCursor(m, 0, "")
		if err != nil {
			return err
		}
		defer c.Close()
		var sum int64
		for {
			v, ok, err := c.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			sum += v.(int64)
		}
		if sum != 15 {
			t.Errorf("expected sum 15, got %d", sum)
		}

		_, err = s.NewCursor(m, 0, "sometimes")
		e := asError(t, err)
		if e.Kind != errors.KindInvalidInput || e.Detail != "Error to convert casting flag" {
			t.Errorf("unexpected error %v", e)
		}
		return nil
	})
}

func TestToForeign_Release(t *testing.T) {
	rt := newTestRuntime(t)
	exec(t, rt, func(s *Session) error {
		h, err := s.ToForeign([]any{int64(1), "two", 3.0})
		if err != nil {
			return err
		}
		defer s.Release(h)

		got, err := s.ToHost(h, nil)
		if err != nil {
			return err
		}
		want := []any{int64(1), "two", 3.0}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		return nil
	})
}

func TestExec_Canceled(t *testing.T) {
	rt := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := rt.Exec(ctx, func(*Session) error {
		called = true
		return nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn must not run with a canceled context")
	}
}

func TestClose_ReportsLeaks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rt := newTestRuntime(t, WithLogger(zap.New(core)))

	var leaked *ndarray.Array
	exec(t, rt, func(s *Session) error {
		leaked = matrix(t, s)
		return nil
	})
	if n := len(rt.Leaks()); n != 1 {
		t.Fatalf("expected 1 leak before close, got %d", n)
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := logs.FilterMessage("array leaked").Len(); n != 1 {
		t.Errorf("expected 1 leak warning, got %d", n)
	}
	if !leaked.Freed() {
		t.Error("Close should free the leaked wrapper")
	}

	if err := rt.Close(context.Background()); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	err := rt.Exec(context.Background(), func(*Session) error { return nil })
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindNotInitialized}) {
		t.Errorf("expected not initialized after close, got %v", err)
	}
}

func TestNew_VersionConstraint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VersionConstraint = ">= 99.0.0"
	_, err := New(context.Background(), WithConfig(cfg))
	if e := asError(t, err); e.Kind != errors.KindNotInitialized {
		t.Errorf("expected not initialized, got %s", e.Kind)
	}
}

func TestNewWithInterpreter_Nil(t *testing.T) {
	if _, err := NewWithInterpreter(nil); err == nil {
		t.Error("expected error for nil interpreter")
	}
}
