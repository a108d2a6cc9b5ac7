package transcoder

import (
	"bytes"
	"context"
	stderrors "errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/ndbridge/bridge"
	"github.com/wippyai/ndbridge/dtype"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/handles"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/interp"
	"github.com/wippyai/ndbridge/ndarray"
)

func newTestCodec(t *testing.T) (*interp.Interpreter, *Codec) {
	t.Helper()
	it, err := interp.New(context.Background(), interp.Config{})
	if err != nil {
		t.Fatalf("interp.New failed: %v", err)
	}
	table, err := handles.Load(it, handles.Options{})
	if err != nil {
		t.Fatalf("handles.Load failed: %v", err)
	}
	t.Cleanup(func() {
		table.Release()
		it.Close(context.Background())
	})
	b := bridge.New(it, table, bridge.Options{
		Stderr: &bytes.Buffer{},
		Exit:   func(int) { t.Error("unexpected exit") },
		Fatal:  func(err error) { t.Errorf("unexpected fatal error: %v", err) },
	})
	arrays := ndarray.NewFactory(it, &foreign.GIL{}, ndarray.NewTracker())
	return it, New(it, table, b, arrays)
}

// scalar constructs an array scalar by calling numeric.<kind>(literal).
func scalar(t *testing.T, it *interp.Interpreter, kind dtype.Kind, literal string) foreign.Handle {
	t.Helper()
	mod := it.Import("numeric")
	defer it.DecRef(mod)
	typ := it.GetAttr(mod, kind.String())
	if typ == foreign.Null {
		t.Fatalf("numeric.%s not found", kind)
	}
	defer it.DecRef(typ)
	args := it.NewTuple(1)
	it.PutItem(args, 0, it.NewString(host.EncodeUTF16(literal)))
	defer it.DecRef(args)
	h := it.Call(typ, args, foreign.Null)
	if h == foreign.Null {
		t.Fatalf("numeric.%s(%q) failed", kind, literal)
	}
	return h
}

func asError(t *testing.T, err error) *errors.Error {
	t.Helper()
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("expected *errors.Error, got %v", err)
	}
	return e
}

func TestRoundTrip_Scalars(t *testing.T) {
	it, c := newTestCodec(t)
	baseline := it.Live()

	tests := []struct {
		name  string
		value any
	}{
		{"int8", int8(-7)},
		{"int16", int16(1200)},
		{"int32", int32(-70000)},
		{"int64", int64(math.MaxInt64)},
		{"int", 42},
		{"float32", float32(1.5)},
		{"float64", math.Pi},
		{"bool", true},
		{"string", "héllo 🌍"},
		{"char", host.Char('x')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := c.ToForeign(tt.value)
			if err != nil {
				t.Fatalf("ToForeign failed: %v", err)
			}
			defer it.DecRef(h)

			got, err := c.ToHost(h, reflect.TypeOf(tt.value))
			if err != nil {
				t.Fatalf("ToHost failed: %v", err)
			}
			if got != tt.value {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.value, tt.value)
			}
		})
	}
	if it.Live() != baseline {
		t.Errorf("round trips leaked %d objects", it.Live()-baseline)
	}
}

func TestToHost_Generic(t *testing.T) {
	it, c := newTestCodec(t)

	tests := []struct {
		name string
		make func() foreign.Handle
		want any
	}{
		{"int widens to int64", func() foreign.Handle { return it.NewInt(5) }, int64(5)},
		{"float", func() foreign.Handle { return it.NewFloat(0.25) }, 0.25},
		{"bool", func() foreign.Handle { return it.NewBool(false) }, false},
		{"none", it.None, nil},
		{"array scalar keeps its width", func() foreign.Handle { return scalar(t, it, dtype.Int16, "-3") }, int16(-3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.make()
			defer it.DecRef(h)
			got, err := c.ToHost(h, nil)
			if err != nil {
				t.Fatalf("ToHost failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestToHost_Overflow(t *testing.T) {
	it, c := newTestCodec(t)
	h := it.NewInt(200)
	defer it.DecRef(h)

	_, err := Decode[int8](c, h)
	e := asError(t, err)
	if e.Kind != errors.KindOverflow {
		t.Errorf("expected overflow, got %s", e.Kind)
	}
	if want := "OverflowError: 200 is outside the valid range of int8 [-128, 127]"; e.Message() != want {
		t.Errorf("message %q, want %q", e.Message(), want)
	}
	if it.ErrOccurred() {
		t.Error("slot should be cleared")
	}

	v, err := Decode[int16](c, h)
	if err != nil || v != 200 {
		t.Errorf("expected 200 as int16, got %v, %v", v, err)
	}
}

func TestToHost_ScalarNarrowing(t *testing.T) {
	it, c := newTestCodec(t)
	h := scalar(t, it, dtype.Int64, "300")
	defer it.DecRef(h)

	if v, err := Decode[int16](c, h); err != nil || v != 300 {
		t.Errorf("expected 300, got %v, %v", v, err)
	}
	_, err := Decode[int8](c, h)
	if e := asError(t, err); e.Kind != errors.KindOverflow {
		t.Errorf("expected overflow, got %s", e.Kind)
	}
}

func TestToHost_Char(t *testing.T) {
	it, c := newTestCodec(t)

	one := it.NewString(host.EncodeUTF16("z"))
	defer it.DecRef(one)
	if v, err := Decode[host.Char](c, one); err != nil || v != 'z' {
		t.Errorf("expected 'z', got %v, %v", v, err)
	}

	three := it.NewString(host.EncodeUTF16("abc"))
	defer it.DecRef(three)
	_, err := Decode[host.Char](c, three)
	e := asError(t, err)
	if e.Kind != errors.KindTypeMismatch {
		t.Errorf("expected type mismatch, got %s", e.Kind)
	}
	if !strings.HasPrefix(e.Message(), "TypeError: Expected char but received a ") {
		t.Errorf("unexpected message %q", e.Message())
	}
}

func TestToHost_BoolBeforeInt(t *testing.T) {
	it, c := newTestCodec(t)
	h := it.NewBool(true)
	defer it.DecRef(h)

	if v, err := Decode[bool](c, h); err != nil || !v {
		t.Errorf("expected true, got %v, %v", v, err)
	}
	_, err := Decode[int64](c, h)
	e := asError(t, err)
	if want := "TypeError: Expected int64 but received a bool."; e.Message() != want {
		t.Errorf("message %q, want %q", e.Message(), want)
	}
}

func TestToHost_Truthiness(t *testing.T) {
	it, c := newTestCodec(t)

	tests := []struct {
		name string
		make func() foreign.Handle
		want bool
	}{
		{"zero", func() foreign.Handle { return it.NewInt(0) }, false},
		{"nonzero", func() foreign.Handle { return it.NewInt(-4) }, true},
		{"empty string", func() foreign.Handle { return it.NewString(nil) }, false},
		{"float", func() foreign.Handle { return it.NewFloat(0.5) }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.make()
			defer it.DecRef(h)
			if v, err := Decode[bool](c, h); err != nil || v != tt.want {
				t.Errorf("got %v, %v; want %v", v, err, tt.want)
			}
		})
	}
}

func TestToHost_FloatOverflow(t *testing.T) {
	it, c := newTestCodec(t)
	h := scalar(t, it, dtype.Float64, "1e400")
	defer it.DecRef(h)

	f64, err := Decode[float64](c, h)
	if err != nil || !math.IsInf(f64, 1) {
		t.Errorf("expected +Inf float64, got %v, %v", f64, err)
	}
	f32, err := Decode[float32](c, h)
	if err != nil || !math.IsInf(float64(f32), 1) {
		t.Errorf("expected +Inf float32, got %v, %v", f32, err)
	}

	big := it.NewFloat(1e300)
	defer it.DecRef(big)
	if v, err := Decode[float32](c, big); err != nil || !math.IsInf(float64(v), 1) {
		t.Errorf("expected float32 overflow to +Inf, got %v, %v", v, err)
	}
}

func TestToHost_NoWidening(t *testing.T) {
	it, c := newTestCodec(t)
	i := it.NewInt(1)
	defer it.DecRef(i)
	f := it.NewFloat(1)
	defer it.DecRef(f)

	if _, err := Decode[float64](c, i); err == nil {
		t.Error("int to float64 must fail")
	}
	if _, err := Decode[int64](c, f); err == nil {
		t.Error("float to int64 must fail")
	}
}

func TestToHost_UnsupportedScalar(t *testing.T) {
	it, c := newTestCodec(t)
	h := it.NewScalar(dtype.Uint8, []byte{9})
	if h == foreign.Null {
		t.Fatal("NewScalar failed")
	}
	defer it.DecRef(h)

	_, err := c.ToHost(h, nil)
	e := asError(t, err)
	if e.Kind != errors.KindUnsupportedKind || e.Detail != "Unknown type" {
		t.Errorf("unexpected error %v", err)
	}
	if !stderrors.Is(err, errors.ErrUnsupportedKind) {
		t.Error("expected errors.Is to match ErrUnsupportedKind")
	}
}

func TestToHost_None(t *testing.T) {
	it, c := newTestCodec(t)
	none := it.None()
	defer it.DecRef(none)

	if v, err := Decode[[]int32](c, none); err != nil || v != nil {
		t.Errorf("expected nil slice, got %v, %v", v, err)
	}
	if v, err := Decode[*ndarray.Array](c, none); err != nil || v != nil {
		t.Errorf("expected nil array, got %v, %v", v, err)
	}
	_, err := Decode[int32](c, none)
	if want := "TypeError: Expected int32 but received a NoneType."; asError(t, err).Message() != want {
		t.Errorf("message %q, want %q", asError(t, err).Message(), want)
	}
}

func TestPair_RoundTrip(t *testing.T) {
	it, c := newTestCodec(t)
	baseline := it.Live()

	h, err := c.ToForeign(host.Pair{First: "axis", Second: 3})
	if err != nil {
		t.Fatalf("ToForeign failed: %v", err)
	}
	if !it.Check(h, foreign.TagTuple) {
		t.Fatalf("expected a tuple, got %s", it.TypeName(h))
	}
	p, err := Decode[host.Pair](c, h)
	it.DecRef(h)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.First != "axis" || p.Second != int64(3) {
		t.Errorf("unexpected pair %v", p)
	}

	triple := intTuple(it, 1, 2, 3)
	_, err = Decode[host.Pair](c, triple)
	it.DecRef(triple)
	if want := "TypeError: Expected a sequence of length 2 for pair but received length 3."; asError(t, err).Message() != want {
		t.Errorf("message %q, want %q", asError(t, err).Message(), want)
	}
	if it.Live() != baseline {
		t.Errorf("pair conversions leaked %d objects", it.Live()-baseline)
	}
}

func intTuple(it *interp.Interpreter, vs ...int64) foreign.Handle {
	tp := it.NewTuple(len(vs))
	for i, v := range vs {
		it.PutItem(tp, i, it.NewInt(v))
	}
	return tp
}

func TestSequences(t *testing.T) {
	it, c := newTestCodec(t)

	h, err := c.ToForeign([]int32{1, -2, 3})
	if err != nil {
		t.Fatalf("ToForeign failed: %v", err)
	}
	defer it.DecRef(h)
	if n, _ := it.Len(h); n != 3 || !it.Check(h, foreign.TagTuple) {
		t.Fatalf("expected a 3-tuple, got %s", it.TypeName(h))
	}

	ints, err := Decode[[]int32](c, h)
	if err != nil || !reflect.DeepEqual(ints, []int32{1, -2, 3}) {
		t.Errorf("got %v, %v", ints, err)
	}
	generic, err := Decode[[]any](c, h)
	if err != nil || !reflect.DeepEqual(generic, []any{int64(1), int64(-2), int64(3)}) {
		t.Errorf("got %v, %v", generic, err)
	}
	strs, err := Decode[[]string](c, h)
	if err == nil {
		t.Errorf("expected []string to fail, got %v", strs)
	}
	narrow, err := Decode[[]int](c, h)
	if err != nil || !reflect.DeepEqual(narrow, []int{1, -2, 3}) {
		t.Errorf("got %v, %v", narrow, err)
	}

	nested, err := c.ToForeign([]any{"a", []float64{0.5}, nil})
	if err != nil {
		t.Fatalf("ToForeign failed: %v", err)
	}
	defer it.DecRef(nested)
	if !it.Check(nested, foreign.TagList) {
		t.Errorf("[]any must encode as a list, got %s", it.TypeName(nested))
	}
	out, err := c.ToHost(nested, nil)
	if err != nil {
		t.Fatalf("ToHost failed: %v", err)
	}
	want := []any{"a", []any{0.5}, nil}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("got %#v, want %#v", out, want)
	}
}

func TestToForeign_Unsupported(t *testing.T) {
	_, c := newTestCodec(t)
	_, err := c.ToForeign(map[string]int{"a": 1})
	e := asError(t, err)
	if e.Kind != errors.KindTypeMismatch || e.Phase != errors.PhaseEncode {
		t.Errorf("got %s/%s", e.Phase, e.Kind)
	}
	if !strings.Contains(e.Message(), "map[string]int") {
		t.Errorf("unexpected message %q", e.Message())
	}
}

func TestToHost_UnclassifiableTarget(t *testing.T) {
	it, c := newTestCodec(t)
	h := it.NewInt(1)
	defer it.DecRef(h)
	_, err := c.ToHost(h, reflect.TypeFor[chan int]())
	if e := asError(t, err); e.Kind != errors.KindTypeMismatch {
		t.Errorf("expected type mismatch, got %s", e.Kind)
	}
}

func TestDType(t *testing.T) {
	it, c := newTestCodec(t)
	h, err := c.ToForeign(reflect.TypeFor[float32]())
	if err != nil {
		t.Fatalf("ToForeign failed: %v", err)
	}
	defer it.DecRef(h)
	if got := it.TypeName(h); got != "dtype" {
		t.Errorf("expected dtype, got %s", got)
	}
	if _, err := c.ToForeign(reflect.TypeFor[uint8]()); err == nil {
		t.Error("expected uint8 to have no dtype")
	}
}

func TestArrays_ReferenceTransfer(t *testing.T) {
	it, c := newTestCodec(t)
	baseline := it.Live()

	h := it.NewArray(dtype.Int32, []int{2, 3})
	a, err := Decode[*ndarray.Array](c, h)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	it.DecRef(h)
	if a.Kind() != dtype.Int32 || a.Size() != 6 {
		t.Errorf("unexpected array %s", a)
	}

	back, err := c.ToForeign(a)
	if err != nil {
		t.Fatalf("ToForeign failed: %v", err)
	}
	if back != a.Handle() {
		t.Error("encoding an array must return the same object")
	}
	it.DecRef(back)

	a.Free()
	if _, err := c.ToForeign(a); err == nil {
		t.Error("encoding a freed array must fail")
	}
	if it.Live() != baseline {
		t.Errorf("leaked %d objects", it.Live()-baseline)
	}
	if n := c.Arrays().Tracker().Len(); n != 0 {
		t.Errorf("expected no live wrappers, got %d", n)
	}
}

func TestArrays_DiscardOnFailure(t *testing.T) {
	it, c := newTestCodec(t)
	baseline := it.Live()

	list := it.NewList(2)
	it.PutItem(list, 0, it.NewArray(dtype.Float64, []int{4}))
	it.PutItem(list, 1, it.NewString(host.EncodeUTF16("oops")))

	if _, err := Decode[[]*ndarray.Array](c, list); err == nil {
		t.Fatal("expected failure on the string element")
	}
	it.DecRef(list)
	if n := c.Arrays().Tracker().Len(); n != 0 {
		t.Errorf("partial results must be freed, %d wrappers live", n)
	}
	if it.Live() != baseline {
		t.Errorf("leaked %d objects", it.Live()-baseline)
	}
}

func TestElement(t *testing.T) {
	tests := []struct {
		kind dtype.Kind
		v    any
	}{
		{dtype.Int8, int8(-1)},
		{dtype.Int16, int16(-300)},
		{dtype.Int32, int32(1 << 20)},
		{dtype.Int64, int64(-1 << 40)},
		{dtype.Float32, float32(2.5)},
		{dtype.Float64, -0.125},
		{dtype.Bool, true},
		{dtype.Char, host.Char('Ω')},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			raw, ok := EncodeElement(tt.kind, tt.v)
			if !ok || len(raw) != tt.kind.ItemSize() {
				t.Fatalf("EncodeElement failed: %v %v", raw, ok)
			}
			got, err := Element(tt.kind, raw)
			if err != nil || got != tt.v {
				t.Errorf("got %v, %v; want %v", got, err, tt.v)
			}
		})
	}

	if _, err := Element(dtype.Uint16, []byte{1, 0}); !stderrors.Is(err, errors.ErrUnsupportedKind) {
		t.Errorf("expected unsupported kind, got %v", err)
	}
	if _, ok := EncodeElement(dtype.Int8, int16(1)); ok {
		t.Error("mismatched Go type must be rejected")
	}
}

func TestClassify(t *testing.T) {
	_, c := newTestCodec(t)
	tests := []struct {
		rt   reflect.Type
		kind TargetKind
		name string
	}{
		{reflect.TypeFor[int8](), TargetInt8, "int8"},
		{reflect.TypeFor[host.Char](), TargetChar, "char"},
		{reflect.TypeFor[[]any](), TargetList, "list"},
		{reflect.TypeFor[[][]float64](), TargetSlice, "[][]float64"},
		{reflect.TypeFor[*ndarray.Array](), TargetArray, "array"},
		{nil, TargetAny, "object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, ok := c.Classify(tt.rt)
			if !ok {
				t.Fatal("expected classification")
			}
			if target.Kind != tt.kind || target.Name() != tt.name {
				t.Errorf("got %s (%s)", target.Kind, target.Name())
			}
			again, _ := c.Classify(tt.rt)
			if again != target {
				t.Error("classification should be cached")
			}
		})
	}
	if _, ok := c.Classify(reflect.TypeFor[map[string]int]()); ok {
		t.Error("maps are not classifiable")
	}
}
