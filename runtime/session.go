package runtime

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/ndbridge/cursor"
	"github.com/wippyai/ndbridge/errors"
	"github.com/wippyai/ndbridge/foreign"
	"github.com/wippyai/ndbridge/host"
	"github.com/wippyai/ndbridge/ndarray"
	"github.com/wippyai/ndbridge/transcoder"
)

// Keywords forwarded by Invoke. Any other keyword is dropped.
var recognizedKwargs = map[string]bool{
	"out":      true,
	"where":    true,
	"axes":     true,
	"axis":     true,
	"keepdims": true,
	"casting":  true,
	"order":    true,
	"dtype":    true,
	"subok":    true,
}

// Session is the view of a Runtime inside Exec. It must not be used after
// Exec returns.
type Session struct {
	rt *Runtime
}

func (s *Session) api() foreign.Interpreter {
	return s.rt.api
}

// fail hands the pending foreign error to the bridge.
func (s *Session) fail(phase errors.Phase) error {
	if err := s.rt.bridge.Translate(phase); err != nil {
		return err
	}
	return errors.State(phase, "foreign call failed without an error")
}

// Invoke calls the function at the dotted path with positional args and
// the recognized kwargs. Array results are returned as *ndarray.Array.
func (s *Session) Invoke(path string, args []any, kwargs map[string]any) (any, error) {
	return s.InvokeAs(path, args, kwargs, nil)
}

// InvokeAs is Invoke with the result converted to target. A nil target
// selects the generic conversion.
func (s *Session) InvokeAs(path string, args []any, kwargs map[string]any, target reflect.Type) (any, error) {
	api := s.api()
	scope := foreign.NewScope(api)
	defer scope.Release()

	fn, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	scope.Own(fn)

	tuple, err := s.tuple(args)
	if err != nil {
		return nil, err
	}
	scope.Own(tuple)

	kw, err := s.kwargs(kwargs)
	if err != nil {
		return nil, err
	}
	scope.Own(kw)

	res := api.Call(fn, tuple, kw)
	if res == foreign.Null {
		return nil, s.fail(errors.PhaseInvoke)
	}
	return s.result(res, target)
}

// resolve walks path from the root module. The root module's own name may
// lead the path.
func (s *Session) resolve(path string) (foreign.Handle, error) {
	names := strings.Split(path, ".")
	if len(names) > 1 && names[0] == s.rt.table.RootName() {
		names = names[1:]
	}
	if slices.Contains(names, "") {
		return foreign.Null, errors.InvalidInput(errors.PhaseInvoke, fmt.Sprintf("invalid function path %q", path))
	}

	api := s.api()
	h := s.rt.table.Root()
	api.IncRef(h)
	for _, name := range names {
		next := api.GetAttr(h, name)
		api.DecRef(h)
		if next == foreign.Null {
			return foreign.Null, s.fail(errors.PhaseInvoke)
		}
		h = next
	}
	return h, nil
}

// tuple encodes items into a new tuple.
func (s *Session) tuple(items []any) (foreign.Handle, error) {
	api := s.api()
	t := api.NewTuple(len(items))
	if t == foreign.Null {
		return foreign.Null, s.fail(errors.PhaseEncode)
	}
	for i, item := range items {
		h := s.rt.codec.Encode(item)
		if h == foreign.Null || !api.PutItem(t, i, h) {
			api.DecRef(t)
			return foreign.Null, s.fail(errors.PhaseEncode)
		}
	}
	return t, nil
}

// kwargs encodes the recognized keywords into a new dict. It returns Null
// when none are left.
func (s *Session) kwargs(kwargs map[string]any) (foreign.Handle, error) {
	api := s.api()
	dict := foreign.Null
	for _, name := range slices.Sorted(maps.Keys(kwargs)) {
		if !recognizedKwargs[name] {
			Logger().Debug("keyword argument ignored", zap.String("name", name))
			continue
		}
		if dict == foreign.Null {
			if dict = api.NewDict(); dict == foreign.Null {
				return foreign.Null, s.fail(errors.PhaseEncode)
			}
		}
		v := s.rt.codec.Encode(kwargs[name])
		if v == foreign.Null {
			api.DecRef(dict)
			return foreign.Null, s.fail(errors.PhaseEncode)
		}
		ok := api.DictSet(dict, name, v)
		api.DecRef(v)
		if !ok {
			api.DecRef(dict)
			return foreign.Null, s.fail(errors.PhaseEncode)
		}
	}
	return dict, nil
}

// result converts the new reference res and releases it.
func (s *Session) result(res foreign.Handle, target reflect.Type) (any, error) {
	defer s.api().DecRef(res)
	if target == nil && s.api().Check(res, foreign.TagArray) {
		return s.rt.arrays.Wrap(res)
	}
	return s.rt.codec.ToHost(res, target)
}

// Item returns one element when index has an entry per dimension. Negative
// entries count from the end. Shorter indexes select a sub-array.
func (s *Session) Item(arr *ndarray.Array, index ...int) (any, error) {
	if err := usable(arr); err != nil {
		return nil, err
	}
	shape := arr.Shape()
	if len(index) != len(shape) {
		keys := make([]any, len(index))
		for i, v := range index {
			keys[i] = v
		}
		return s.Slice(arr, keys...)
	}

	strides := arr.Strides()
	addr := int64(s.api().Data(arr.Handle()))
	for i, n := range shape {
		idx := index[i]
		if idx < 0 {
			idx += n
		}
		if idx < 0 || idx >= n {
			return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				Value(index[i]).
				Detail("Index is out of bounds.").
				Build()
		}
		addr += int64(idx) * int64(strides[i])
	}

	kind := arr.Kind()
	if !kind.Supported() {
		return nil, errors.UnsupportedKind(errors.PhaseDecode, kind.String())
	}
	raw, err := s.api().Memory().Read(uint32(addr), uint32(kind.ItemSize()))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindOutOfBounds, err, "element outside linear memory")
	}
	return transcoder.Element(kind, raw)
}

// SetItem stores v at index.
func (s *Session) SetItem(arr *ndarray.Array, v any, index ...int) error {
	if err := usable(arr); err != nil {
		return err
	}
	keys := make([]any, len(index))
	for i, idx := range index {
		keys[i] = idx
	}
	return s.assign(arr, v, keys)
}

// SetSlice stores v into the region selected by keys, which are ints or
// host.Slice values.
func (s *Session) SetSlice(arr *ndarray.Array, v any, keys ...any) error {
	if err := usable(arr); err != nil {
		return err
	}
	return s.assign(arr, v, keys)
}

func (s *Session) assign(arr *ndarray.Array, v any, keys []any) error {
	api := s.api()
	scope := foreign.NewScope(api)
	defer scope.Release()

	key, err := s.tuple(keys)
	if err != nil {
		return err
	}
	scope.Own(key)
	val := scope.Own(s.rt.codec.Encode(v))
	if val == foreign.Null {
		return s.fail(errors.PhaseEncode)
	}
	if !api.AssignItem(arr.Handle(), key, val) {
		return s.fail(errors.PhaseInvoke)
	}
	return nil
}

// Slice indexes arr with ints and host.Slice values. Results that are
// arrays share arr's buffer.
func (s *Session) Slice(arr *ndarray.Array, keys ...any) (any, error) {
	if err := usable(arr); err != nil {
		return nil, err
	}
	key, err := s.tuple(keys)
	if err != nil {
		return nil, err
	}
	defer s.api().DecRef(key)

	res := s.api().GetItem(arr.Handle(), key)
	if res == foreign.Null {
		return nil, s.fail(errors.PhaseInvoke)
	}
	return s.result(res, nil)
}

// Str returns the foreign string form of v.
func (s *Session) Str(v any) (string, error) {
	api := s.api()
	h := s.rt.codec.Encode(v)
	if h == foreign.Null {
		return "", s.fail(errors.PhaseEncode)
	}
	defer api.DecRef(h)

	str := api.Str(h)
	if str == foreign.Null {
		return "", s.fail(errors.PhaseInvoke)
	}
	defer api.DecRef(str)
	units, ok := api.Units(str)
	if !ok {
		return "", s.fail(errors.PhaseDecode)
	}
	return host.DecodeUTF16(units), nil
}

// NewCursor creates a cursor over arr. An empty casting selects the
// configured default; unknown names are rejected.
func (s *Session) NewCursor(arr *ndarray.Array, flags foreign.IterFlags, casting string) (*cursor.Cursor, error) {
	cast := s.rt.casting
	if casting != "" {
		var ok bool
		if cast, ok = foreign.ParseCasting(casting); !ok {
			return nil, errors.New(errors.PhaseCursor, errors.KindInvalidInput).
				Value(casting).
				Detail("Error to convert casting flag").
				Build()
		}
	}
	return cursor.New(s.api(), s.rt.bridge, arr, flags, cast)
}

// ToForeign converts v to a new foreign reference owned by the caller.
func (s *Session) ToForeign(v any) (foreign.Handle, error) {
	return s.rt.codec.ToForeign(v)
}

// ToHost converts the borrowed handle h to target.
func (s *Session) ToHost(h foreign.Handle, target reflect.Type) (any, error) {
	return s.rt.codec.ToHost(h, target)
}

// Release drops a foreign reference returned by ToForeign.
func (s *Session) Release(h foreign.Handle) {
	if h != foreign.Null {
		s.api().DecRef(h)
	}
}

// Free releases every array wrapper in vs, including those nested in
// slices and pairs.
func (s *Session) Free(vs ...any) {
	for _, v := range vs {
		s.rt.codec.Free(v)
	}
}

func usable(arr *ndarray.Array) error {
	if arr == nil || arr.Freed() {
		return errors.State(errors.PhaseInvoke, "array has been freed")
	}
	return nil
}
