package interp

import "github.com/wippyai/ndbridge/foreign"

// table is the reference-counted object store. Handle 0 is never issued.
type table struct {
	entries  []entry
	freeList []foreign.Handle
	live     int
}

type entry struct {
	obj      object
	refs     int32
	immortal bool
	valid    bool
}

func newTable() *table {
	return &table{
		entries:  make([]entry, 0, 256),
		freeList: make([]foreign.Handle, 0, 32),
	}
}

// add stores obj with one reference.
func (t *table) add(obj object) foreign.Handle {
	e := entry{obj: obj, refs: 1, valid: true}
	t.live++

	if n := len(t.freeList); n > 0 {
		h := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.entries[h-1] = e
		return h
	}

	t.entries = append(t.entries, e)
	return foreign.Handle(len(t.entries))
}

// addImmortal stores obj that is never deallocated.
func (t *table) addImmortal(obj object) foreign.Handle {
	h := t.add(obj)
	t.entries[h-1].immortal = true
	return h
}

func (t *table) get(h foreign.Handle) (object, bool) {
	if h == foreign.Null || int(h) > len(t.entries) {
		return nil, false
	}
	e := t.entries[h-1]
	if !e.valid {
		return nil, false
	}
	return e.obj, true
}

func (t *table) incref(h foreign.Handle) {
	if h == foreign.Null || int(h) > len(t.entries) {
		return
	}
	if e := &t.entries[h-1]; e.valid {
		e.refs++
	}
}

// decref drops one reference and returns the object when it must be
// deallocated.
func (t *table) decref(h foreign.Handle) (object, bool) {
	if h == foreign.Null || int(h) > len(t.entries) {
		return nil, false
	}
	e := &t.entries[h-1]
	if !e.valid {
		return nil, false
	}
	e.refs--
	if e.refs > 0 || e.immortal {
		if e.refs < 1 {
			e.refs = 1
		}
		return nil, false
	}

	obj := e.obj
	e.obj = nil
	e.valid = false
	t.freeList = append(t.freeList, h)
	t.live--
	return obj, true
}

func (t *table) refcount(h foreign.Handle) int {
	if h == foreign.Null || int(h) > len(t.entries) {
		return 0
	}
	e := t.entries[h-1]
	if !e.valid {
		return 0
	}
	return int(e.refs)
}
