package foreign

// Ref tags a handle with its ownership. An owned Ref holds exactly one
// reference and gives it back on Release; a borrowed Ref never touches the
// reference count.
type Ref struct {
	api   Objects
	h     Handle
	owned bool
}

// Own wraps a new reference.
func Own(api Objects, h Handle) *Ref {
	return &Ref{api: api, h: h, owned: true}
}

// Borrow wraps a borrowed reference.
func Borrow(api Objects, h Handle) *Ref {
	return &Ref{api: api, h: h}
}

// Handle returns the wrapped handle, Null after Release.
func (r *Ref) Handle() Handle {
	return r.h
}

// Owned reports whether Release will drop a reference.
func (r *Ref) Owned() bool {
	return r.owned
}

// IsNull reports whether the Ref wraps nothing.
func (r *Ref) IsNull() bool {
	return r.h == Null
}

// Retain returns a new owned Ref to the same object.
func (r *Ref) Retain() *Ref {
	if r.h != Null {
		r.api.IncRef(r.h)
	}
	return Own(r.api, r.h)
}

// Steal hands the reference to the caller without releasing it.
// The Ref is empty afterwards.
func (r *Ref) Steal() Handle {
	h := r.h
	r.h = Null
	r.owned = false
	return h
}

// Release drops the owned reference. Calling it again is a no-op.
func (r *Ref) Release() {
	if r.owned && r.h != Null {
		r.api.DecRef(r.h)
	}
	r.h = Null
	r.owned = false
}

// Scope collects owned references so that one Release call on every exit
// path gives them all back.
type Scope struct {
	api  Objects
	refs []*Ref
}

// NewScope creates an empty scope.
func NewScope(api Objects) *Scope {
	return &Scope{api: api}
}

// Own adds a new reference to the scope and returns it unchanged.
func (s *Scope) Own(h Handle) Handle {
	if h != Null {
		s.refs = append(s.refs, Own(s.api, h))
	}
	return h
}

// Len returns the number of references held.
func (s *Scope) Len() int {
	return len(s.refs)
}

// Release drops every reference in reverse acquisition order.
func (s *Scope) Release() {
	for i := len(s.refs) - 1; i >= 0; i-- {
		s.refs[i].Release()
	}
	s.refs = s.refs[:0]
}
