package foreign

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/wippyai/ndbridge/errors"
)

type countingObjects struct {
	Objects
	refs map[Handle]int
}

func (c *countingObjects) IncRef(h Handle) { c.refs[h]++ }
func (c *countingObjects) DecRef(h Handle) { c.refs[h]-- }

func TestRef_ReleaseIdempotent(t *testing.T) {
	api := &countingObjects{refs: map[Handle]int{7: 1}}
	r := Own(api, 7)
	r.Release()
	r.Release()
	if api.refs[7] != 0 {
		t.Errorf("refcount = %d, want 0", api.refs[7])
	}
	if !r.IsNull() {
		t.Error("released ref should be null")
	}
}

func TestRef_BorrowNeverReleases(t *testing.T) {
	api := &countingObjects{refs: map[Handle]int{3: 1}}
	r := Borrow(api, 3)
	r.Release()
	if api.refs[3] != 1 {
		t.Errorf("refcount = %d, want 1", api.refs[3])
	}
}

func TestRef_RetainAndSteal(t *testing.T) {
	api := &countingObjects{refs: map[Handle]int{5: 1}}
	b := Borrow(api, 5)
	owned := b.Retain()
	if api.refs[5] != 2 {
		t.Fatalf("refcount after Retain = %d, want 2", api.refs[5])
	}
	h := owned.Steal()
	owned.Release()
	if h != 5 || api.refs[5] != 2 {
		t.Errorf("Steal: h=%d refs=%d", h, api.refs[5])
	}
}

func TestScope_Release(t *testing.T) {
	api := &countingObjects{refs: map[Handle]int{1: 1, 2: 1, 3: 2}}
	s := NewScope(api)
	s.Own(1)
	s.Own(2)
	s.Own(3)
	s.Own(Null)
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	s.Release()
	s.Release()
	want := map[Handle]int{1: 0, 2: 0, 3: 1}
	for h, n := range want {
		if api.refs[h] != n {
			t.Errorf("refs[%d] = %d, want %d", h, api.refs[h], n)
		}
	}
}

func TestParseIterFlags(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    IterFlags
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"single", []string{"zerosize_ok"}, IterZeroSizeOK, false},
		{"several", []string{"buffered", "DELAY_BUFALLOC"}, IterBuffered | IterDelayBufAlloc, false},
		{"forced not selectable", []string{"multi_index"}, 0, true},
		{"unknown", []string{"external_loop"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIterFlags(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !stderrors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
					t.Errorf("err kind = %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("flags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCasting(t *testing.T) {
	for _, s := range []string{"no", "equiv", "safe", "same_kind", "unsafe"} {
		c, ok := ParseCasting(s)
		if !ok || c.String() != s {
			t.Errorf("ParseCasting(%q) = %v, %v", s, c, ok)
		}
	}
	for _, s := range []string{"", "Safe", "sameKind", "always"} {
		if _, ok := ParseCasting(s); ok {
			t.Errorf("ParseCasting(%q) should fail", s)
		}
	}
}

func TestIterFlags_String(t *testing.T) {
	if got := (IterForced | IterBuffered).String(); got != "buffered|readonly|c_index|multi_index" {
		t.Errorf("String() = %q", got)
	}
}

func TestGIL_WithWaitsForHolder(t *testing.T) {
	var g GIL
	g.Acquire()
	done := make(chan struct{})
	go func() {
		_ = g.With(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("With ran while the lock was held")
	case <-time.After(20 * time.Millisecond):
	}
	g.Release()
	<-done

	want := stderrors.New("boom")
	if err := g.With(func() error { return want }); err != want {
		t.Errorf("With returned %v, want %v", err, want)
	}
}
