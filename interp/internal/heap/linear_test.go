package heap

import (
	"context"
	"testing"
)

func newLinear(t *testing.T, cfg Config) *Linear {
	t.Helper()
	ctx := context.Background()
	l, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close(ctx) })
	return l
}

func TestMemoryModule_Header(t *testing.T) {
	mod := memoryModule(1)
	want := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0a, 0x01,
		0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79,
		0x02, 0x00,
	}
	if string(mod) != string(want) {
		t.Errorf("memoryModule(1) = %x, want %x", mod, want)
	}
}

func TestLeb128u(t *testing.T) {
	tests := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tt := range tests {
		if got := leb128u(nil, tt.v); string(got) != string(tt.want) {
			t.Errorf("leb128u(%d) = %x, want %x", tt.v, got, tt.want)
		}
	}
}

func TestLinear_AllocFree(t *testing.T) {
	l := newLinear(t, Config{})

	a, err := l.Alloc(24, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if a == 0 || a%8 != 0 {
		t.Fatalf("Alloc returned %d", a)
	}
	b, err := l.Alloc(4, 4)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if b < a+24 {
		t.Fatalf("blocks overlap: a=%d b=%d", a, b)
	}

	l.Free(a, 24, 8)
	c, err := l.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if c != a {
		t.Errorf("freed block not reused: got %d, want %d", c, a)
	}

	l.Free(c, 16, 8)
	l.Free(b, 4, 4)
	if l.InUse() != 0 {
		t.Errorf("InUse = %d, want 0", l.InUse())
	}
	if l.top != base {
		t.Errorf("top = %d, want %d after freeing everything", l.top, base)
	}
}

func TestLinear_Grow(t *testing.T) {
	l := newLinear(t, Config{InitialPages: 1, MemoryLimitPages: 4})

	addr, err := l.Alloc(2*pageSize, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if l.mem.Size() < addr+2*pageSize {
		t.Errorf("memory did not grow: size=%d", l.mem.Size())
	}
	if l.mem.Generation() == 0 {
		t.Error("growth should start a new generation")
	}
	if err := l.mem.Write(addr+2*pageSize-8, []byte{42}); err != nil {
		t.Fatalf("write at end of block: %v", err)
	}

	if _, err := l.Alloc(8*pageSize, 8); err == nil {
		t.Error("expected allocation past the page limit to fail")
	}
}

func TestLinear_InitialOverLimit(t *testing.T) {
	if _, err := New(context.Background(), Config{InitialPages: 8, MemoryLimitPages: 2}); err == nil {
		t.Error("expected error")
	}
}

func TestMemory_ReadWrite(t *testing.T) {
	l := newLinear(t, Config{})
	mem := l.Memory()

	if err := mem.Write(64, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := mem.Read(64, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("Read = %v", got)
	}
	if _, err := mem.Read(mem.Size()-2, 4); err == nil {
		t.Error("expected out of bounds read to fail")
	}
}

func TestMemory_GenerationStable(t *testing.T) {
	l := newLinear(t, Config{InitialPages: 2})
	if _, err := l.Alloc(1024, 8); err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if g := l.Memory().Generation(); g != 0 {
		t.Errorf("allocation within the initial pages changed generation to %d", g)
	}
}
