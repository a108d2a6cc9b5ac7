package heap

import (
	"context"
	"sort"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/ndbridge"
	"github.com/wippyai/ndbridge/errors"
)

const (
	pageSize = 65536

	// base keeps address 0 free so it can mean "no buffer".
	base uint32 = 16
)

// Config sizes the linear memory.
type Config struct {
	// InitialPages is the number of 64KB pages at startup. 0 means 1.
	InitialPages uint32
	// MemoryLimitPages caps growth. 0 means the wazero default (4GB).
	MemoryLimitPages uint32
}

type block struct {
	addr uint32
	size uint32
}

// Linear owns a wazero runtime holding one exported memory and hands out
// buffers from it. Not safe for concurrent use; the interpreter lock
// serializes callers.
type Linear struct {
	rt    wazero.Runtime
	mem   *Memory
	free  []block
	top   uint32
	inUse uint32
}

var (
	_ ndbridge.Allocator = (*Linear)(nil)
	_ ndbridge.Memory    = (*Memory)(nil)
)

// New instantiates the memory module.
func New(ctx context.Context, cfg Config) (*Linear, error) {
	initial := cfg.InitialPages
	if initial == 0 {
		initial = 1
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		if initial > cfg.MemoryLimitPages {
			return nil, errors.InvalidInput(errors.PhaseHeap, "initial pages exceed memory limit")
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := rt.CompileModule(ctx, memoryModule(initial))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindAllocation, err, "compile memory module")
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("heap"))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseHeap, errors.KindAllocation, err, "instantiate memory module")
	}

	return &Linear{
		rt:  rt,
		mem: &Memory{Mem: mod.ExportedMemory("memory")},
		top: base,
	}, nil
}

// Memory returns the memory accessor.
func (l *Linear) Memory() *Memory {
	return l.mem
}

// InUse returns the number of allocated bytes.
func (l *Linear) InUse() uint32 {
	return l.inUse
}

// Alloc returns the address of size bytes aligned to align. Freed blocks
// are reused first fit; otherwise the bump pointer advances and memory grows
// as needed.
func (l *Linear) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}
	size = alignUp(size, 8)

	for i, b := range l.free {
		addr := alignUp(b.addr, align)
		pad := addr - b.addr
		if b.size < pad+size {
			continue
		}
		l.free = append(l.free[:i], l.free[i+1:]...)
		if pad > 0 {
			l.insertFree(block{b.addr, pad})
		}
		if rest := b.size - pad - size; rest > 0 {
			l.insertFree(block{addr + size, rest})
		}
		l.inUse += size
		return addr, nil
	}

	addr := alignUp(l.top, align)
	end := uint64(addr) + uint64(size)
	if end > uint64(l.mem.Size()) {
		need := (end - uint64(l.mem.Size()) + pageSize - 1) / pageSize
		if !l.mem.grow(uint32(need)) {
			return 0, errors.AllocationFailed(errors.PhaseHeap, size, align)
		}
	}
	if addr > l.top {
		l.insertFree(block{l.top, addr - l.top})
	}
	l.top = uint32(end)
	l.inUse += size
	return addr, nil
}

// Free returns a block to the free list. Size must match the Alloc call.
func (l *Linear) Free(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	if size == 0 {
		size = 1
	}
	size = alignUp(size, 8)
	l.inUse -= size
	l.insertFree(block{ptr, size})
}

func (l *Linear) insertFree(b block) {
	i := sort.Search(len(l.free), func(i int) bool { return l.free[i].addr > b.addr })
	l.free = append(l.free, block{})
	copy(l.free[i+1:], l.free[i:])
	l.free[i] = b

	// coalesce with neighbours
	if i+1 < len(l.free) && l.free[i].addr+l.free[i].size == l.free[i+1].addr {
		l.free[i].size += l.free[i+1].size
		l.free = append(l.free[:i+1], l.free[i+2:]...)
	}
	if i > 0 && l.free[i-1].addr+l.free[i-1].size == l.free[i].addr {
		l.free[i-1].size += l.free[i].size
		l.free = append(l.free[:i], l.free[i+1:]...)
		i--
	}
	// give the tail back to the bump pointer
	if last := l.free[len(l.free)-1]; last.addr+last.size == l.top {
		l.top = last.addr
		l.free = l.free[:len(l.free)-1]
	}
}

// Close releases the wazero runtime.
func (l *Linear) Close(ctx context.Context) error {
	return l.rt.Close(ctx)
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
