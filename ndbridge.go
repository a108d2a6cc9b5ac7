package ndbridge

// Memory represents the interpreter heap's linear memory.
// Offsets are byte addresses; address 0 is never handed out.
type Memory interface {
	// Read returns a view that aliases memory until the next growth.
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	// Size returns the current memory size in bytes.
	Size() uint32
	// Generation counts growths. A view read at one generation is detached
	// from memory once the generation changes.
	Generation() uint64
}

// Allocator allocates array buffers in linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
