package heap

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Memory adapts wazero api.Memory to ndbridge.Memory.
type Memory struct {
	Mem api.Memory
	gen uint64
}

// Read returns a view of length bytes at offset. The view aliases linear
// memory until the memory grows.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *Memory) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.Mem.Size()
}

// Generation returns the number of successful grows.
func (m *Memory) Generation() uint64 {
	return m.gen
}

// grow adds pages. wazero may move the backing buffer, so every grow
// starts a new generation.
func (m *Memory) grow(pages uint32) bool {
	if _, ok := m.Mem.Grow(pages); !ok {
		return false
	}
	m.gen++
	return true
}
