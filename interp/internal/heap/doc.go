// Package heap provides the interpreter's linear memory: a memory-only
// wazero module plus a first-fit allocator for array buffers.
package heap
