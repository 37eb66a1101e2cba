// Package guest provides helpers for WASM modules served by the asset pool
// and the packing conventions the host shares with them.
package guest

// heapStart is the first address handed out by Alloc. [0-7] stays reserved.
const heapStart = 8

var nextPtr uint32 = heapStart

// ResetAllocator rewinds the allocator. Call it at the top of Execute: a
// pooled instance is reused, so memory from the previous call is garbage.
func ResetAllocator() {
	nextPtr = heapStart
}

// Alloc allocates n bytes with 8-byte alignment and returns the starting pointer.
func Alloc(n uint32) uint32 {
	ptr := nextPtr
	nextPtr += n + (8-n%8)%8

	return ptr
}

// Free is a no-op; memory is reclaimed by ResetAllocator.
func Free(uint32) {}
