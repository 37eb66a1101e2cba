package guest

import "unsafe"

// ReadBytes returns a view of length bytes of linear memory at ptr.
// Only meaningful inside a WASM module.
//
//nolint:gosec // guest memory is addressed by raw offsets.
func ReadBytes(ptr, length uint32) []byte {
	return (*[1 << 30]byte)(unsafe.Pointer(uintptr(ptr)))[:length:length]
}

// WriteBytes copies data into linear memory at ptr.
func WriteBytes(ptr uint32, data []byte) {
	copy(ReadBytes(ptr, uint32(len(data))), data)
}

// Respond allocates room for data, copies it and returns the packed result
// expected from Execute.
func Respond(data []byte) uint64 {
	ptr := Alloc(uint32(len(data)))
	WriteBytes(ptr, data)

	return PackResult(ptr, uint32(len(data)))
}
