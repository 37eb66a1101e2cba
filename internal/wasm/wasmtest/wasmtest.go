// Package wasmtest holds hand-assembled WASM modules for tests.
package wasmtest

// EchoModule exports memory, Alloc(size i32) i32 and Execute(ptr, len i32) i64.
// Alloc always returns 1024 and Execute returns ptr<<32|len, so the response
// is the request.
var EchoModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: (i32)->i32, (i32,i32)->i64
	0x01, 0x0c, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	// function
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory: one page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export
	0x07, 0x1c, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'A', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x07, 'E', 'x', 'e', 'c', 'u', 't', 'e', 0x00, 0x01,
	// code
	0x0a, 0x14, 0x02,
	0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
}

// EmptyModule is a valid module without exports.
var EmptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Garbage is not a WASM module.
var Garbage = []byte("not wasm")
