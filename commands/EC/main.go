// Command EC is an echo asset: it answers "ED00" followed by the request
// payload. Build with: tinygo build -o assets/EC.wasm -target=wasi ./commands/EC
package main

import (
	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/guest"
)

//export Alloc
func Alloc(size uint32) uint32 {
	return guest.Alloc(size)
}

//export Free
func Free(ptr uint32) {
	guest.Free(ptr)
}

//export Execute
func Execute(ptr, length uint32) uint64 {
	input := append([]byte(nil), guest.ReadBytes(ptr, length)...)
	guest.ResetAllocator()

	if length == 0 {
		return guest.WriteError("EC", errorcodes.ErrMalformedRequest)
	}
	guest.LogToHost("echo request")

	resp := make([]byte, 0, 4+len(input))
	resp = append(resp, guest.ResponseCode("EC")...)
	resp = append(resp, errorcodes.Err00.CodeOnly()...)
	resp = append(resp, input...)

	return guest.Respond(resp)
}

func main() {}
