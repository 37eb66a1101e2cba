//go:build wasip1

package guest

import "unsafe"

//go:wasmimport env log_debug
func logDebug(ptr, length uint32)

// LogToHost sends msg to the host's debug log.
func LogToHost(msg string) {
	if msg == "" {
		return
	}
	b := []byte(msg)
	logDebug(uint32(uintptr(unsafe.Pointer(&b[0]))), uint32(len(b)))
}
