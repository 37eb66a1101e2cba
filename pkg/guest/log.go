//go:build !wasip1

package guest

// LogToHost is a no-op outside a WASM module.
func LogToHost(string) {}
