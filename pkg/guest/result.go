package guest

import "github.com/andrei-cloud/go_assetpool/pkg/errorcodes"

// PackResult combines a pointer and a length into a single uint64 result.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a packed result into pointer and length.
func UnpackResult(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}

// ResponseCode returns the response code for a two-character command: the
// second character is incremented, wrapping Z to A.
func ResponseCode(cmd string) string {
	if len(cmd) < 2 {
		return cmd
	}

	b := cmd[1]
	if b == 'Z' {
		b = 'A'
	} else {
		b++
	}

	return cmd[:1] + string(b)
}

// ErrorResponse builds "<response code><error code>" for cmd.
func ErrorResponse(cmd string, e errorcodes.PoolError) []byte {
	return []byte(ResponseCode(cmd) + e.CodeOnly())
}

// WriteError writes ErrorResponse(cmd, e) into guest memory and returns the
// packed result.
func WriteError(cmd string, e errorcodes.PoolError) uint64 {
	return Respond(ErrorResponse(cmd, e))
}
