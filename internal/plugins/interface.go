package plugins

import "context"

// Executor runs a command against a pooled asset instance.
type Executor interface {
	ExecuteCommand(ctx context.Context, cmd string, input []byte) ([]byte, error)
}
