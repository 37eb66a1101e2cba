package errorcodes

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolErrorFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "10: Pool or source asset not ready", ErrNotReady.Error())
	assert.Equal(t, "12", ErrAllocationFailure.CodeOnly())
}

func TestPoolErrorMatchesThroughWrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("pool %q: %w", "bullets", ErrLoadFailed)
	require.ErrorIs(t, wrapped, ErrLoadFailed)
	require.NotErrorIs(t, wrapped, ErrNotReady)

	var pe PoolError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "13", pe.CodeOnly())
}

func TestFrom(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want PoolError
	}{
		{"nil", nil, Err00},
		{"plain", errors.New("trap"), ErrExecutionFailed},
		{"wrapped", fmt.Errorf("cmd %q: %w", "ZZ", ErrUnknownAsset), ErrUnknownAsset},
		{"first wins", fmt.Errorf("%w: %w", ErrLoadFailed, ErrUnknownAsset), ErrLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, From(tt.err))
		})
	}
}
