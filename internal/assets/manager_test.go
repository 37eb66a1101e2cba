package assets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andrei-cloud/go_assetpool/pkg/errorcodes"
	"github.com/andrei-cloud/go_assetpool/pkg/loader"
	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sprite struct {
	name     string
	active   bool
	disposed int
	failWith error
}

func (s *sprite) Activate()    { s.active = true }
func (s *sprite) Deactivate()  { s.active = false }
func (s *sprite) Active() bool { return s.active }

func (s *sprite) Dispose(context.Context) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.disposed++

	return nil
}

func (s *sprite) Clone(context.Context) (*sprite, error) {
	return &sprite{name: s.name}, nil
}

func newLoader() *loader.Static[*sprite] {
	ld := loader.NewStatic[*sprite]()
	for _, name := range []string{"enemy", "bullet", "coin"} {
		ld.Register(name, func(context.Context) (*sprite, error) { return &sprite{name: name}, nil })
	}

	return ld
}

func TestLoadAndInstantiate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager[*sprite](newLoader(), DefaultSettings())

	s, err := m.Load(ctx, "enemy")
	require.NoError(t, err)
	assert.Equal(t, "enemy", s.name)

	i, err := m.Instantiate(ctx, "coin")
	require.NoError(t, err)
	assert.Equal(t, "coin", i.name)

	_, err = m.Load(ctx, "boss")
	require.ErrorIs(t, err, errorcodes.ErrLoadFailed)
	assert.False(t, m.CurrentlyLoading())
}

func TestLoadMany(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager[*sprite](newLoader(), DefaultSettings())

	got, err := m.LoadMany(ctx, []string{"enemy", "bullet", "coin"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "bullet", got["bullet"].name)

	_, err = m.LoadMany(ctx, []string{"enemy", "boss"})
	require.ErrorIs(t, err, errorcodes.ErrUnknownAsset)
}

func TestCurrentlyLoading(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	release := make(chan struct{})
	ld := newLoader()
	ld.Register("slow", func(context.Context) (*sprite, error) {
		<-release

		return &sprite{name: "slow"}, nil
	})
	m := NewManager[*sprite](ld, DefaultSettings())

	done := make(chan error, 1)
	go func() {
		_, err := m.Load(ctx, "slow")
		done <- err
	}()

	require.Eventually(t, m.CurrentlyLoading, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, m.CurrentlyLoading())
}

func TestTryInstantiateRecyclesHandles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := DefaultSettings()
	s.LoaderHandles = 2
	m := NewManager[*sprite](newLoader(), s)

	var last *sprite
	for _, key := range []string{"enemy", "bullet", "coin"} {
		v, err := m.TryInstantiate(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, v.name)
		last = v
	}

	hp, err := m.LoaderHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, hp.Len())

	first, _ := hp.At(0)
	stored, ok := first.Result()
	require.True(t, ok)
	assert.Same(t, last, stored)

	second, _ := hp.At(1)
	assert.True(t, second.Empty())
}

func TestTryInstantiateFailureFreesHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager[*sprite](newLoader(), DefaultSettings())

	_, err := m.TryInstantiate(ctx, "boss")
	require.ErrorIs(t, err, errorcodes.ErrLoadFailed)

	hp, err := m.LoaderHandles(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultLoaderHandles, hp.Len())
	assert.Equal(t, DefaultLoaderHandles, hp.Stats().Available)
}

func TestNewEntityPool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := DefaultSettings()
	s.InitialSize = 3
	m := NewManager[*sprite](newLoader(), s)

	ep, err := m.NewEntityPool(ctx, "enemy")
	require.NoError(t, err)
	assert.Equal(t, "enemy", ep.Name())
	assert.Equal(t, 3, ep.Len())

	e, err := ep.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "enemy", e.name)
	assert.True(t, e.Active())

	_, err = m.NewEntityPool(ctx, "boss")
	require.ErrorIs(t, err, errorcodes.ErrLoadFailed)
}

func TestNewTimedPool(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := DefaultSettings()
	s.InitialSize = 1
	s.ReturnDelay = 100 * time.Millisecond
	m := NewManager[*sprite](newLoader(), s)

	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sched := scheduler.New(clock)
	tp, err := m.NewTimedPool(ctx, "bullet", sched)
	require.NoError(t, err)
	assert.Equal(t, s.ReturnDelay, tp.ReturnDelay())

	b, err := tp.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.Active())

	clock.Advance(s.ReturnDelay)
	assert.Equal(t, 1, sched.RunDue())
	assert.False(t, b.Active())
}

// marker holds nothing beyond memory.
type marker struct{ active bool }

func (m *marker) Activate()    { m.active = true }
func (m *marker) Deactivate()  { m.active = false }
func (m *marker) Active() bool { return m.active }

func (m *marker) Clone(context.Context) (*marker, error) {
	return &marker{}, nil
}

func TestRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewManager[*sprite](newLoader(), DefaultSettings())

	i, err := m.Instantiate(ctx, "enemy")
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, i))
	assert.Equal(t, 1, i.disposed)

	require.NoError(t, m.Release(ctx, nil))

	failing := &sprite{failWith: errors.New("still referenced")}
	require.ErrorContains(t, m.Release(ctx, failing), "still referenced")
	assert.Zero(t, failing.disposed)
}

func TestReleaseWithoutDispose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ld := loader.NewStatic[*marker]()
	ld.Register("flag", func(context.Context) (*marker, error) { return &marker{}, nil })
	m := NewManager[*marker](ld, DefaultSettings())

	v, err := m.Instantiate(ctx, "flag")
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, v))
	require.NoError(t, m.Release(ctx, nil))
}
