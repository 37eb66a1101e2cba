package watch

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrei-cloud/go_assetpool/internal/assets"
	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
)

func newTestModel(t *testing.T, size int, delay time.Duration) (*model, *scheduler.ManualClock) {
	t.Helper()

	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := assets.DefaultSettings()
	s.InitialSize = size
	s.ReturnDelay = delay

	m, err := newModel(context.Background(), s, scheduler.New(clock), time.Millisecond)
	require.NoError(t, err)

	return m, clock
}

func press(m *model, key tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(key)

	return cmd
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace}
	keyR  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}
	keyQ  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestAcquireGrowsAndTickReturns(t *testing.T) {
	t.Parallel()

	m, clock := newTestModel(t, 2, time.Second)
	require.NotNil(t, m.Init())

	for i := 0; i < 3; i++ {
		press(m, space)
	}
	require.NoError(t, m.err)

	st := m.pool.Stats()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 3, st.InUse)
	assert.Equal(t, 3, m.sched.Pending())
	assert.Contains(t, m.View(), "■■■")

	clock.Advance(time.Second)
	_, cmd := m.Update(tickMsg(clock.Now()))
	assert.NotNil(t, cmd)

	st = m.pool.Stats()
	assert.Zero(t, st.InUse)
	assert.Equal(t, 3, m.returned)
	assert.Contains(t, m.View(), "···")
	assert.Contains(t, m.View(), "auto-returned: 3")
}

func TestReturnAllCancelsPendingReturns(t *testing.T) {
	t.Parallel()

	m, clock := newTestModel(t, 2, time.Second)
	press(m, space)
	press(m, space)

	press(m, keyR)
	assert.Zero(t, m.pool.Stats().InUse)
	assert.Zero(t, m.pool.Leased())

	clock.Advance(time.Second)
	m.Update(tickMsg(clock.Now()))
	assert.Zero(t, m.returned)
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t, 1, time.Second)
	press(m, space)

	cmd := press(m, keyQ)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
	assert.False(t, m.pool.Initialized())
}

func TestInstantiateThroughLoaderHandles(t *testing.T) {
	t.Parallel()

	clock := scheduler.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s := assets.DefaultSettings()
	s.InitialSize = 1
	s.LoaderHandles = 2

	m, err := newModel(context.Background(), s, scheduler.New(clock), time.Millisecond)
	require.NoError(t, err)

	keyL := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")}
	for i := 0; i < 3; i++ {
		press(m, keyL)
	}
	require.NoError(t, m.err)
	assert.Equal(t, 3, m.instanced)

	hp, err := m.manager.LoaderHandles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hp.Len(), "handle pool is sized by the configured loader handles")
	assert.Contains(t, m.View(), "loader handles: 2  holding results: 2  loose instances: 3")
	assert.Zero(t, m.pool.Stats().InUse)
}
