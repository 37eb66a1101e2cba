package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrei-cloud/go_assetpool/internal/assets"
	"github.com/andrei-cloud/go_assetpool/pkg/loader"
	"github.com/andrei-cloud/go_assetpool/pkg/pool"
	"github.com/andrei-cloud/go_assetpool/pkg/scheduler"
)

const assetKey = "token"

// token is the pooled entity shown by the watch view.
type token struct {
	id     int
	active bool
	spawns *int
}

func (t *token) Activate()    { t.active = true }
func (t *token) Deactivate()  { t.active = false }
func (t *token) Active() bool { return t.active }

func (t *token) Clone(context.Context) (*token, error) {
	*t.spawns++

	return &token{id: *t.spawns, spawns: t.spawns}, nil
}

type tickMsg time.Time

type model struct {
	manager  *assets.Manager[*token]
	pool     *pool.TimedPool[*token]
	sched    *scheduler.Scheduler
	expandBy int
	interval time.Duration

	returned  int
	instanced int
	err       error
	quitting  bool
}

// newModel builds a TimedPool of tokens through an assets.Manager. Returns run
// on sched, which the model drives from its tick.
func newModel(ctx context.Context, s assets.Settings, sched *scheduler.Scheduler, interval time.Duration) (*model, error) {
	ld := loader.NewStatic[*token]()
	ld.Register(assetKey, func(context.Context) (*token, error) {
		return &token{spawns: new(int)}, nil
	})

	am := assets.NewManager[*token](ld, s)
	tp, err := am.NewTimedPool(ctx, assetKey, sched)
	if err != nil {
		return nil, err
	}

	m := &model{manager: am, pool: tp, sched: sched, expandBy: s.ExpandBy, interval: interval}
	tp.SetOnReturned(func(*token) { m.returned++ })

	return m, nil
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) Init() tea.Cmd {
	return tick(m.interval)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.sched.RunDue()

		return m, tick(m.interval)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			m.pool.Reset(context.Background())

			return m, tea.Quit
		case " ", "space", "enter":
			_, m.err = m.pool.Get(context.Background(), m.expandBy)
		case "l":
			if _, m.err = m.manager.TryInstantiate(context.Background(), assetKey); m.err == nil {
				m.instanced++
			}
		case "r":
			m.pool.ReturnAll()
			m.err = nil
		}
	}

	return m, nil
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	st := m.pool.Stats()

	fmt.Fprintf(&b, "Timed pool %q (return delay %s)\n\n", st.Name, m.pool.ReturnDelay())

	for i := 0; i < m.pool.Len(); i++ {
		e, _ := m.pool.At(i)
		if e.Active() {
			b.WriteString("■")
		} else {
			b.WriteString("·")
		}
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "slots: %d  in use: %d  available: %d\n", st.Size, st.InUse, st.Available)
	fmt.Fprintf(&b, "gets: %d  grows: %d  auto-returned: %d  pending returns: %d\n",
		st.Gets, st.Grows, m.returned, m.sched.Pending())
	if hp, err := m.manager.LoaderHandles(context.Background()); err == nil {
		hs := hp.Stats()
		fmt.Fprintf(&b, "loader handles: %d  holding results: %d  loose instances: %d\n",
			hs.Size, hs.InUse, m.instanced)
	}
	if m.err != nil {
		fmt.Fprintf(&b, "\nerror: %v\n", m.err)
	}

	b.WriteString("\nspace: acquire  l: instantiate via loader handle  r: return all  q: quit\n")

	return b.String()
}
