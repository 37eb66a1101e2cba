package pool

import (
	"context"
	"errors"
	"sync"
)

var errCloneFailed = errors.New("clone failed")

// testEntity is a clonable entity. Clones share the source's counter so tests
// can tell them apart by id.
type testEntity struct {
	id          int
	active      bool
	parent      Parent
	initialized int
	disposed    bool

	clones    *int
	failAfter int
}

func newSource() *testEntity {
	n := 0

	return &testEntity{active: true, clones: &n}
}

func (e *testEntity) Activate()    { e.active = true }
func (e *testEntity) Deactivate()  { e.active = false }
func (e *testEntity) Active() bool { return e.active }

func (e *testEntity) AttachTo(p Parent) { e.parent = p }

func (e *testEntity) Dispose(context.Context) error {
	e.disposed = true

	return nil
}

func (e *testEntity) Clone(context.Context) (*testEntity, error) {
	if e.failAfter > 0 && *e.clones >= e.failAfter {
		return nil, errCloneFailed
	}
	*e.clones++

	return &testEntity{
		id:        *e.clones,
		active:    e.active,
		clones:    e.clones,
		failAfter: e.failAfter,
	}, nil
}

type slot struct {
	busy bool
	tag  string
}

func busyPolicy() Policy[*slot] {
	return Policy[*slot]{
		Construct: func(context.Context) (*slot, error) { return &slot{}, nil },
		Available: func(s *slot) bool { return !s.busy },
		Prepare:   func(s *slot) { s.busy = true },
		Release:   func(s *slot) { s.busy = false },
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	gets    int
	grown   int
	grows   []int
	returns int
	sizes   []int
}

func (o *recordingObserver) ObserveGet(_ string, grown bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.gets++
	if grown {
		o.grown++
	}
}

func (o *recordingObserver) ObserveGrow(_ string, added, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.grows = append(o.grows, added)
}

func (o *recordingObserver) ObserveReturn(string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.returns++
}

func (o *recordingObserver) ObserveSize(_ string, size int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sizes = append(o.sizes, size)
}
