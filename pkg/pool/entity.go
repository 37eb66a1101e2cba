package pool

import "context"

// Entity is a reusable resource with an active flag: a scene node, a module
// instance, a connection. Implementations must make Activate and Deactivate
// idempotent.
type Entity interface {
	Activate()
	Deactivate()
	Active() bool
}

// Template is an Entity that can produce independent copies of itself. An
// EntityPool clones its loaded source template to fill every slot.
type Template[E any] interface {
	comparable
	Entity
	Clone(ctx context.Context) (E, error)
}

// Parent is an attachment target for items with hierarchical placement.
type Parent interface {
	Name() string
}

// Attachable is implemented by items that can be placed under a Parent.
// Pools attach freshly created items to the custom parent, if one is set.
type Attachable interface {
	AttachTo(parent Parent)
}

// Disposable is implemented by items that hold resources beyond memory.
// Pools dispose items they discard on Reset or on a failed growth.
type Disposable interface {
	Dispose(ctx context.Context) error
}

// Group is a named Parent.
type Group struct {
	name string
}

// NewGroup returns a Group called name.
func NewGroup(name string) *Group {
	return &Group{name: name}
}

// Name implements Parent.
func (g *Group) Name() string {
	return g.name
}
