package pool

// Observer receives pool activity. Calls are made while the pool lock is held,
// so implementations must be fast and must not call back into the pool.
type Observer interface {
	// ObserveGet reports an acquisition; grown is true when it required growth.
	ObserveGet(pool string, grown bool)
	// ObserveGrow reports added slots and the resulting size.
	ObserveGrow(pool string, added, size int)
	// ObserveReturn reports an item handed back to the pool.
	ObserveReturn(pool string)
	// ObserveSize reports the size after Initialize or Reset.
	ObserveSize(pool string, size int)
}

type noopObserver struct{}

func (noopObserver) ObserveGet(string, bool)      {}
func (noopObserver) ObserveGrow(string, int, int) {}
func (noopObserver) ObserveReturn(string)         {}
func (noopObserver) ObserveSize(string, int)      {}

// Stats is a point-in-time summary of a pool.
type Stats struct {
	Name        string `json:"name"`
	Initialized bool   `json:"initialized"`
	Size        int    `json:"size"`
	Available   int    `json:"available"`
	InUse       int    `json:"in_use"`
	Gets        uint64 `json:"gets"`
	Grows       uint64 `json:"grows"`
	Returns     uint64 `json:"returns"`
}
