// Package pool provides growable, array-backed object pools.
//
// Pool is the generic store; its per-kind behavior comes from a Policy.
// EntityPool clones a loaded source template, TimedPool returns every acquired
// entity after a delay and LoaderHandlePool recycles load handles.
//
// Slots are scanned in storage order on every Get, which makes acquisition
// O(n) and deterministic. All operations on one pool are serialized by its
// mutex.
package pool
