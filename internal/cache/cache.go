package cache

// Reader reads records by cache id. Returned fragments are copies.
type Reader interface {
	Read(id string) (Fragment, bool)
}

// Tx is the set of record operations available inside a Batch.
type Tx interface {
	Reader
	// Write replaces the record stored at id.
	Write(id string, f Fragment)
	// Modify passes a copy of the record at id to fn and stores it when fn
	// returns true. It reports whether the record existed.
	Modify(id string, fn func(f Fragment) bool) bool
	// Evict removes the record at id and reports whether it existed.
	Evict(id string) bool
	// Retain marks id as a root that survives garbage collection.
	Retain(id string)
}

// Port is the normalized cache the reconciler and the full fetch write to.
type Port interface {
	Tx
	// Identify returns the canonical id of f. It does not touch stored records
	// and is safe to call inside Batch.
	Identify(f Fragment) (string, error)
	// Typename returns the concrete type of f.
	Typename(f Fragment) string
	// Batch runs fn with exclusive access; readers never observe a partially
	// applied batch.
	Batch(fn func(tx Tx))
	// View runs fn against a consistent read-only view.
	View(fn func(r Reader))
	// WriteTree normalizes f and its identifiable descendants into standalone
	// records linked by Ref, returning the id of f.
	WriteTree(f Fragment) (string, error)
	// GC evicts records unreachable from retained roots and prunes dangling
	// references from collections. It returns the number of evicted records.
	GC() int
}
