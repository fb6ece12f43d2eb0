package storage

// KV is the minimal ordered key/value contract every storage backend
// implements. The typed Store layer is built once on top of it.
//
// Contract:
//   - Get MUST return ErrNotFound when the key is absent.
//   - Put replaces any existing value; re-putting identical bytes is a
//     no-op. Durability per key is required, multi-key atomicity is not.
//   - Scan visits keys with the given prefix in ascending byte order
//     and stops at the first error the callback returns, propagating
//     it. A nil prefix scans everything.
//   - Implementations MUST be safe for concurrent readers; writers are
//     serialized by the caller.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Has(key []byte) bool
	Delete(key []byte) error
	Scan(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
