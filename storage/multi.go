package storage

import (
	"errors"
	"fmt"
)

// NamedKV associates a KV with a stable backend name, for composite
// setups where callers need per-backend reporting.
type NamedKV struct {
	Name string
	KV   KV
}

// FallbackKV provides deterministic, ordered read fallback across
// multiple KV backends. Writes (Put and Delete) go only to the first
// backend; callers MUST supply a fixed order, which avoids
// map-iteration nondeterminism and makes the retrieval strategy
// explicit. Scan uses the first backend only.
type FallbackKV struct {
	Backends []KV
}

var _ KV = FallbackKV{}

func (m FallbackKV) first() (KV, error) {
	if len(m.Backends) == 0 {
		return nil, errors.New("storage: FallbackKV has no backends")
	}
	return m.Backends[0], nil
}

func (m FallbackKV) Get(key []byte) ([]byte, error) {
	var sawNotFound bool
	for _, kv := range m.Backends {
		v, err := kv.Get(key)
		if err == nil {
			return v, nil
		}
		if IsNotFound(err) {
			sawNotFound = true
			continue
		}
		return nil, err
	}
	if sawNotFound {
		return nil, ErrNotFound
	}
	return nil, ErrNotFound
}

func (m FallbackKV) Put(key, value []byte) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Put(key, value)
}

func (m FallbackKV) Has(key []byte) bool {
	for _, kv := range m.Backends {
		if kv.Has(key) {
			return true
		}
	}
	return false
}

func (m FallbackKV) Delete(key []byte) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Delete(key)
}

func (m FallbackKV) Scan(prefix []byte, fn func(key, value []byte) error) error {
	kv, err := m.first()
	if err != nil {
		return err
	}
	return kv.Scan(prefix, fn)
}

func (m FallbackKV) Close() error {
	var firstErr error
	for _, kv := range m.Backends {
		if err := kv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReplicatingKV writes to all configured backends. Reads fall back in
// order; Scan uses the first backend.
type ReplicatingKV struct {
	Backends []NamedKV
}

var _ KV = ReplicatingKV{}

func (r ReplicatingKV) Get(key []byte) ([]byte, error) {
	var sawNotFound bool
	for _, b := range r.Backends {
		if b.KV == nil {
			continue
		}
		v, err := b.KV.Get(key)
		if err == nil {
			return v, nil
		}
		if IsNotFound(err) {
			sawNotFound = true
			continue
		}
		return nil, err
	}
	if sawNotFound {
		return nil, ErrNotFound
	}
	return nil, ErrNotFound
}

func (r ReplicatingKV) Put(key, value []byte) error {
	if len(r.Backends) == 0 {
		return errors.New("storage: ReplicatingKV has no backends")
	}
	for _, b := range r.Backends {
		if b.KV == nil {
			return fmt.Errorf("storage: nil KV for backend %q", b.Name)
		}
		if err := b.KV.Put(key, value); err != nil {
			return fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r ReplicatingKV) Has(key []byte) bool {
	for _, b := range r.Backends {
		if b.KV != nil && b.KV.Has(key) {
			return true
		}
	}
	return false
}

func (r ReplicatingKV) Delete(key []byte) error {
	for _, b := range r.Backends {
		if b.KV == nil {
			continue
		}
		if err := b.KV.Delete(key); err != nil {
			return fmt.Errorf("backend %q: %w", b.Name, err)
		}
	}
	return nil
}

func (r ReplicatingKV) Scan(prefix []byte, fn func(key, value []byte) error) error {
	for _, b := range r.Backends {
		if b.KV == nil {
			continue
		}
		return b.KV.Scan(prefix, fn)
	}
	return errors.New("storage: ReplicatingKV has no backends")
}

func (r ReplicatingKV) Close() error {
	var firstErr error
	for _, b := range r.Backends {
		if b.KV == nil {
			continue
		}
		if err := b.KV.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
