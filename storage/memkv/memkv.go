// Package memkv provides an in-memory KV backend, primarily for tests
// and ephemeral stashes.
package memkv

import (
	"bytes"
	"sort"
	"sync"

	"contractum.io/stash/storage"
)

type KV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ storage.KV = (*KV)(nil)

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

func (m *KV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, storage.ErrClosed
	}
	v, ok := m.data[string(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *KV) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *KV) Has(key []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok
}

func (m *KV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return storage.ErrClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *KV) Scan(prefix []byte, fn func(key, value []byte) error) error {
	// Snapshot matching keys so the callback may mutate the store.
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return storage.ErrClosed
	}
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		m.mu.RLock()
		v, ok := m.data[k]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (m *KV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
