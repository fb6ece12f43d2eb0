// Package index maintains the transition-to-anchor secondary index.
// The stash uses it during consignment assembly to locate the closed
// ledger commitment for every ancestor transition.
package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"contractum.io/stash/ident"
	"contractum.io/stash/storage"
)

var (
	// ErrNotFound reports a transition that was never anchored.
	ErrNotFound = errors.New("index: entry not found")

	// ErrConflict reports an attempt to re-anchor a transition under a
	// different anchor. A transition maps to exactly one anchor;
	// silently overwriting would orphan previously issued consignments.
	ErrConflict = errors.New("index: transition already anchored differently")
)

// Index maps transition identifiers to the anchor that commits them.
type Index interface {
	// AnchorID returns the anchor committing the given transition, or
	// ErrNotFound if the transition was never anchored.
	AnchorID(transition ident.NodeID) (ident.AnchorID, error)

	// Insert records the mapping. Re-inserting the same pair is a
	// no-op; a different anchor for an indexed transition fails with
	// ErrConflict.
	Insert(transition ident.NodeID, anchor ident.AnchorID) error

	// Remove drops the mapping. Removing an absent entry succeeds.
	Remove(transition ident.NodeID) error

	// ForEach visits every mapping in ascending transition-ID order.
	// Returning an error from fn stops the walk and propagates it.
	ForEach(fn func(transition ident.NodeID, anchor ident.AnchorID) error) error
}

// Memory is an in-process Index backed by a sorted map.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]ident.AnchorID
}

var _ Index = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]ident.AnchorID)}
}

func (m *Memory) AnchorID(transition ident.NodeID) (ident.AnchorID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.entries[string(transition.Bytes())]
	if !ok {
		return ident.AnchorID{}, fmt.Errorf("%w: transition %s", ErrNotFound, transition)
	}
	return a, nil
}

func (m *Memory) Insert(transition ident.NodeID, anchor ident.AnchorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(transition.Bytes())
	if prev, ok := m.entries[key]; ok {
		if prev == anchor {
			return nil
		}
		return fmt.Errorf("%w: transition %s maps to %s, refusing %s",
			ErrConflict, transition, prev, anchor)
	}
	m.entries[key] = anchor
	return nil
}

func (m *Memory) Remove(transition ident.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, string(transition.Bytes()))
	return nil
}

func (m *Memory) ForEach(fn func(ident.NodeID, ident.AnchorID) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		m.mu.RLock()
		a, ok := m.entries[k]
		m.mu.RUnlock()
		if !ok {
			continue
		}
		id, err := ident.NodeIDFromBytes([]byte(k))
		if err != nil {
			return fmt.Errorf("index: malformed key: %w", err)
		}
		if err := fn(id, a); err != nil {
			return err
		}
	}
	return nil
}

// Key prefix partitioning KVIndex entries from stored objects when
// sharing a KV with the object store.
const prefixIndex = 'I'

// KVIndex is a persistent Index over any storage.KV.
type KVIndex struct {
	kv storage.KV
}

var _ Index = (*KVIndex)(nil)

func NewKV(kv storage.KV) *KVIndex {
	return &KVIndex{kv: kv}
}

func (x *KVIndex) key(transition ident.NodeID) []byte {
	b := transition.Bytes()
	key := make([]byte, 1+len(b))
	key[0] = prefixIndex
	copy(key[1:], b)
	return key
}

func (x *KVIndex) AnchorID(transition ident.NodeID) (ident.AnchorID, error) {
	raw, err := x.kv.Get(x.key(transition))
	if err != nil {
		if storage.IsNotFound(err) {
			return ident.AnchorID{}, fmt.Errorf("%w: transition %s", ErrNotFound, transition)
		}
		return ident.AnchorID{}, err
	}
	a, err := ident.AnchorIDFromBytes(raw)
	if err != nil {
		return ident.AnchorID{}, fmt.Errorf("%w: index entry for %s: %v",
			storage.ErrCorrupted, transition, err)
	}
	return a, nil
}

func (x *KVIndex) Insert(transition ident.NodeID, anchor ident.AnchorID) error {
	prev, err := x.AnchorID(transition)
	switch {
	case err == nil:
		if prev == anchor {
			return nil
		}
		return fmt.Errorf("%w: transition %s maps to %s, refusing %s",
			ErrConflict, transition, prev, anchor)
	case errors.Is(err, ErrNotFound):
		return x.kv.Put(x.key(transition), anchor.Bytes())
	default:
		return err
	}
}

func (x *KVIndex) Remove(transition ident.NodeID) error {
	return x.kv.Delete(x.key(transition))
}

func (x *KVIndex) ForEach(fn func(ident.NodeID, ident.AnchorID) error) error {
	return x.kv.Scan([]byte{prefixIndex}, func(key, value []byte) error {
		id, err := ident.NodeIDFromBytes(key[1:])
		if err != nil {
			return fmt.Errorf("%w: index key: %v", storage.ErrCorrupted, err)
		}
		a, err := ident.AnchorIDFromBytes(value)
		if err != nil {
			return fmt.Errorf("%w: index entry for %s: %v", storage.ErrCorrupted, id, err)
		}
		return fn(id, a)
	})
}
