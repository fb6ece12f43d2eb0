// Package storage persists the contract-knowledge graph: genesis,
// transition, extension and anchor objects keyed by their
// content-addressed identifiers.
//
// It is split in two layers. KV is the minimal ordered key/value
// contract implemented by every backend (memkv, fskv, ldbkv, grpckv,
// and the composites in this package). Store is the typed object layer
// the stash consumes, implemented once over any KV: objects are stored
// as canonical CBOR under a one-byte kind prefix plus the identifier's
// binary encoding, and every read re-derives the identifier from the
// decoded object to detect corruption.
package storage

import (
	"fmt"

	"contractum.io/stash/codec"
	"contractum.io/stash/ident"
	"contractum.io/stash/node"
)

// Store is the typed persistence contract consumed by the stash.
//
// Add operations are keyed by the object's own identifier and replace
// any previous value; re-adding identical content is a no-op
// (content-addressing makes this the common idempotent path).
// Get operations fail with ErrNotFound when absent and ErrCorrupted
// when stored bytes are undecodable or fail identity verification.
type Store interface {
	Genesis(id ident.ContractID) (*node.Genesis, error)
	AddGenesis(g *node.Genesis) error

	Transition(id ident.NodeID) (*node.Transition, error)
	AddTransition(t *node.Transition) error
	RemoveTransition(id ident.NodeID) error
	HasTransition(id ident.NodeID) bool

	Extension(id ident.NodeID) (*node.Extension, error)
	AddExtension(e *node.Extension) error
	RemoveExtension(id ident.NodeID) error
	HasExtension(id ident.NodeID) bool

	Anchor(id ident.AnchorID) (*node.Anchor, error)
	AddAnchor(a *node.Anchor) error
	RemoveAnchor(id ident.AnchorID) error

	ForEachGenesis(fn func(*node.Genesis) error) error
	ForEachTransition(fn func(*node.Transition) error) error
	ForEachExtension(fn func(*node.Extension) error) error
	ForEachAnchor(fn func(*node.Anchor) error) error

	Close() error
}

// Kind prefixes partition the keyspace per object kind.
const (
	prefixGenesis    = 'G'
	prefixTransition = 'T'
	prefixExtension  = 'E'
	prefixAnchor     = 'A'
)

func kindKey(prefix byte, idBytes []byte) []byte {
	key := make([]byte, 1+len(idBytes))
	key[0] = prefix
	copy(key[1:], idBytes)
	return key
}

// KVStore implements Store over any KV backend.
type KVStore struct {
	kv KV
}

var _ Store = (*KVStore)(nil)

// New builds the typed object store over a KV backend.
func New(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Close() error { return s.kv.Close() }

func (s *KVStore) Genesis(id ident.ContractID) (*node.Genesis, error) {
	raw, err := s.kv.Get(kindKey(prefixGenesis, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", id, err)
	}
	return decodeGenesis(raw, id)
}

func (s *KVStore) AddGenesis(g *node.Genesis) error {
	raw, err := codec.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	return s.kv.Put(kindKey(prefixGenesis, g.ContractID().Bytes()), raw)
}

func (s *KVStore) Transition(id ident.NodeID) (*node.Transition, error) {
	raw, err := s.kv.Get(kindKey(prefixTransition, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", id, err)
	}
	return decodeTransition(raw, id)
}

func (s *KVStore) AddTransition(t *node.Transition) error {
	raw, err := codec.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding transition: %w", err)
	}
	return s.kv.Put(kindKey(prefixTransition, t.ID().Bytes()), raw)
}

func (s *KVStore) RemoveTransition(id ident.NodeID) error {
	return s.kv.Delete(kindKey(prefixTransition, id.Bytes()))
}

func (s *KVStore) HasTransition(id ident.NodeID) bool {
	return s.kv.Has(kindKey(prefixTransition, id.Bytes()))
}

func (s *KVStore) Extension(id ident.NodeID) (*node.Extension, error) {
	raw, err := s.kv.Get(kindKey(prefixExtension, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("extension %s: %w", id, err)
	}
	return decodeExtension(raw, id)
}

func (s *KVStore) AddExtension(e *node.Extension) error {
	raw, err := codec.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding extension: %w", err)
	}
	return s.kv.Put(kindKey(prefixExtension, e.ID().Bytes()), raw)
}

func (s *KVStore) RemoveExtension(id ident.NodeID) error {
	return s.kv.Delete(kindKey(prefixExtension, id.Bytes()))
}

func (s *KVStore) HasExtension(id ident.NodeID) bool {
	return s.kv.Has(kindKey(prefixExtension, id.Bytes()))
}

func (s *KVStore) Anchor(id ident.AnchorID) (*node.Anchor, error) {
	raw, err := s.kv.Get(kindKey(prefixAnchor, id.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("anchor %s: %w", id, err)
	}
	return decodeAnchor(raw, id)
}

func (s *KVStore) AddAnchor(a *node.Anchor) error {
	raw, err := codec.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding anchor: %w", err)
	}
	return s.kv.Put(kindKey(prefixAnchor, a.ID().Bytes()), raw)
}

func (s *KVStore) RemoveAnchor(id ident.AnchorID) error {
	return s.kv.Delete(kindKey(prefixAnchor, id.Bytes()))
}

func (s *KVStore) ForEachGenesis(fn func(*node.Genesis) error) error {
	return s.kv.Scan([]byte{prefixGenesis}, func(_, value []byte) error {
		g, err := decodeGenesis(value, ident.ContractID{})
		if err != nil {
			return err
		}
		return fn(g)
	})
}

func (s *KVStore) ForEachTransition(fn func(*node.Transition) error) error {
	return s.kv.Scan([]byte{prefixTransition}, func(_, value []byte) error {
		t, err := decodeTransition(value, ident.NodeID{})
		if err != nil {
			return err
		}
		return fn(t)
	})
}

func (s *KVStore) ForEachExtension(fn func(*node.Extension) error) error {
	return s.kv.Scan([]byte{prefixExtension}, func(_, value []byte) error {
		e, err := decodeExtension(value, ident.NodeID{})
		if err != nil {
			return err
		}
		return fn(e)
	})
}

func (s *KVStore) ForEachAnchor(fn func(*node.Anchor) error) error {
	return s.kv.Scan([]byte{prefixAnchor}, func(_, value []byte) error {
		a, err := decodeAnchor(value, ident.AnchorID{})
		if err != nil {
			return err
		}
		return fn(a)
	})
}

// The decode helpers verify identity when a non-zero id is expected:
// the decoded object must re-derive the identifier it was looked up
// under, otherwise the stored bytes are corrupt.

func decodeGenesis(raw []byte, want ident.ContractID) (*node.Genesis, error) {
	var g node.Genesis
	if err := codec.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: genesis: %v", ErrCorrupted, err)
	}
	if want.Defined() && g.ContractID() != want {
		return nil, fmt.Errorf("%w: genesis derives %s, stored under %s", ErrCorrupted, g.ContractID(), want)
	}
	return &g, nil
}

func decodeTransition(raw []byte, want ident.NodeID) (*node.Transition, error) {
	var t node.Transition
	if err := codec.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: transition: %v", ErrCorrupted, err)
	}
	if want.Defined() && t.ID() != want {
		return nil, fmt.Errorf("%w: transition derives %s, stored under %s", ErrCorrupted, t.ID(), want)
	}
	return &t, nil
}

func decodeExtension(raw []byte, want ident.NodeID) (*node.Extension, error) {
	var e node.Extension
	if err := codec.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: extension: %v", ErrCorrupted, err)
	}
	if want.Defined() && e.ID() != want {
		return nil, fmt.Errorf("%w: extension derives %s, stored under %s", ErrCorrupted, e.ID(), want)
	}
	return &e, nil
}

func decodeAnchor(raw []byte, want ident.AnchorID) (*node.Anchor, error) {
	var a node.Anchor
	if err := codec.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: anchor: %v", ErrCorrupted, err)
	}
	if want.Defined() && a.ID() != want {
		return nil, fmt.Errorf("%w: anchor derives %s, stored under %s", ErrCorrupted, a.ID(), want)
	}
	return &a, nil
}
