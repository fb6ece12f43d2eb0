package stash

import (
	"contractum.io/stash/ident"
	"contractum.io/stash/node"
)

// Iterators take a snapshot of the stored identifiers when created and
// resolve entities lazily on Next. They are finite and restartable:
// creating a new iterator re-reads the current state. An entity
// removed between snapshot and Next surfaces as a not-found error
// through Err.

type GenesisIter struct {
	s   *Stash
	ids []ident.ContractID
	cur *node.Genesis
	err error
}

func (s *Stash) GenesisIter() (*GenesisIter, error) {
	it := &GenesisIter{s: s}
	err := s.store.ForEachGenesis(func(g *node.Genesis) error {
		it.ids = append(it.ids, g.ContractID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (it *GenesisIter) Next() bool {
	if it.err != nil || len(it.ids) == 0 {
		return false
	}
	id := it.ids[0]
	it.ids = it.ids[1:]
	it.cur, it.err = it.s.store.Genesis(id)
	return it.err == nil
}

func (it *GenesisIter) Genesis() *node.Genesis { return it.cur }
func (it *GenesisIter) Err() error             { return it.err }

type TransitionIter struct {
	s   *Stash
	ids []ident.NodeID
	cur *node.Transition
	err error
}

func (s *Stash) TransitionIter() (*TransitionIter, error) {
	it := &TransitionIter{s: s}
	err := s.store.ForEachTransition(func(t *node.Transition) error {
		it.ids = append(it.ids, t.ID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (it *TransitionIter) Next() bool {
	if it.err != nil || len(it.ids) == 0 {
		return false
	}
	id := it.ids[0]
	it.ids = it.ids[1:]
	it.cur, it.err = it.s.store.Transition(id)
	return it.err == nil
}

func (it *TransitionIter) Transition() *node.Transition { return it.cur }
func (it *TransitionIter) Err() error                   { return it.err }

type ExtensionIter struct {
	s   *Stash
	ids []ident.NodeID
	cur *node.Extension
	err error
}

func (s *Stash) ExtensionIter() (*ExtensionIter, error) {
	it := &ExtensionIter{s: s}
	err := s.store.ForEachExtension(func(e *node.Extension) error {
		it.ids = append(it.ids, e.ID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (it *ExtensionIter) Next() bool {
	if it.err != nil || len(it.ids) == 0 {
		return false
	}
	id := it.ids[0]
	it.ids = it.ids[1:]
	it.cur, it.err = it.s.store.Extension(id)
	return it.err == nil
}

func (it *ExtensionIter) Extension() *node.Extension { return it.cur }
func (it *ExtensionIter) Err() error                 { return it.err }

type AnchorIter struct {
	s   *Stash
	ids []ident.AnchorID
	cur *node.Anchor
	err error
}

func (s *Stash) AnchorIter() (*AnchorIter, error) {
	it := &AnchorIter{s: s}
	err := s.store.ForEachAnchor(func(a *node.Anchor) error {
		it.ids = append(it.ids, a.ID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (it *AnchorIter) Next() bool {
	if it.err != nil || len(it.ids) == 0 {
		return false
	}
	id := it.ids[0]
	it.ids = it.ids[1:]
	it.cur, it.err = it.s.store.Anchor(id)
	return it.err == nil
}

func (it *AnchorIter) Anchor() *node.Anchor { return it.cur }
func (it *AnchorIter) Err() error           { return it.err }

// NodeIDs returns the identifiers of every stored node: genesis nodes,
// transitions and extensions, in that order.
func (s *Stash) NodeIDs() ([]ident.NodeID, error) {
	var ids []ident.NodeID
	if err := s.store.ForEachGenesis(func(g *node.Genesis) error {
		ids = append(ids, g.ID())
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.store.ForEachTransition(func(t *node.Transition) error {
		ids = append(ids, t.ID())
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.store.ForEachExtension(func(e *node.Extension) error {
		ids = append(ids, e.ID())
		return nil
	}); err != nil {
		return nil, err
	}
	return ids, nil
}
