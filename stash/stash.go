// Package stash implements the client-side contract-knowledge engine:
// it owns a typed object store and a transition-to-anchor index, and
// turns them into transferable proofs (Consign) and back into stored
// knowledge (Merge).
//
// A Stash is a single logical owner of its store and index. Mutating
// operations (Merge, Forget, Prune) must be serialized by the caller;
// Consign only reads and may run concurrently with other reads.
package stash

import (
	"fmt"

	"contractum.io/stash/consignment"
	"contractum.io/stash/ident"
	"contractum.io/stash/index"
	"contractum.io/stash/node"
	"contractum.io/stash/seal"
	"contractum.io/stash/storage"
)

// DefaultMaxTraversal bounds the ancestor walk of a single Consign
// call. The bound exists to fail deterministically on pathological or
// adversarial graphs rather than walk them to exhaustion.
const DefaultMaxTraversal = 1 << 20

type Stash struct {
	store        storage.Store
	index        index.Index
	maxTraversal int
}

type Option func(*Stash)

// WithMaxTraversal overrides the ancestor traversal bound.
func WithMaxTraversal(n int) Option {
	return func(s *Stash) {
		if n > 0 {
			s.maxTraversal = n
		}
	}
}

func New(store storage.Store, ix index.Index, opts ...Option) *Stash {
	s := &Stash{store: store, index: ix, maxTraversal: DefaultMaxTraversal}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Consign extracts a self-contained proof for n, ancestor-complete and
// rooted at the contract's genesis.
//
// Only the seal-bound items of n whose endpoint appears in expose stay
// revealed; everything else in n, and every assignment of every
// ancestor, is concealed. Ancestors carry structural proof only.
//
// Fails with ErrGenesisNode when n is the genesis, ErrAnchorRequired
// when n is a transition and anchor is nil, and a wrapped
// storage.ErrNotFound when the ancestor chain is broken: a consignment
// that cannot be proven complete is never returned partially.
func (s *Stash) Consign(contract ident.ContractID, n node.Node, anchor *node.Anchor, expose []seal.Endpoint) (*consignment.Consignment, error) {
	if n.Kind() == node.KindGenesis {
		return nil, ErrGenesisNode
	}
	if n.Kind() == node.KindTransition && anchor == nil {
		return nil, ErrAnchorRequired
	}

	genesis, err := s.store.Genesis(contract)
	if err != nil {
		return nil, fmt.Errorf("stash: loading genesis: %w", err)
	}
	genesisID := genesis.ID()

	keep := make(map[seal.Confidential]struct{}, len(expose))
	for _, e := range expose {
		keep[e.Conceal()] = struct{}{}
	}

	cons := &consignment.Consignment{Genesis: genesis}
	for _, e := range expose {
		cons.Endpoints = append(cons.Endpoints, consignment.Endpoint{Node: n.ID(), Seal: e})
	}

	target := n.CloneNode()
	target.ConcealExcept(keep)
	switch t := target.(type) {
	case *node.Transition:
		cons.StateTransitions = append(cons.StateTransitions,
			consignment.AnchoredTransition{Anchor: anchor.Clone(), Transition: t})
	case *node.Extension:
		cons.StateExtensions = append(cons.StateExtensions, t)
	default:
		return nil, fmt.Errorf("stash: cannot consign node of kind %s", n.Kind())
	}

	// Ancestor closure: FIFO walk over parent identifiers, one visit
	// per node even when a diamond makes it reachable twice.
	queue := n.Parents()
	visited := map[ident.NodeID]struct{}{n.ID(): {}}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if id == genesisID {
			continue
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		if len(visited) > s.maxTraversal {
			return nil, fmt.Errorf("%w: more than %d ancestors", ErrTraversalLimit, s.maxTraversal)
		}

		tr, err := s.store.Transition(id)
		switch {
		case err == nil:
			anchorID, err := s.index.AnchorID(id)
			if err != nil {
				return nil, fmt.Errorf("stash: resolving anchor for ancestor %s: %w", id, err)
			}
			a, err := s.store.Anchor(anchorID)
			if err != nil {
				return nil, fmt.Errorf("stash: loading anchor %s: %w", anchorID, err)
			}
			tr.ConcealAll()
			cons.StateTransitions = append(cons.StateTransitions,
				consignment.AnchoredTransition{Anchor: a, Transition: tr})
			queue = append(queue, tr.Parents()...)

		case storage.IsNotFound(err):
			// Not a transition; the ancestor must be an extension.
			// Extensions are not anchored, so no index lookup here.
			ex, exErr := s.store.Extension(id)
			if exErr != nil {
				return nil, fmt.Errorf("stash: ancestor %s is neither a stored transition nor extension: %w", id, exErr)
			}
			ex.ConcealAll()
			cons.StateExtensions = append(cons.StateExtensions, ex)
			queue = append(queue, ex.Parents()...)

		default:
			return nil, fmt.Errorf("stash: loading ancestor %s: %w", id, err)
		}
	}

	return cons, nil
}

// Merge ingests a received consignment, revealing every seal-bound
// item whose concealed seal matches one of knownSeals. This is how a
// party recovers full visibility into transfers addressed to seals it
// generated itself, without the sender knowing the seal was known.
//
// Writes are ordered so the stored graph is never left dangling:
// genesis first, then anchor before its transition for each pair, then
// extensions. Merge is not atomic across nodes; it returns the first
// error and leaves prior writes in place. Re-running the same call is
// safe: persistence is idempotent per content-addressed key.
func (s *Stash) Merge(c *consignment.Consignment, knownSeals []seal.Revealed) error {
	if c == nil || c.Genesis == nil {
		return fmt.Errorf("stash: merge of empty consignment")
	}

	if err := s.store.AddGenesis(c.Genesis); err != nil {
		return fmt.Errorf("stash: persisting genesis: %w", err)
	}

	for _, at := range c.StateTransitions {
		tr := at.Transition.Clone()
		tr.RevealSeals(knownSeals)

		if err := s.store.AddAnchor(at.Anchor); err != nil {
			return fmt.Errorf("stash: persisting anchor %s: %w", at.Anchor.ID(), err)
		}
		if err := s.store.AddTransition(tr); err != nil {
			return fmt.Errorf("stash: persisting transition %s: %w", tr.ID(), err)
		}
		if err := s.index.Insert(tr.ID(), at.Anchor.ID()); err != nil {
			return fmt.Errorf("stash: indexing transition %s: %w", tr.ID(), err)
		}
	}

	for _, ex := range c.StateExtensions {
		e := ex.Clone()
		e.RevealSeals(knownSeals)
		if err := s.store.AddExtension(e); err != nil {
			return fmt.Errorf("stash: persisting extension %s: %w", e.ID(), err)
		}
	}

	return nil
}

// Point lookups, delegating to the store.

func (s *Stash) Genesis(contract ident.ContractID) (*node.Genesis, error) {
	return s.store.Genesis(contract)
}

func (s *Stash) Transition(id ident.NodeID) (*node.Transition, error) {
	return s.store.Transition(id)
}

func (s *Stash) Extension(id ident.NodeID) (*node.Extension, error) {
	return s.store.Extension(id)
}

func (s *Stash) Anchor(id ident.AnchorID) (*node.Anchor, error) {
	return s.store.Anchor(id)
}

// SchemaID returns the schema the contract was issued under.
func (s *Stash) SchemaID(contract ident.ContractID) (ident.SchemaID, error) {
	g, err := s.store.Genesis(contract)
	if err != nil {
		return ident.SchemaID{}, err
	}
	return g.Schema, nil
}
