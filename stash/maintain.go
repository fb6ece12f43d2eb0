package stash

import (
	"errors"
	"fmt"

	"contractum.io/stash/consignment"
	"contractum.io/stash/ident"
	"contractum.io/stash/index"
	"contractum.io/stash/node"
)

// Forget removes the nodes a stale consignment carried, so far as the
// rest of the stash permits.
//
// Policy: a transition or extension listed in the consignment is
// removed only when no stored node outside the consignment references
// it as a parent; genesis is never removed. Index entries of removed
// transitions are dropped, and anchors left committing no stored
// transition are dropped with them. Returns the number of removed
// nodes.
func (s *Stash) Forget(c *consignment.Consignment) (int, error) {
	if c == nil {
		return 0, nil
	}

	inside := make(map[ident.NodeID]struct{})
	for _, id := range c.NodeIDs() {
		inside[id] = struct{}{}
	}

	// Parents referenced by any stored node outside the consignment.
	referenced := make(map[ident.NodeID]struct{})
	collect := func(n node.Node) {
		if _, ok := inside[n.ID()]; ok {
			return
		}
		for _, p := range n.Parents() {
			referenced[p] = struct{}{}
		}
	}
	if err := s.store.ForEachTransition(func(t *node.Transition) error {
		collect(t)
		return nil
	}); err != nil {
		return 0, err
	}
	if err := s.store.ForEachExtension(func(e *node.Extension) error {
		collect(e)
		return nil
	}); err != nil {
		return 0, err
	}

	removed := 0
	for _, at := range c.StateTransitions {
		id := at.Transition.ID()
		if _, ok := referenced[id]; ok {
			continue
		}
		if !s.store.HasTransition(id) {
			continue
		}
		if err := s.store.RemoveTransition(id); err != nil {
			return removed, fmt.Errorf("stash: forgetting transition %s: %w", id, err)
		}
		if err := s.index.Remove(id); err != nil {
			return removed, fmt.Errorf("stash: unindexing transition %s: %w", id, err)
		}
		removed++
	}
	for _, ex := range c.StateExtensions {
		id := ex.ID()
		if _, ok := referenced[id]; ok {
			continue
		}
		if !s.store.HasExtension(id) {
			continue
		}
		if err := s.store.RemoveExtension(id); err != nil {
			return removed, fmt.Errorf("stash: forgetting extension %s: %w", id, err)
		}
		removed++
	}

	if err := s.dropOrphanAnchors(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Prune garbage-collects unverifiable history: nodes whose parent
// chain no longer reaches a stored genesis, and transitions with no
// index entry (no known anchor means the commitment can never be
// checked). Returns the number of removed nodes.
func (s *Stash) Prune() (int, error) {
	type entry struct {
		parents    []ident.NodeID
		transition bool
	}
	nodes := make(map[ident.NodeID]entry)

	live := make(map[ident.NodeID]struct{})
	if err := s.store.ForEachGenesis(func(g *node.Genesis) error {
		live[g.ID()] = struct{}{}
		return nil
	}); err != nil {
		return 0, err
	}
	if err := s.store.ForEachTransition(func(t *node.Transition) error {
		nodes[t.ID()] = entry{parents: t.Parents(), transition: true}
		return nil
	}); err != nil {
		return 0, err
	}
	if err := s.store.ForEachExtension(func(e *node.Extension) error {
		nodes[e.ID()] = entry{parents: e.Parents()}
		return nil
	}); err != nil {
		return 0, err
	}

	// A node is live when every parent is live; fixpoint because the
	// enumeration order is unrelated to graph depth.
	for changed := true; changed; {
		changed = false
		for id, e := range nodes {
			if _, ok := live[id]; ok {
				continue
			}
			if len(e.parents) == 0 {
				continue
			}
			allLive := true
			for _, p := range e.parents {
				if _, ok := live[p]; !ok {
					allLive = false
					break
				}
			}
			if allLive {
				live[id] = struct{}{}
				changed = true
			}
		}
	}

	removed := 0
	for id, e := range nodes {
		keep := false
		if _, ok := live[id]; ok {
			keep = true
		}
		if keep && e.transition {
			if _, err := s.index.AnchorID(id); err != nil {
				if !errors.Is(err, index.ErrNotFound) {
					return removed, err
				}
				keep = false
			}
		}
		if keep {
			continue
		}
		if e.transition {
			if err := s.store.RemoveTransition(id); err != nil {
				return removed, fmt.Errorf("stash: pruning transition %s: %w", id, err)
			}
			if err := s.index.Remove(id); err != nil {
				return removed, fmt.Errorf("stash: unindexing transition %s: %w", id, err)
			}
		} else {
			if err := s.store.RemoveExtension(id); err != nil {
				return removed, fmt.Errorf("stash: pruning extension %s: %w", id, err)
			}
		}
		removed++
	}

	if err := s.dropOrphanAnchors(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Disclose produces the public-disclosure artifact: every stored
// anchored transition and every extension, fully concealed.
func (s *Stash) Disclose() (*consignment.Disclosure, error) {
	d := &consignment.Disclosure{}

	err := s.store.ForEachTransition(func(t *node.Transition) error {
		anchorID, err := s.index.AnchorID(t.ID())
		if err != nil {
			if errors.Is(err, index.ErrNotFound) {
				// Unanchored transitions prove nothing publicly.
				return nil
			}
			return err
		}
		a, err := s.store.Anchor(anchorID)
		if err != nil {
			return fmt.Errorf("stash: loading anchor %s: %w", anchorID, err)
		}
		t.ConcealAll()
		d.StateTransitions = append(d.StateTransitions,
			consignment.AnchoredTransition{Anchor: a, Transition: t})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.store.ForEachExtension(func(e *node.Extension) error {
		e.ConcealAll()
		d.StateExtensions = append(d.StateExtensions, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}

// dropOrphanAnchors removes anchors whose commitments no longer cover
// any stored transition.
func (s *Stash) dropOrphanAnchors() error {
	var orphans []ident.AnchorID
	err := s.store.ForEachAnchor(func(a *node.Anchor) error {
		for _, id := range a.Commits {
			if s.store.HasTransition(id) {
				return nil
			}
		}
		orphans = append(orphans, a.ID())
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range orphans {
		if err := s.store.RemoveAnchor(id); err != nil {
			return fmt.Errorf("stash: dropping orphan anchor %s: %w", id, err)
		}
	}
	return nil
}
