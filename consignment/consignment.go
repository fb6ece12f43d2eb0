// Package consignment defines the transferable proof artifact of the
// stash: a self-contained, ancestor-complete sub-DAG of one contract's
// history, rooted at its genesis.
//
// A consignment is a snapshot. It owns every node it carries (deep
// copies, never references into a stash), so callers may dispose of it
// or mutate it freely without affecting stored state.
package consignment

import (
	"fmt"

	"contractum.io/stash/ident"
	"contractum.io/stash/node"
	"contractum.io/stash/seal"
)

// Endpoint marks one seal-bound assignment of one node as exposed in
// the clear to the recipient.
type Endpoint struct {
	Node ident.NodeID  `cbor:"1,keyasint"`
	Seal seal.Endpoint `cbor:"2,keyasint"`
}

// AnchoredTransition pairs a transition with the anchor committing it.
type AnchoredTransition struct {
	Anchor     *node.Anchor     `cbor:"1,keyasint"`
	Transition *node.Transition `cbor:"2,keyasint"`
}

// Consignment is the proof artifact exchanged between parties.
//
// Invariant: every node referenced (directly or transitively through
// parent rights) by any included transition or extension is itself
// included, or is the genesis. Validate checks this closure.
type Consignment struct {
	Genesis          *node.Genesis        `cbor:"1,keyasint"`
	Endpoints        []Endpoint           `cbor:"2,keyasint,omitempty"`
	StateTransitions []AnchoredTransition `cbor:"3,keyasint,omitempty"`
	StateExtensions  []*node.Extension    `cbor:"4,keyasint,omitempty"`
}

// ContractID returns the contract the consignment proves state for.
func (c *Consignment) ContractID() ident.ContractID {
	return c.Genesis.ContractID()
}

// NodeIDs returns the identifiers of all included non-genesis nodes.
func (c *Consignment) NodeIDs() []ident.NodeID {
	out := make([]ident.NodeID, 0, len(c.StateTransitions)+len(c.StateExtensions))
	for _, at := range c.StateTransitions {
		out = append(out, at.Transition.ID())
	}
	for _, ex := range c.StateExtensions {
		out = append(out, ex.ID())
	}
	return out
}

// Validate checks the structural invariants a recipient relies on:
//
//   - ancestor closure: every parent reference resolves to an included
//     node or to the genesis;
//   - anchoring: every included transition is covered by its paired
//     anchor's commitments.
//
// Semantic validation against the contract's schema is a separate
// engine's concern and is not performed here.
func (c *Consignment) Validate() error {
	if c.Genesis == nil {
		return fmt.Errorf("consignment: missing genesis")
	}
	genesisID := c.Genesis.ID()

	included := make(map[ident.NodeID]struct{}, len(c.StateTransitions)+len(c.StateExtensions))
	for _, at := range c.StateTransitions {
		if at.Transition == nil {
			return fmt.Errorf("consignment: nil transition entry")
		}
		included[at.Transition.ID()] = struct{}{}
	}
	for _, ex := range c.StateExtensions {
		if ex == nil {
			return fmt.Errorf("consignment: nil extension entry")
		}
		included[ex.ID()] = struct{}{}
	}

	checkParents := func(n node.Node) error {
		for _, parent := range n.Parents() {
			if parent == genesisID {
				continue
			}
			if _, ok := included[parent]; !ok {
				return fmt.Errorf("consignment: node %s references parent %s absent from the consignment",
					n.ID(), parent)
			}
		}
		return nil
	}

	for _, at := range c.StateTransitions {
		if at.Anchor == nil {
			return fmt.Errorf("consignment: transition %s has no anchor", at.Transition.ID())
		}
		if !at.Anchor.CommitsTo(at.Transition.ID()) {
			return fmt.Errorf("consignment: anchor %s does not commit transition %s",
				at.Anchor.ID(), at.Transition.ID())
		}
		if err := checkParents(at.Transition); err != nil {
			return err
		}
	}
	for _, ex := range c.StateExtensions {
		if err := checkParents(ex); err != nil {
			return err
		}
	}
	return nil
}
