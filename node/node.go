// Package node defines the contract state graph's vertex types —
// Genesis, Transition and Extension — together with the Anchor that
// binds a transition to the base ledger.
//
// The three node kinds form a closed sum: Node is implemented by
// exactly *Genesis, *Transition and *Extension, and callers switch
// exhaustively on the concrete type. Parent references are stored as
// identifiers, never as pointers; the graph is an arena keyed by
// content-addressed NodeID and resolved through storage on demand.
//
// A node's identifier is derived from the canonical encoding of its
// fully concealed form, so concealing or revealing assignment data
// never changes which node it is.
package node

import (
	"sort"

	"contractum.io/stash/codec"
	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

// Kind tags the three node variants.
type Kind uint8

const (
	KindGenesis Kind = iota + 1
	KindTransition
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindGenesis:
		return "genesis"
	case KindTransition:
		return "transition"
	case KindExtension:
		return "extension"
	}
	return "unknown"
}

// Node is the closed interface over the three vertex kinds.
type Node interface {
	Kind() Kind
	ID() ident.NodeID

	// Parents returns the sorted, deduplicated union of all parent
	// node identifiers referenced through owned and public rights.
	Parents() []ident.NodeID

	// ConcealAll conceals every assignment item; ConcealExcept keeps
	// items whose seal commitment is in keep revealed. RevealSeals
	// reveals concealed seals matching a known pre-image. Each returns
	// the number of items changed.
	ConcealAll() int
	ConcealExcept(keep map[seal.Confidential]struct{}) int
	RevealSeals(known []seal.Revealed) int

	// CloneNode deep-copies the node.
	CloneNode() Node

	isNode()
}

var (
	_ Node = (*Genesis)(nil)
	_ Node = (*Transition)(nil)
	_ Node = (*Extension)(nil)
)

// ParentOwned references consumed state: specific items (by position)
// of one rights group of a parent node.
type ParentOwned struct {
	Parent  ident.NodeID `cbor:"1,keyasint"`
	Type    RightsType   `cbor:"2,keyasint"`
	Indexes []uint16     `cbor:"3,keyasint,omitempty"`
}

// ParentOwnedRights is kept sorted by (parent, type).
type ParentOwnedRights []ParentOwned

// ParentPublic references observed (not consumed) public rights of a
// parent node.
type ParentPublic struct {
	Parent ident.NodeID `cbor:"1,keyasint"`
	Type   RightsType   `cbor:"2,keyasint"`
}

// ParentPublicRights is kept sorted by (parent, type).
type ParentPublicRights []ParentPublic

func (p ParentOwnedRights) clone() ParentOwnedRights {
	if p == nil {
		return nil
	}
	out := make(ParentOwnedRights, len(p))
	for i, po := range p {
		if po.Indexes != nil {
			idx := make([]uint16, len(po.Indexes))
			copy(idx, po.Indexes)
			po.Indexes = idx
		}
		out[i] = po
	}
	return out
}

func (p ParentPublicRights) clone() ParentPublicRights {
	if p == nil {
		return nil
	}
	out := make(ParentPublicRights, len(p))
	copy(out, p)
	return out
}

func (p ParentOwnedRights) sort() {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Parent != p[j].Parent {
			return p[i].Parent.Less(p[j].Parent)
		}
		return p[i].Type < p[j].Type
	})
	for _, po := range p {
		sort.Slice(po.Indexes, func(i, j int) bool { return po.Indexes[i] < po.Indexes[j] })
	}
}

func (p ParentPublicRights) sort() {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Parent != p[j].Parent {
			return p[i].Parent.Less(p[j].Parent)
		}
		return p[i].Type < p[j].Type
	})
}

// parentUnion merges parent references into a sorted, deduplicated set.
func parentUnion(owned ParentOwnedRights, public ParentPublicRights) []ident.NodeID {
	seen := make(map[ident.NodeID]struct{}, len(owned)+len(public))
	out := make([]ident.NodeID, 0, len(owned)+len(public))
	for _, po := range owned {
		if _, ok := seen[po.Parent]; ok {
			continue
		}
		seen[po.Parent] = struct{}{}
		out = append(out, po.Parent)
	}
	for _, pp := range public {
		if _, ok := seen[pp.Parent]; ok {
			continue
		}
		seen[pp.Parent] = struct{}{}
		out = append(out, pp.Parent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// canonicalNode wraps a concealed node with its kind tag so encodings
// of different kinds can never collide.
type canonicalNode struct {
	Kind uint8 `cbor:"0,keyasint"`
	Node any   `cbor:"1,keyasint"`
}

func deriveID(kind Kind, concealed any) ident.NodeID {
	canonical, err := codec.Marshal(canonicalNode{Kind: uint8(kind), Node: concealed})
	if err != nil {
		panic("node: canonical encoding failed: " + err.Error())
	}
	id, err := ident.DeriveNodeID(canonical)
	if err != nil {
		panic("node: deriving node id: " + err.Error())
	}
	return id
}

// ownedConcealExcept applies concealExcept across a rights slice.
func ownedConcealExcept(rights OwnedRights, keep map[seal.Confidential]struct{}) int {
	n := 0
	for i := range rights {
		n += rights[i].Assignment.concealExcept(keep)
	}
	return n
}

func ownedRevealSeals(rights OwnedRights, known []seal.Revealed) int {
	n := 0
	for i := range rights {
		n += rights[i].Assignment.RevealSeals(known)
	}
	return n
}
