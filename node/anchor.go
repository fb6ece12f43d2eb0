package node

import (
	"sort"

	"contractum.io/stash/codec"
	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

// Anchor is the commitment structure binding one or more transitions
// to a base-ledger transaction. The physical commitment scheme is
// opaque at this layer: Proof carries whatever bytes the scheme's
// verifier needs, and Commits lists the transitions covered, so a
// single anchor can aggregate a batch commitment.
type Anchor struct {
	Txid    seal.Txid      `cbor:"1,keyasint"`
	Proof   []byte         `cbor:"2,keyasint,omitempty"`
	Commits []ident.NodeID `cbor:"3,keyasint"`
}

func (a *Anchor) ID() ident.AnchorID {
	c := a.Clone()
	c.normalize()
	canonical, err := codec.Marshal(c)
	if err != nil {
		panic("node: canonical anchor encoding failed: " + err.Error())
	}
	id, err := ident.DeriveAnchorID(canonical)
	if err != nil {
		panic("node: deriving anchor id: " + err.Error())
	}
	return id
}

// CommitsTo reports whether the anchor covers the given transition.
func (a *Anchor) CommitsTo(id ident.NodeID) bool {
	for _, c := range a.Commits {
		if c == id {
			return true
		}
	}
	return false
}

func (a *Anchor) Clone() *Anchor {
	if a == nil {
		return nil
	}
	out := &Anchor{Txid: a.Txid}
	if a.Proof != nil {
		out.Proof = make([]byte, len(a.Proof))
		copy(out.Proof, a.Proof)
	}
	if a.Commits != nil {
		out.Commits = make([]ident.NodeID, len(a.Commits))
		copy(out.Commits, a.Commits)
	}
	return out
}

func (a *Anchor) normalize() {
	sort.Slice(a.Commits, func(i, j int) bool { return a.Commits[i].Less(a.Commits[j]) })
}
