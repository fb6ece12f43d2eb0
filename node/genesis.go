package node

import (
	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

// Genesis is the unique root node of a contract. It commits to the
// schema governing the contract and defines the contract's identifier
// as its own node identifier. A genesis has no parents and is
// immutable from the moment the contract is issued.
type Genesis struct {
	Schema       ident.SchemaID `cbor:"1,keyasint"`
	Network      string         `cbor:"2,keyasint"`
	Metadata     Metadata       `cbor:"3,keyasint,omitempty"`
	OwnedRights  OwnedRights    `cbor:"4,keyasint,omitempty"`
	PublicRights []RightsType   `cbor:"5,keyasint,omitempty"`
}

func (g *Genesis) Kind() Kind { return KindGenesis }

func (g *Genesis) isNode() {}

func (g *Genesis) ID() ident.NodeID {
	c := g.Clone()
	c.normalize()
	c.ConcealAll()
	return deriveID(KindGenesis, c)
}

// ContractID is the genesis identifier re-tagged.
func (g *Genesis) ContractID() ident.ContractID {
	return g.ID().ContractID()
}

func (g *Genesis) Parents() []ident.NodeID { return nil }

func (g *Genesis) ConcealAll() int {
	return ownedConcealExcept(g.OwnedRights, nil)
}

func (g *Genesis) ConcealExcept(keep map[seal.Confidential]struct{}) int {
	return ownedConcealExcept(g.OwnedRights, keep)
}

func (g *Genesis) RevealSeals(known []seal.Revealed) int {
	return ownedRevealSeals(g.OwnedRights, known)
}

func (g *Genesis) Clone() *Genesis {
	if g == nil {
		return nil
	}
	return &Genesis{
		Schema:       g.Schema,
		Network:      g.Network,
		Metadata:     g.Metadata.clone(),
		OwnedRights:  g.OwnedRights.clone(),
		PublicRights: clonePublicRights(g.PublicRights),
	}
}

func (g *Genesis) CloneNode() Node { return g.Clone() }

func (g *Genesis) normalize() {
	g.Metadata.sortByType()
	g.OwnedRights.sortByType()
	sortPublicRights(g.PublicRights)
}
