package node

import (
	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

// Extension is a non-root node extending a contract's public rights
// without being bound to a base-ledger transaction. It references the
// public rights of its parents, carries no anchor, and is immutable
// once authored.
type Extension struct {
	Type         ExtensionType      `cbor:"1,keyasint"`
	Contract     ident.ContractID   `cbor:"2,keyasint"`
	Metadata     Metadata           `cbor:"3,keyasint,omitempty"`
	ParentPublic ParentPublicRights `cbor:"4,keyasint,omitempty"`
	OwnedRights  OwnedRights        `cbor:"5,keyasint,omitempty"`
	PublicRights []RightsType       `cbor:"6,keyasint,omitempty"`
}

func (e *Extension) Kind() Kind { return KindExtension }

func (e *Extension) isNode() {}

func (e *Extension) ID() ident.NodeID {
	c := e.Clone()
	c.normalize()
	c.ConcealAll()
	return deriveID(KindExtension, c)
}

func (e *Extension) Parents() []ident.NodeID {
	return parentUnion(nil, e.ParentPublic)
}

func (e *Extension) ConcealAll() int {
	return ownedConcealExcept(e.OwnedRights, nil)
}

func (e *Extension) ConcealExcept(keep map[seal.Confidential]struct{}) int {
	return ownedConcealExcept(e.OwnedRights, keep)
}

func (e *Extension) RevealSeals(known []seal.Revealed) int {
	return ownedRevealSeals(e.OwnedRights, known)
}

func (e *Extension) Clone() *Extension {
	if e == nil {
		return nil
	}
	return &Extension{
		Type:         e.Type,
		Contract:     e.Contract,
		Metadata:     e.Metadata.clone(),
		ParentPublic: e.ParentPublic.clone(),
		OwnedRights:  e.OwnedRights.clone(),
		PublicRights: clonePublicRights(e.PublicRights),
	}
}

func (e *Extension) CloneNode() Node { return e.Clone() }

func (e *Extension) normalize() {
	e.Metadata.sortByType()
	e.ParentPublic.sort()
	e.OwnedRights.sortByType()
	sortPublicRights(e.PublicRights)
}
