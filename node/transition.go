package node

import (
	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

// Transition is a non-root node consuming owned rights of its parents.
// Every transition must be anchored: bound to exactly one Anchor that
// proves its acceptance at a specific point of base-ledger history. It
// becomes immutable once committed to that anchor.
type Transition struct {
	Type         TransitionType    `cbor:"1,keyasint"`
	Metadata     Metadata          `cbor:"2,keyasint,omitempty"`
	ParentOwned  ParentOwnedRights `cbor:"3,keyasint,omitempty"`
	OwnedRights  OwnedRights       `cbor:"4,keyasint,omitempty"`
	PublicRights []RightsType      `cbor:"5,keyasint,omitempty"`
}

func (t *Transition) Kind() Kind { return KindTransition }

func (t *Transition) isNode() {}

func (t *Transition) ID() ident.NodeID {
	c := t.Clone()
	c.normalize()
	c.ConcealAll()
	return deriveID(KindTransition, c)
}

func (t *Transition) Parents() []ident.NodeID {
	return parentUnion(t.ParentOwned, nil)
}

func (t *Transition) ConcealAll() int {
	return ownedConcealExcept(t.OwnedRights, nil)
}

func (t *Transition) ConcealExcept(keep map[seal.Confidential]struct{}) int {
	return ownedConcealExcept(t.OwnedRights, keep)
}

func (t *Transition) RevealSeals(known []seal.Revealed) int {
	return ownedRevealSeals(t.OwnedRights, known)
}

func (t *Transition) Clone() *Transition {
	if t == nil {
		return nil
	}
	return &Transition{
		Type:         t.Type,
		Metadata:     t.Metadata.clone(),
		ParentOwned:  t.ParentOwned.clone(),
		OwnedRights:  t.OwnedRights.clone(),
		PublicRights: clonePublicRights(t.PublicRights),
	}
}

func (t *Transition) CloneNode() Node { return t.Clone() }

func (t *Transition) normalize() {
	t.Metadata.sortByType()
	t.ParentOwned.sort()
	t.OwnedRights.sortByType()
	sortPublicRights(t.PublicRights)
}
