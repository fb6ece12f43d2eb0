package node

import (
	"sort"

	"contractum.io/stash/seal"
)

// RightsType distinguishes typed groups of rights within a node. The
// meaning of each value is defined by the contract's schema, which is
// outside this module's scope.
type RightsType uint16

// FieldType tags a metadata field; values are schema-defined.
type FieldType uint16

type TransitionType uint16

type ExtensionType uint16

// MetaField is one schema-typed metadata entry.
type MetaField struct {
	Type  FieldType `cbor:"1,keyasint"`
	Value []byte    `cbor:"2,keyasint,omitempty"`
}

// Metadata is kept sorted by field type for canonical encoding.
type Metadata []MetaField

// StateKind is the kind of seal-bound state an assignment group carries.
type StateKind uint8

const (
	StateDeclarative StateKind = iota + 1
	StateFungible
	StateData
)

func (k StateKind) String() string {
	switch k {
	case StateDeclarative:
		return "declarative"
	case StateFungible:
		return "fungible"
	case StateData:
		return "data"
	}
	return "unknown"
}

// DeclarativeItem binds a bare right to a seal. There is no seal-bound
// payload beyond the seal itself.
type DeclarativeItem struct {
	Seal seal.Seal `cbor:"1,keyasint"`
}

// FungibleValue is the revealed state of a fungible item.
type FungibleValue struct {
	Value    uint64 `cbor:"1,keyasint"`
	Blinding uint64 `cbor:"2,keyasint"`
}

// FungibleItem binds a numeric amount to a seal. Exactly one of Value
// (revealed) or Commitment (concealed) is set.
type FungibleItem struct {
	Seal       seal.Seal             `cbor:"1,keyasint"`
	Value      *FungibleValue        `cbor:"2,keyasint,omitempty"`
	Commitment *seal.StateCommitment `cbor:"3,keyasint,omitempty"`
}

// DataItem binds an arbitrary data blob to a seal. Exactly one of Data
// (revealed) or Commitment (concealed) is set.
type DataItem struct {
	Seal       seal.Seal             `cbor:"1,keyasint"`
	Data       []byte                `cbor:"2,keyasint,omitempty"`
	Commitment *seal.StateCommitment `cbor:"3,keyasint,omitempty"`
}

// Assignment is one group of seal-bound state items. Exactly one of
// the three slices is non-nil; the variant in use is the group's state
// kind. Item order is part of the node's content (parent references
// address items by position) and is never re-sorted.
type Assignment struct {
	Declarative []DeclarativeItem `cbor:"1,keyasint,omitempty"`
	Fungible    []FungibleItem    `cbor:"2,keyasint,omitempty"`
	Data        []DataItem        `cbor:"3,keyasint,omitempty"`
}

// RightsAssignment pairs a rights type with its assignment group.
type RightsAssignment struct {
	Type       RightsType `cbor:"1,keyasint"`
	Assignment Assignment `cbor:"2,keyasint"`
}

// OwnedRights is kept sorted by rights type for canonical encoding.
type OwnedRights []RightsAssignment

func (a Assignment) Kind() StateKind {
	switch {
	case a.Declarative != nil:
		return StateDeclarative
	case a.Fungible != nil:
		return StateFungible
	case a.Data != nil:
		return StateData
	}
	return 0
}

// Len returns the number of items in the group.
func (a Assignment) Len() int {
	return len(a.Declarative) + len(a.Fungible) + len(a.Data)
}

func (it DeclarativeItem) conceal() (DeclarativeItem, bool) {
	if !it.Seal.IsRevealed() {
		return it, false
	}
	return DeclarativeItem{Seal: it.Seal.Conceal()}, true
}

func (it FungibleItem) conceal() (FungibleItem, bool) {
	changed := false
	if it.Seal.IsRevealed() {
		it.Seal = it.Seal.Conceal()
		changed = true
	}
	if it.Value != nil {
		c := seal.CommitValue(it.Value.Value, it.Value.Blinding)
		it.Value = nil
		it.Commitment = &c
		changed = true
	}
	return it, changed
}

func (it DataItem) conceal() (DataItem, bool) {
	changed := false
	if it.Seal.IsRevealed() {
		it.Seal = it.Seal.Conceal()
		changed = true
	}
	if it.Commitment == nil {
		c := seal.CommitData(it.Data)
		it.Data = nil
		it.Commitment = &c
		changed = true
	}
	return it, changed
}

// ConcealAll conceals every item in the group, returning the number of
// items changed.
func (a *Assignment) ConcealAll() int {
	return a.concealExcept(nil)
}

// ConcealExcept conceals every item whose seal commitment is not in
// keep, returning the number of items changed.
func (a *Assignment) ConcealExcept(keep map[seal.Confidential]struct{}) int {
	return a.concealExcept(keep)
}

func (a *Assignment) concealExcept(keep map[seal.Confidential]struct{}) int {
	kept := func(s seal.Seal) bool {
		if keep == nil {
			return false
		}
		_, ok := keep[s.Commitment()]
		return ok
	}
	n := 0
	for i, it := range a.Declarative {
		if kept(it.Seal) {
			continue
		}
		if out, changed := it.conceal(); changed {
			a.Declarative[i] = out
			n++
		}
	}
	for i, it := range a.Fungible {
		if kept(it.Seal) {
			continue
		}
		if out, changed := it.conceal(); changed {
			a.Fungible[i] = out
			n++
		}
	}
	for i, it := range a.Data {
		if kept(it.Seal) {
			continue
		}
		if out, changed := it.conceal(); changed {
			a.Data[i] = out
			n++
		}
	}
	return n
}

// RevealSeals replaces concealed seals with their revealed form where a
// known seal's commitment matches. Declarative groups are skipped: they
// carry no seal-bound payload to recover. Returns the number of seals
// revealed.
func (a *Assignment) RevealSeals(known []seal.Revealed) int {
	n := 0
	for i := range a.Fungible {
		if s, changed := a.Fungible[i].Seal.RevealWith(known); changed {
			a.Fungible[i].Seal = s
			n++
		}
	}
	for i := range a.Data {
		if s, changed := a.Data[i].Seal.RevealWith(known); changed {
			a.Data[i].Seal = s
			n++
		}
	}
	return n
}

// Commitments returns the seal commitment of every item, in item order.
func (a Assignment) Commitments() []seal.Confidential {
	out := make([]seal.Confidential, 0, a.Len())
	for _, it := range a.Declarative {
		out = append(out, it.Seal.Commitment())
	}
	for _, it := range a.Fungible {
		out = append(out, it.Seal.Commitment())
	}
	for _, it := range a.Data {
		out = append(out, it.Seal.Commitment())
	}
	return out
}

func (a Assignment) clone() Assignment {
	var out Assignment
	if a.Declarative != nil {
		out.Declarative = make([]DeclarativeItem, len(a.Declarative))
		copy(out.Declarative, a.Declarative)
	}
	if a.Fungible != nil {
		out.Fungible = make([]FungibleItem, len(a.Fungible))
		for i, it := range a.Fungible {
			if it.Value != nil {
				v := *it.Value
				it.Value = &v
			}
			if it.Commitment != nil {
				c := *it.Commitment
				it.Commitment = &c
			}
			out.Fungible[i] = it
		}
	}
	if a.Data != nil {
		out.Data = make([]DataItem, len(a.Data))
		for i, it := range a.Data {
			if it.Data != nil {
				d := make([]byte, len(it.Data))
				copy(d, it.Data)
				it.Data = d
			}
			if it.Commitment != nil {
				c := *it.Commitment
				it.Commitment = &c
			}
			out.Data[i] = it
		}
	}
	return out
}

func (m Metadata) clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for i, f := range m {
		if f.Value != nil {
			v := make([]byte, len(f.Value))
			copy(v, f.Value)
			f.Value = v
		}
		out[i] = f
	}
	return out
}

func (r OwnedRights) clone() OwnedRights {
	if r == nil {
		return nil
	}
	out := make(OwnedRights, len(r))
	for i, ra := range r {
		out[i] = RightsAssignment{Type: ra.Type, Assignment: ra.Assignment.clone()}
	}
	return out
}

func (r OwnedRights) sortByType() {
	sort.Slice(r, func(i, j int) bool { return r[i].Type < r[j].Type })
}

func (m Metadata) sortByType() {
	sort.Slice(m, func(i, j int) bool { return m[i].Type < m[j].Type })
}

func clonePublicRights(r []RightsType) []RightsType {
	if r == nil {
		return nil
	}
	out := make([]RightsType, len(r))
	copy(out, r)
	return out
}

func sortPublicRights(r []RightsType) {
	sort.Slice(r, func(i, j int) bool { return r[i] < r[j] })
}
