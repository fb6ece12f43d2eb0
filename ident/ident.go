// Package ident defines the content-addressed identifier types of the
// contract graph: contracts, schemata, graph nodes and anchors.
//
// All identifiers are CIDv1 ("raw" multicodec, sha2-256 multihash)
// derived from canonical bytes. They are pure value types: comparable,
// ordered by their binary encoding, and carry no behavior beyond
// derivation, parsing and formatting.
package ident

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// digest computes the CIDv1 (raw + sha2-256) for canonical bytes.
func digest(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// NodeID identifies one node (genesis, transition or extension) in the
// contract graph. It is derived from the canonical encoding of the
// node's fully concealed form, so a node's identity never changes when
// assignment data is concealed or revealed.
type NodeID struct{ cid.Cid }

// ContractID identifies a contract. It equals the NodeID of the
// contract's genesis, re-tagged.
type ContractID struct{ cid.Cid }

// SchemaID identifies the schema a genesis commits to.
type SchemaID struct{ cid.Cid }

// AnchorID identifies an anchor by its canonical content.
type AnchorID struct{ cid.Cid }

func DeriveNodeID(canonical []byte) (NodeID, error) {
	c, err := digest(canonical)
	if err != nil {
		return NodeID{}, fmt.Errorf("ident: deriving node id: %w", err)
	}
	return NodeID{c}, nil
}

func DeriveSchemaID(canonical []byte) (SchemaID, error) {
	c, err := digest(canonical)
	if err != nil {
		return SchemaID{}, fmt.Errorf("ident: deriving schema id: %w", err)
	}
	return SchemaID{c}, nil
}

func DeriveAnchorID(canonical []byte) (AnchorID, error) {
	c, err := digest(canonical)
	if err != nil {
		return AnchorID{}, fmt.Errorf("ident: deriving anchor id: %w", err)
	}
	return AnchorID{c}, nil
}

func ParseNodeID(s string) (NodeID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("ident: parsing node id %q: %w", s, err)
	}
	return NodeID{c}, nil
}

func ParseContractID(s string) (ContractID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return ContractID{}, fmt.Errorf("ident: parsing contract id %q: %w", s, err)
	}
	return ContractID{c}, nil
}

func ParseSchemaID(s string) (SchemaID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return SchemaID{}, fmt.Errorf("ident: parsing schema id %q: %w", s, err)
	}
	return SchemaID{c}, nil
}

func ParseAnchorID(s string) (AnchorID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return AnchorID{}, fmt.Errorf("ident: parsing anchor id %q: %w", s, err)
	}
	return AnchorID{c}, nil
}

// NodeIDFromBytes decodes the binary encoding produced by Bytes.

func NodeIDFromBytes(b []byte) (NodeID, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return NodeID{}, fmt.Errorf("ident: casting node id: %w", err)
	}
	return NodeID{c}, nil
}

func AnchorIDFromBytes(b []byte) (AnchorID, error) {
	c, err := cid.Cast(b)
	if err != nil {
		return AnchorID{}, fmt.Errorf("ident: casting anchor id: %w", err)
	}
	return AnchorID{c}, nil
}

// ContractID re-tags a genesis node identifier as a contract identifier.
func (id NodeID) ContractID() ContractID { return ContractID{id.Cid} }

// NodeID re-tags a contract identifier as its genesis node identifier.
func (id ContractID) NodeID() NodeID { return NodeID{id.Cid} }

func (id NodeID) Less(other NodeID) bool {
	return bytes.Compare(id.Bytes(), other.Bytes()) < 0
}

func (id ContractID) Less(other ContractID) bool {
	return bytes.Compare(id.Bytes(), other.Bytes()) < 0
}

func (id AnchorID) Less(other AnchorID) bool {
	return bytes.Compare(id.Bytes(), other.Bytes()) < 0
}
