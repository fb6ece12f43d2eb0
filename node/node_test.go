package node

import (
	"testing"

	"contractum.io/stash/ident"
	"contractum.io/stash/seal"
)

func testSchema(t *testing.T) ident.SchemaID {
	t.Helper()
	s, err := ident.DeriveSchemaID([]byte("test schema"))
	if err != nil {
		t.Fatalf("DeriveSchemaID failed: %v", err)
	}
	return s
}

func fungibleAssignment(items ...FungibleItem) Assignment {
	return Assignment{Fungible: items}
}

func revealedItem(vout uint32, sealBlinding, value, valueBlinding uint64) FungibleItem {
	return FungibleItem{
		Seal:  seal.NewRevealed(seal.Revealed{Vout: vout, Blinding: sealBlinding}),
		Value: &FungibleValue{Value: value, Blinding: valueBlinding},
	}
}

func TestIDStableUnderConcealment(t *testing.T) {
	g := &Genesis{
		Schema:  testSchema(t),
		Network: "testnet",
		OwnedRights: OwnedRights{
			{Type: 1, Assignment: fungibleAssignment(revealedItem(0, 10, 1000, 11))},
		},
	}
	before := g.ID()
	concealed := g.Clone()
	if n := concealed.ConcealAll(); n != 1 {
		t.Fatalf("ConcealAll changed %d items, want 1", n)
	}
	if concealed.ID() != before {
		t.Fatalf("identity changed under concealment: %s vs %s", concealed.ID(), before)
	}
}

func TestIDKindSeparation(t *testing.T) {
	// A transition and an extension with structurally similar content
	// must never share an identifier.
	tr := &Transition{Type: 1}
	ex := &Extension{Type: 1}
	if tr.ID() == ex.ID() {
		t.Fatalf("node kinds collided on identifier")
	}
}

func TestIDIgnoresDeclarationOrder(t *testing.T) {
	a := &Transition{
		Type: 2,
		OwnedRights: OwnedRights{
			{Type: 2, Assignment: fungibleAssignment(revealedItem(0, 1, 5, 2))},
			{Type: 1, Assignment: fungibleAssignment(revealedItem(1, 3, 7, 4))},
		},
	}
	b := &Transition{
		Type: 2,
		OwnedRights: OwnedRights{
			{Type: 1, Assignment: fungibleAssignment(revealedItem(1, 3, 7, 4))},
			{Type: 2, Assignment: fungibleAssignment(revealedItem(0, 1, 5, 2))},
		},
	}
	if a.ID() != b.ID() {
		t.Fatalf("rights group declaration order must not affect identity")
	}
}

func TestConcealExceptKeepsExposed(t *testing.T) {
	exposed := revealedItem(0, 100, 42, 7)
	hidden := revealedItem(1, 200, 58, 8)
	tr := &Transition{
		Type:        1,
		OwnedRights: OwnedRights{{Type: 1, Assignment: fungibleAssignment(exposed, hidden)}},
	}

	keep := map[seal.Confidential]struct{}{
		exposed.Seal.Commitment(): {},
	}
	if n := tr.ConcealExcept(keep); n != 1 {
		t.Fatalf("ConcealExcept changed %d items, want 1", n)
	}

	items := tr.OwnedRights[0].Assignment.Fungible
	if !items[0].Seal.IsRevealed() || items[0].Value == nil {
		t.Fatalf("exposed item was concealed")
	}
	if items[1].Seal.IsRevealed() || items[1].Value != nil || items[1].Commitment == nil {
		t.Fatalf("hidden item was not concealed")
	}
}

func TestRevealSeals(t *testing.T) {
	def := seal.Revealed{Vout: 5, Blinding: 77}
	tr := &Transition{
		Type: 1,
		OwnedRights: OwnedRights{
			{Type: 1, Assignment: Assignment{Fungible: []FungibleItem{{
				Seal:  seal.NewConfidential(def.Conceal()),
				Value: &FungibleValue{Value: 9, Blinding: 3},
			}}}},
			// Declarative groups carry no payload and are left alone.
			{Type: 2, Assignment: Assignment{Declarative: []DeclarativeItem{{
				Seal: seal.NewConfidential(seal.Revealed{Vout: 8}.Conceal()),
			}}}},
		},
	}

	if n := tr.RevealSeals([]seal.Revealed{def}); n != 1 {
		t.Fatalf("RevealSeals changed %d items, want 1", n)
	}
	got := tr.OwnedRights[0].Assignment.Fungible[0].Seal
	if !got.IsRevealed() || *got.Revealed != def {
		t.Fatalf("seal not revealed to the known definition")
	}
	if tr.OwnedRights[1].Assignment.Declarative[0].Seal.IsRevealed() {
		t.Fatalf("declarative seal must stay concealed")
	}
}

func TestParentsSortedDeduplicated(t *testing.T) {
	p1, _ := ident.DeriveNodeID([]byte("parent-1"))
	p2, _ := ident.DeriveNodeID([]byte("parent-2"))
	tr := &Transition{
		ParentOwned: ParentOwnedRights{
			{Parent: p2, Type: 1, Indexes: []uint16{0}},
			{Parent: p1, Type: 1, Indexes: []uint16{0}},
			{Parent: p2, Type: 2, Indexes: []uint16{1}},
		},
	}
	parents := tr.Parents()
	if len(parents) != 2 {
		t.Fatalf("got %d parents, want 2", len(parents))
	}
	if parents[1].Less(parents[0]) {
		t.Fatalf("parents not sorted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	tr := &Transition{
		Type:        1,
		Metadata:    Metadata{{Type: 1, Value: []byte{1, 2}}},
		OwnedRights: OwnedRights{{Type: 1, Assignment: fungibleAssignment(revealedItem(0, 1, 2, 3))}},
	}
	c := tr.Clone()
	c.Metadata[0].Value[0] = 0xFF
	c.OwnedRights[0].Assignment.Fungible[0].Value.Value = 999
	if tr.Metadata[0].Value[0] == 0xFF {
		t.Fatalf("metadata aliased after clone")
	}
	if tr.OwnedRights[0].Assignment.Fungible[0].Value.Value == 999 {
		t.Fatalf("assignment state aliased after clone")
	}
}

func TestAnchor(t *testing.T) {
	t1, _ := ident.DeriveNodeID([]byte("t1"))
	t2, _ := ident.DeriveNodeID([]byte("t2"))
	a := &Anchor{Txid: seal.Txid{0xAB}, Proof: []byte{1}, Commits: []ident.NodeID{t2, t1}}
	b := &Anchor{Txid: seal.Txid{0xAB}, Proof: []byte{1}, Commits: []ident.NodeID{t1, t2}}
	if a.ID() != b.ID() {
		t.Fatalf("commit order must not affect anchor identity")
	}
	if !a.CommitsTo(t1) || !a.CommitsTo(t2) {
		t.Fatalf("CommitsTo missed a committed transition")
	}
	other, _ := ident.DeriveNodeID([]byte("t3"))
	if a.CommitsTo(other) {
		t.Fatalf("CommitsTo matched an uncommitted transition")
	}
}
