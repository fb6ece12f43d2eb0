package stash_test

import (
	"errors"
	"testing"

	"contractum.io/stash/consignment"
	"contractum.io/stash/ident"
	"contractum.io/stash/index"
	"contractum.io/stash/node"
	"contractum.io/stash/seal"
	"contractum.io/stash/stash"
	"contractum.io/stash/storage"
	"contractum.io/stash/storage/memkv"
)

const (
	rightAssets node.RightsType = 1
	rightPublic node.RightsType = 9
)

func newStash(t *testing.T, opts ...stash.Option) (*stash.Stash, storage.Store, index.Index) {
	t.Helper()
	store := storage.New(memkv.New())
	ix := index.NewMemory()
	return stash.New(store, ix, opts...), store, ix
}

func fungible(items ...node.FungibleItem) node.Assignment {
	return node.Assignment{Fungible: items}
}

func item(vout uint32, sealBlinding, value, valueBlinding uint64) node.FungibleItem {
	return node.FungibleItem{
		Seal:  seal.NewRevealed(seal.Revealed{Vout: vout, Blinding: sealBlinding}),
		Value: &node.FungibleValue{Value: value, Blinding: valueBlinding},
	}
}

func anchorFor(txidByte byte, ids ...ident.NodeID) *node.Anchor {
	return &node.Anchor{
		Txid:    seal.Txid{txidByte},
		Proof:   []byte{0xaa, txidByte},
		Commits: ids,
	}
}

// graph is a synthetic three-level contract history with a diamond:
//
//	G ── T1 ── T2 ── T3
//	      └────────── T3   (T3 consumes rights of both T1 and T2)
//	G ── E1                (extension observing G's public rights)
type graph struct {
	g          *node.Genesis
	t1, t2, t3 *node.Transition
	e1         *node.Extension
	a1, a2, a3 *node.Anchor
}

func buildGraph(t *testing.T) *graph {
	t.Helper()
	schema, err := ident.DeriveSchemaID([]byte("stash test schema"))
	if err != nil {
		t.Fatalf("DeriveSchemaID: %v", err)
	}

	g := &node.Genesis{
		Schema:  schema,
		Network: "testnet",
		OwnedRights: node.OwnedRights{
			{Type: rightAssets, Assignment: fungible(item(0, 1, 1000, 2))},
		},
		PublicRights: []node.RightsType{rightPublic},
	}

	t1 := &node.Transition{
		Type:        1,
		ParentOwned: node.ParentOwnedRights{{Parent: g.ID(), Type: rightAssets, Indexes: []uint16{0}}},
		OwnedRights: node.OwnedRights{
			{Type: rightAssets, Assignment: fungible(item(0, 11, 600, 12), item(1, 13, 400, 14))},
		},
	}
	t2 := &node.Transition{
		Type:        1,
		ParentOwned: node.ParentOwnedRights{{Parent: t1.ID(), Type: rightAssets, Indexes: []uint16{0}}},
		OwnedRights: node.OwnedRights{
			{Type: rightAssets, Assignment: fungible(item(0, 21, 600, 22))},
		},
	}
	t3 := &node.Transition{
		Type: 1,
		ParentOwned: node.ParentOwnedRights{
			{Parent: t1.ID(), Type: rightAssets, Indexes: []uint16{1}},
			{Parent: t2.ID(), Type: rightAssets, Indexes: []uint16{0}},
		},
		OwnedRights: node.OwnedRights{
			{Type: rightAssets, Assignment: fungible(item(0, 31, 700, 32), item(1, 33, 300, 34))},
		},
	}
	e1 := &node.Extension{
		Type:         2,
		Contract:     g.ContractID(),
		ParentPublic: node.ParentPublicRights{{Parent: g.ID(), Type: rightPublic}},
		OwnedRights: node.OwnedRights{
			{Type: rightAssets, Assignment: fungible(item(2, 41, 50, 42))},
		},
	}

	return &graph{
		g: g, t1: t1, t2: t2, t3: t3, e1: e1,
		a1: anchorFor(1, t1.ID()),
		a2: anchorFor(2, t2.ID()),
		a3: anchorFor(3, t3.ID()),
	}
}

// seedAncestors stores G, T1, T2 and their anchors, leaving T3 as the
// in-flight node a caller would consign.
func seedAncestors(t *testing.T, store storage.Store, ix index.Index, gr *graph) {
	t.Helper()
	if err := store.AddGenesis(gr.g); err != nil {
		t.Fatalf("AddGenesis: %v", err)
	}
	for _, pair := range []struct {
		tr *node.Transition
		a  *node.Anchor
	}{{gr.t1, gr.a1}, {gr.t2, gr.a2}} {
		if err := store.AddTransition(pair.tr); err != nil {
			t.Fatalf("AddTransition: %v", err)
		}
		if err := store.AddAnchor(pair.a); err != nil {
			t.Fatalf("AddAnchor: %v", err)
		}
		if err := ix.Insert(pair.tr.ID(), pair.a.ID()); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
}

func exposeFirstItem(tr *node.Transition) []seal.Endpoint {
	it := tr.OwnedRights[0].Assignment.Fungible[0]
	return []seal.Endpoint{
		seal.EndpointFromWitnessVout(it.Seal.Revealed.Vout, it.Seal.Revealed.Blinding),
	}
}

func TestConsignClosure(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	cons, err := s.Consign(gr.g.ContractID(), gr.t3, gr.a3, exposeFirstItem(gr.t3))
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}
	if err := cons.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	included := map[ident.NodeID]bool{}
	for _, at := range cons.StateTransitions {
		included[at.Transition.ID()] = true
	}
	for _, want := range []ident.NodeID{gr.t1.ID(), gr.t2.ID(), gr.t3.ID()} {
		if !included[want] {
			t.Fatalf("consignment misses %s", want)
		}
	}
	if cons.Genesis.ContractID() != gr.g.ContractID() {
		t.Fatalf("wrong genesis in consignment")
	}
}

func TestConsignDiamondIncludedOnce(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	cons, err := s.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}
	count := 0
	for _, at := range cons.StateTransitions {
		if at.Transition.ID() == gr.t1.ID() {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("diamond ancestor included %d times, want 1", count)
	}
}

func TestConsignConcealment(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	expose := exposeFirstItem(gr.t3)
	cons, err := s.Consign(gr.g.ContractID(), gr.t3, gr.a3, expose)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}

	exposedCommit := expose[0].Conceal()
	for _, at := range cons.StateTransitions {
		target := at.Transition.ID() == gr.t3.ID()
		for _, rights := range at.Transition.OwnedRights {
			for _, it := range rights.Assignment.Fungible {
				if target && it.Seal.Commitment() == exposedCommit {
					if !it.Seal.IsRevealed() || it.Value == nil {
						t.Fatalf("exposed item of target was concealed")
					}
					continue
				}
				if it.Seal.IsRevealed() {
					t.Fatalf("item of %s left revealed", at.Transition.ID())
				}
				if it.Value != nil {
					t.Fatalf("revealed payload of %s present in output", at.Transition.ID())
				}
			}
		}
	}
}

func TestConsignGenesisFails(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	if _, err := s.Consign(gr.g.ContractID(), gr.g, nil, nil); !errors.Is(err, stash.ErrGenesisNode) {
		t.Fatalf("Consign(genesis): got %v want ErrGenesisNode", err)
	}
}

func TestConsignTransitionRequiresAnchor(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	if _, err := s.Consign(gr.g.ContractID(), gr.t3, nil, nil); !errors.Is(err, stash.ErrAnchorRequired) {
		t.Fatalf("Consign without anchor: got %v want ErrAnchorRequired", err)
	}
}

func TestConsignBrokenChainFails(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	if err := store.RemoveTransition(gr.t1.ID()); err != nil {
		t.Fatalf("RemoveTransition: %v", err)
	}
	_, err := s.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if !storage.IsNotFound(err) {
		t.Fatalf("Consign over broken chain: got %v want wrapped ErrNotFound", err)
	}
}

func TestConsignExtensionNeedsNoAnchor(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	cons, err := s.Consign(gr.g.ContractID(), gr.e1, nil, nil)
	if err != nil {
		t.Fatalf("Consign(extension): %v", err)
	}
	if len(cons.StateExtensions) != 1 || cons.StateExtensions[0].ID() != gr.e1.ID() {
		t.Fatalf("extension missing from its own consignment")
	}
	if len(cons.StateTransitions) != 0 {
		t.Fatalf("extension rooted at genesis dragged in %d transitions", len(cons.StateTransitions))
	}
}

func TestConsignTraversalLimit(t *testing.T) {
	s, store, ix := newStash(t, stash.WithMaxTraversal(1))
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	if _, err := s.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil); !errors.Is(err, stash.ErrTraversalLimit) {
		t.Fatalf("Consign with tiny limit: got %v want ErrTraversalLimit", err)
	}
}

func TestMergeRoundTrip(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	expose := exposeFirstItem(gr.t3)
	consA, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, expose)
	if err != nil {
		t.Fatalf("Consign(A): %v", err)
	}

	b, _, _ := newStash(t)
	if err := b.Merge(consA, nil); err != nil {
		t.Fatalf("Merge(B): %v", err)
	}

	consB, err := b.Consign(gr.g.ContractID(), gr.t3, gr.a3, expose)
	if err != nil {
		t.Fatalf("Consign(B): %v", err)
	}

	idSet := func(c *consignment.Consignment) map[ident.NodeID]bool {
		m := map[ident.NodeID]bool{}
		for _, id := range c.NodeIDs() {
			m[id] = true
		}
		return m
	}
	setA, setB := idSet(consA), idSet(consB)
	if len(setA) != len(setB) {
		t.Fatalf("consignments differ in size: %d vs %d", len(setA), len(setB))
	}
	for id := range setA {
		if !setB[id] {
			t.Fatalf("re-consignment misses %s", id)
		}
	}
	if consB.Genesis.ID() != consA.Genesis.ID() {
		t.Fatalf("genesis identity changed across round trip")
	}
	if len(consB.Endpoints) != len(consA.Endpoints) {
		t.Fatalf("endpoints differ: %d vs %d", len(consA.Endpoints), len(consB.Endpoints))
	}
}

func TestMergeIdempotent(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	cons, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}

	b, _, _ := newStash(t)
	if err := b.Merge(cons, nil); err != nil {
		t.Fatalf("Merge(1): %v", err)
	}
	first, err := b.NodeIDs()
	if err != nil {
		t.Fatalf("NodeIDs: %v", err)
	}

	if err := b.Merge(cons, nil); err != nil {
		t.Fatalf("Merge(2): %v", err)
	}
	second, err := b.NodeIDs()
	if err != nil {
		t.Fatalf("NodeIDs: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("second merge changed stored state: %d vs %d nodes", len(first), len(second))
	}
}

func TestMergeRevealsKnownSeals(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	// The receiving party generated this seal (e.g. via an invoice)
	// and knows its pre-image.
	mine := gr.t3.OwnedRights[0].Assignment.Fungible[1].Seal.Revealed

	cons, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}

	b, storeB, _ := newStash(t)
	if err := b.Merge(cons, []seal.Revealed{*mine}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	stored, err := storeB.Transition(gr.t3.ID())
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	var revealed int
	for _, rights := range stored.OwnedRights {
		for _, it := range rights.Assignment.Fungible {
			if it.Seal.IsRevealed() {
				revealed++
				if it.Seal.Commitment() != mine.Conceal() {
					t.Fatalf("wrong seal revealed")
				}
			}
		}
	}
	if revealed != 1 {
		t.Fatalf("revealed %d seals, want 1", revealed)
	}
}

func TestScenario(t *testing.T) {
	// Genesis issues the contract; T1, anchored by A1, references G as
	// parent; consigning T1 with one exposed endpoint returns exactly
	// {G, [(T1,e1)], [(A1,T1)], []}.
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)

	expose := exposeFirstItem(gr.t1)
	cons, err := s.Consign(gr.g.ContractID(), gr.t1, gr.a1, expose)
	if err != nil {
		t.Fatalf("Consign(T1): %v", err)
	}
	if cons.Genesis.ID() != gr.g.ID() {
		t.Fatalf("wrong genesis")
	}
	if len(cons.Endpoints) != 1 || cons.Endpoints[0].Node != gr.t1.ID() {
		t.Fatalf("wrong endpoints: %+v", cons.Endpoints)
	}
	if len(cons.StateTransitions) != 1 {
		t.Fatalf("expected exactly one transition, got %d", len(cons.StateTransitions))
	}
	at := cons.StateTransitions[0]
	if at.Transition.ID() != gr.t1.ID() || at.Anchor.ID() != gr.a1.ID() {
		t.Fatalf("wrong anchored transition")
	}
	if len(cons.StateExtensions) != 0 {
		t.Fatalf("unexpected extensions")
	}

	if _, err := s.Consign(gr.g.ContractID(), gr.g, nil, nil); !errors.Is(err, stash.ErrGenesisNode) {
		t.Fatalf("Consign(G): got %v want ErrGenesisNode", err)
	}
	if _, err := s.Consign(gr.g.ContractID(), gr.t1, nil, expose); !errors.Is(err, stash.ErrAnchorRequired) {
		t.Fatalf("Consign(T1, no anchor): got %v want ErrAnchorRequired", err)
	}
}

func TestIterators(t *testing.T) {
	s, store, ix := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, store, ix, gr)
	if err := store.AddExtension(gr.e1); err != nil {
		t.Fatalf("AddExtension: %v", err)
	}

	countTransitions := func() int {
		it, err := s.TransitionIter()
		if err != nil {
			t.Fatalf("TransitionIter: %v", err)
		}
		n := 0
		for it.Next() {
			if it.Transition() == nil {
				t.Fatalf("nil transition from iterator")
			}
			n++
		}
		if it.Err() != nil {
			t.Fatalf("iterator error: %v", it.Err())
		}
		return n
	}

	if n := countTransitions(); n != 2 {
		t.Fatalf("transition iterator visited %d, want 2", n)
	}
	// Restartable: a fresh iterator sees the same state again.
	if n := countTransitions(); n != 2 {
		t.Fatalf("restarted iterator visited %d, want 2", n)
	}

	git, err := s.GenesisIter()
	if err != nil {
		t.Fatalf("GenesisIter: %v", err)
	}
	if !git.Next() || git.Genesis().ContractID() != gr.g.ContractID() {
		t.Fatalf("genesis iterator broken")
	}
	if git.Next() {
		t.Fatalf("genesis iterator returned more than one entry")
	}

	ids, err := s.NodeIDs()
	if err != nil {
		t.Fatalf("NodeIDs: %v", err)
	}
	if len(ids) != 4 { // G, T1, T2, E1
		t.Fatalf("NodeIDs returned %d ids, want 4", len(ids))
	}
}

func TestForget(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	cons, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}

	b, storeB, _ := newStash(t)
	if err := b.Merge(cons, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	removed, err := b.Forget(cons)
	if err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if removed != 3 {
		t.Fatalf("Forget removed %d nodes, want 3", removed)
	}
	if storeB.HasTransition(gr.t3.ID()) {
		t.Fatalf("forgotten transition still stored")
	}
	if _, err := storeB.Genesis(gr.g.ContractID()); err != nil {
		t.Fatalf("genesis must survive Forget: %v", err)
	}
	// Orphaned anchors go with their transitions.
	if _, err := storeB.Anchor(gr.a3.ID()); !storage.IsNotFound(err) {
		t.Fatalf("orphan anchor survived Forget: %v", err)
	}
}

func TestForgetKeepsSharedAncestors(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	consT3, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign(T3): %v", err)
	}
	consT2, err := a.Consign(gr.g.ContractID(), gr.t2, gr.a2, nil)
	if err != nil {
		t.Fatalf("Consign(T2): %v", err)
	}

	b, storeB, _ := newStash(t)
	if err := b.Merge(consT3, nil); err != nil {
		t.Fatalf("Merge(T3): %v", err)
	}
	if err := b.Merge(consT2, nil); err != nil {
		t.Fatalf("Merge(T2): %v", err)
	}

	// Forgetting the T2 consignment must keep T1 and T2: T3 (outside
	// the consignment) still references both as parents.
	removed, err := b.Forget(consT2)
	if err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if removed != 0 {
		t.Fatalf("Forget removed %d nodes, want 0", removed)
	}
	if !storeB.HasTransition(gr.t1.ID()) || !storeB.HasTransition(gr.t2.ID()) {
		t.Fatalf("shared ancestor removed while still referenced")
	}
}

func TestPrune(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)

	cons, err := a.Consign(gr.g.ContractID(), gr.t3, gr.a3, nil)
	if err != nil {
		t.Fatalf("Consign: %v", err)
	}
	b, storeB, ixB := newStash(t)
	if err := b.Merge(cons, nil); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	// Nothing to prune on a healthy stash.
	removed, err := b.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("Prune on healthy stash removed %d nodes", removed)
	}

	// Drop T2's index entry: its anchor can no longer be located, so
	// its history is unverifiable.
	if err := ixB.Remove(gr.t2.ID()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	removed, err = b.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Prune removed %d nodes, want 1 (T2)", removed)
	}
	if storeB.HasTransition(gr.t2.ID()) {
		t.Fatalf("unverifiable transition survived Prune")
	}

	// T3 referenced the pruned T2; a second pass collects it.
	removed, err = b.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("second Prune removed %d nodes, want 1 (T3)", removed)
	}
}

func TestDisclose(t *testing.T) {
	a, storeA, ixA := newStash(t)
	gr := buildGraph(t)
	seedAncestors(t, storeA, ixA, gr)
	if err := storeA.AddExtension(gr.e1); err != nil {
		t.Fatalf("AddExtension: %v", err)
	}

	d, err := a.Disclose()
	if err != nil {
		t.Fatalf("Disclose: %v", err)
	}
	if len(d.StateTransitions) != 2 || len(d.StateExtensions) != 1 {
		t.Fatalf("disclosure covers %d transitions and %d extensions, want 2 and 1",
			len(d.StateTransitions), len(d.StateExtensions))
	}
	for _, at := range d.StateTransitions {
		if !at.Anchor.CommitsTo(at.Transition.ID()) {
			t.Fatalf("disclosed transition not covered by its anchor")
		}
		for _, rights := range at.Transition.OwnedRights {
			for _, it := range rights.Assignment.Fungible {
				if it.Seal.IsRevealed() || it.Value != nil {
					t.Fatalf("disclosure leaked revealed state")
				}
			}
		}
	}
	for _, ex := range d.StateExtensions {
		for _, rights := range ex.OwnedRights {
			for _, it := range rights.Assignment.Fungible {
				if it.Seal.IsRevealed() {
					t.Fatalf("disclosure leaked revealed extension state")
				}
			}
		}
	}
}
