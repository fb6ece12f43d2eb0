package seal

import (
	"testing"
)

func TestConcealDeterministic(t *testing.T) {
	r := Revealed{Txid: Txid{1, 2, 3}, Vout: 4, Blinding: 99}
	if r.Conceal() != r.Conceal() {
		t.Fatalf("conceal must be deterministic")
	}
	other := r
	other.Blinding = 100
	if r.Conceal() == other.Conceal() {
		t.Fatalf("distinct seals produced identical commitments")
	}
}

func TestConcealDomainSeparation(t *testing.T) {
	// A value commitment and a data commitment over related inputs must
	// never collide with a seal commitment.
	r := Revealed{Vout: 1, Blinding: 2}
	sealC := r.Conceal()
	valC := CommitValue(1, 2)
	if [32]byte(sealC) == [32]byte(valC) {
		t.Fatalf("seal and value commitment domains collided")
	}
}

func TestSealRoundTrip(t *testing.T) {
	r := Revealed{Txid: Txid{0xAA}, Vout: 0, Blinding: 7}
	s := NewRevealed(r)
	if !s.IsRevealed() {
		t.Fatalf("expected revealed seal")
	}
	concealed := s.Conceal()
	if concealed.IsRevealed() {
		t.Fatalf("conceal left the seal revealed")
	}
	if concealed.Commitment() != s.Commitment() {
		t.Fatalf("commitment changed under concealment")
	}

	back, changed := concealed.RevealWith([]Revealed{{Vout: 9}, r})
	if !changed || !back.IsRevealed() {
		t.Fatalf("reveal with matching pre-image failed")
	}
	if *back.Revealed != r {
		t.Fatalf("revealed wrong seal: %+v", back.Revealed)
	}

	same, changed := concealed.RevealWith([]Revealed{{Vout: 9}})
	if changed || same.IsRevealed() {
		t.Fatalf("reveal without pre-image must leave the seal concealed")
	}
}

func TestEndpointConceal(t *testing.T) {
	r := Revealed{Vout: 3, Blinding: 11}
	ep := EndpointFromConcealed(r.Conceal())
	if ep.Conceal() != r.Conceal() {
		t.Fatalf("concealed-seal endpoint must preserve the commitment")
	}

	w := EndpointFromWitnessVout(3, 11)
	// Witness endpoints commit with the zero txid placeholder.
	want := Revealed{Vout: 3, Blinding: 11}.Conceal()
	if w.Conceal() != want {
		t.Fatalf("witness endpoint commitment mismatch")
	}
	if !ep.Equal(w) {
		t.Fatalf("endpoints with equal commitments must compare equal")
	}
}

func TestNewBlinding(t *testing.T) {
	a, err := NewBlinding()
	if err != nil {
		t.Fatalf("NewBlinding failed: %v", err)
	}
	b, err := NewBlinding()
	if err != nil {
		t.Fatalf("NewBlinding failed: %v", err)
	}
	if a == b {
		t.Fatalf("two fresh blindings collided (astronomically unlikely)")
	}
}

func TestStateCommitments(t *testing.T) {
	if CommitValue(5, 1) == CommitValue(5, 2) {
		t.Fatalf("blinding must affect value commitments")
	}
	if CommitData([]byte("a")) == CommitData([]byte("b")) {
		t.Fatalf("data must affect data commitments")
	}
	if CommitData(nil) != CommitData(nil) {
		t.Fatalf("data commitments must be deterministic")
	}
}
