// Package seal implements single-use seals and the one-way concealment
// commitments that hide them.
//
// A revealed seal pins a piece of contract state to one unspent output
// of the base ledger plus a blinding factor. Its concealed form is a
// keyed BLAKE3 commitment over the seal's canonical bytes: computable
// from the revealed seal at any time, irreversible without it.
package seal

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"contractum.io/stash/codec"
)

// Txid is a base-ledger transaction id.
type Txid [32]byte

// Revealed is a full single-use seal definition: the ledger output it
// is tied to and the blinding factor hiding it from outside observers.
type Revealed struct {
	Txid     Txid   `cbor:"1,keyasint"`
	Vout     uint32 `cbor:"2,keyasint"`
	Blinding uint64 `cbor:"3,keyasint"`
}

// Confidential is the concealed form of a seal: a 32-byte commitment.
type Confidential [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Fixed constants;
// changing them invalidates every commitment in that domain. The bytes
// are the ASCII domain name, zero-padded to 32 bytes, so the keys stay
// inspectable in hex dumps.
type domainKey [32]byte

var (
	sealDomainKey = domainKey{
		's', 't', 'a', 's', 'h', '.', 's', 'e', 'a', 'l', '.', 'v', '1',
	}
	valueDomainKey = domainKey{
		's', 't', 'a', 's', 'h', '.', 's', 't', 'a', 't', 'e', '.',
		'v', 'a', 'l', 'u', 'e', '.', 'v', '1',
	}
	dataDomainKey = domainKey{
		's', 't', 'a', 's', 'h', '.', 's', 't', 'a', 't', 'e', '.',
		'd', 'a', 't', 'a', '.', 'v', '1',
	}
)

func keyedHash(key domainKey, data []byte) [32]byte {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only rejects keys that are not exactly 32 bytes,
		// which domainKey rules out.
		panic("seal: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// Conceal computes the one-way commitment to the revealed seal.
func (r Revealed) Conceal() Confidential {
	canonical, err := codec.Marshal(r)
	if err != nil {
		panic("seal: canonical encoding of a fixed-shape struct failed: " + err.Error())
	}
	return Confidential(keyedHash(sealDomainKey, canonical))
}

// NewBlinding draws a fresh random blinding factor.
func NewBlinding() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (c Confidential) String() string { return hex.EncodeToString(c[:]) }

// Seal is a seal in one of its two disclosure states. Exactly one of
// the fields is set.
type Seal struct {
	Revealed     *Revealed     `cbor:"1,keyasint,omitempty"`
	Confidential *Confidential `cbor:"2,keyasint,omitempty"`
}

func NewRevealed(r Revealed) Seal { return Seal{Revealed: &r} }

func NewConfidential(c Confidential) Seal { return Seal{Confidential: &c} }

func (s Seal) IsRevealed() bool { return s.Revealed != nil }

// Commitment returns the concealed form regardless of disclosure state.
func (s Seal) Commitment() Confidential {
	if s.Revealed != nil {
		return s.Revealed.Conceal()
	}
	if s.Confidential != nil {
		return *s.Confidential
	}
	return Confidential{}
}

// Conceal returns the seal with only its commitment present.
func (s Seal) Conceal() Seal {
	c := s.Commitment()
	return Seal{Confidential: &c}
}

// RevealWith returns the revealed form of a concealed seal when one of
// the known seals commits to it. The second result reports whether the
// seal changed. Already-revealed seals are returned unchanged.
func (s Seal) RevealWith(known []Revealed) (Seal, bool) {
	if s.Revealed != nil || s.Confidential == nil {
		return s, false
	}
	for _, k := range known {
		if k.Conceal() == *s.Confidential {
			return NewRevealed(k), true
		}
	}
	return s, false
}

// StateCommitment is a one-way commitment to seal-bound state data.
type StateCommitment [32]byte

func (c StateCommitment) String() string { return hex.EncodeToString(c[:]) }

type committedValue struct {
	Value    uint64 `cbor:"1,keyasint"`
	Blinding uint64 `cbor:"2,keyasint"`
}

// CommitValue commits to a numeric amount and its blinding factor.
func CommitValue(value, blinding uint64) StateCommitment {
	canonical, err := codec.Marshal(committedValue{Value: value, Blinding: blinding})
	if err != nil {
		panic("seal: canonical encoding of a fixed-shape struct failed: " + err.Error())
	}
	return StateCommitment(keyedHash(valueDomainKey, canonical))
}

// CommitData commits to an arbitrary bound data blob.
func CommitData(data []byte) StateCommitment {
	return StateCommitment(keyedHash(dataDomainKey, data))
}
