package seal

import "bytes"

// Endpoint references one specific seal-bound assignment inside a
// node: "this piece of state is the one being handed over". Exactly
// one of the fields is set.
//
// A ConcealedSeal endpoint carries only the seal's commitment, the
// usual case when a recipient blinded the seal before sharing it
// (e.g. in an invoice). A WitnessVout endpoint designates an output of
// the forthcoming witness transaction, whose txid is not known yet.
type Endpoint struct {
	ConcealedSeal *Confidential `cbor:"1,keyasint,omitempty"`
	WitnessVout   *WitnessVout  `cbor:"2,keyasint,omitempty"`
}

// WitnessVout points at an output of the witness transaction that will
// close the seal. The txid component of the seal commitment is the
// zero txid until the witness transaction exists.
type WitnessVout struct {
	Vout     uint32 `cbor:"1,keyasint"`
	Blinding uint64 `cbor:"2,keyasint"`
}

func EndpointFromConcealed(c Confidential) Endpoint {
	return Endpoint{ConcealedSeal: &c}
}

func EndpointFromWitnessVout(vout uint32, blinding uint64) Endpoint {
	return Endpoint{WitnessVout: &WitnessVout{Vout: vout, Blinding: blinding}}
}

// Conceal computes the confidential seal the endpoint designates.
func (e Endpoint) Conceal() Confidential {
	if e.ConcealedSeal != nil {
		return *e.ConcealedSeal
	}
	if e.WitnessVout != nil {
		r := Revealed{Vout: e.WitnessVout.Vout, Blinding: e.WitnessVout.Blinding}
		return r.Conceal()
	}
	return Confidential{}
}

func (e Endpoint) Equal(o Endpoint) bool {
	return e.Conceal() == o.Conceal()
}

// Less orders endpoints by their concealed form, giving consignment
// endpoint lists a canonical order.
func (e Endpoint) Less(o Endpoint) bool {
	a, b := e.Conceal(), o.Conceal()
	return bytes.Compare(a[:], b[:]) < 0
}
