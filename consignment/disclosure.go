package consignment

import "contractum.io/stash/node"

// Disclosure is the artifact for voluntarily publishing contract state
// outside a peer-to-peer exchange. Unlike a consignment it is not
// addressed to a counterparty: every assignment it carries is fully
// concealed, it proves existence and anchoring, nothing more.
type Disclosure struct {
	StateTransitions []AnchoredTransition `cbor:"1,keyasint,omitempty"`
	StateExtensions  []*node.Extension    `cbor:"2,keyasint,omitempty"`
}
