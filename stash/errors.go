package stash

import "errors"

var (
	// ErrGenesisNode reports an attempt to consign the contract's root
	// node directly. Genesis travels inside every consignment already;
	// it is never a consignment target.
	ErrGenesisNode = errors.New("stash: genesis cannot be consigned directly")

	// ErrAnchorRequired reports a consign call for a transition without
	// the anchor committing it.
	ErrAnchorRequired = errors.New("stash: anchor parameter is required for a transition")

	// ErrTraversalLimit reports an ancestor walk that exceeded the
	// configured bound before reaching genesis.
	ErrTraversalLimit = errors.New("stash: ancestor traversal limit exceeded")
)
