package grpckv

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"contractum.io/stash/storage"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.DataLoss:
		// Server uses DataLoss for identity-verification failures.
		return storage.ErrCorrupted
	default:
		// Best-effort: preserve known storage errors sent as messages.
		switch st.Message() {
		case storage.ErrNotFound.Error():
			return storage.ErrNotFound
		case storage.ErrCorrupted.Error():
			return storage.ErrCorrupted
		default:
			return err
		}
	}
}
