package storage

import "errors"

var (
	// ErrNotFound is returned when a key or stored object is absent.
	ErrNotFound = errors.New("storage: not found")
	// ErrCorrupted is returned when stored bytes do not decode, or
	// decode to an object that no longer derives the identifier it is
	// stored under.
	ErrCorrupted = errors.New("storage: corrupted object")
	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("storage: backend closed")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsCorrupted(err error) bool { return errors.Is(err, ErrCorrupted) }
