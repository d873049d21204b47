package merkle

import "errors"

var (
	// ErrEncoding is returned when a value does not fit in a 32-byte leaf.
	ErrEncoding = errors.New("value does not fit in a 32-byte leaf")

	// ErrEmptyInput is returned when a tree is built from zero leaves.
	ErrEmptyInput = errors.New("cannot build merkle tree from empty leaf list")

	// ErrIndexOutOfRange is returned when a proof is requested for a leaf that does not exist.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)
