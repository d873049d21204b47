package merkle

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// EncodeLeaf encodes a non-negative integer as a 32-byte big-endian leaf,
// zero-padded on the left.
func EncodeLeaf(v *big.Int) ([32]byte, error) {
	if v == nil {
		return [32]byte{}, fmt.Errorf("%w: nil value", ErrEncoding)
	}
	if v.Sign() < 0 {
		return [32]byte{}, fmt.Errorf("%w: negative value %s", ErrEncoding, v.String())
	}

	u, overflow := uint256.FromBig(v)
	if overflow {
		return [32]byte{}, fmt.Errorf("%w: value has %d bits", ErrEncoding, v.BitLen())
	}
	return u.Bytes32(), nil
}

// EncodeLeaves encodes every value in order. Nothing is returned if any value fails.
func EncodeLeaves(values []*big.Int) ([][32]byte, error) {
	leaves := make([][32]byte, len(values))
	for i, v := range values {
		leaf, err := EncodeLeaf(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode value at index %d: %w", i, err)
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// EncodeUint64Leaves encodes a list of uint64 values. A uint64 always fits, so this cannot fail.
func EncodeUint64Leaves(values []uint64) [][32]byte {
	leaves := make([][32]byte, len(values))
	for i, v := range values {
		leaves[i] = uint256.NewInt(v).Bytes32()
	}
	return leaves
}

// DecodeLeaf returns the integer value encoded in a leaf.
func DecodeLeaf(leaf [32]byte) *big.Int {
	return new(big.Int).SetBytes(leaf[:])
}
