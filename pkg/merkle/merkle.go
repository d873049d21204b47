package merkle

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// BuildMerkleTree creates a binary merkle tree from leaves, keeping their order.
// Leaves are used as given; only the combination of two nodes is hashed.
//
// If there's an odd number of nodes at any level, the last node is paired with itself.
func BuildMerkleTree(leaves [][32]byte) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyInput
	}

	// Copy so the caller cannot mutate the tree afterwards
	layer0 := make([][32]byte, len(leaves))
	copy(layer0, leaves)

	// Build tree levels bottom-up
	levels := make([][][32]byte, 0)
	levels = append(levels, layer0)

	currentLevel := layer0
	for len(currentLevel) > 1 {
		nextLevel := make([][32]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]

			// If odd number of nodes, duplicate the last one
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}

			nextLevel = append(nextLevel, HashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	// The last level should contain only the root
	if len(currentLevel) != 1 {
		return nil, fmt.Errorf("merkle tree construction failed: final level has %d nodes instead of 1", len(currentLevel))
	}

	return &MerkleTree{
		Leaves: layer0,
		Root:   currentLevel[0],
		levels: levels,
	}, nil
}

// GenerateProof creates a merkle proof for the leaf at the given index.
// The proof consists of sibling hashes along the path from leaf to root.
func (mt *MerkleTree) GenerateProof(leafIndex int) (*MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= len(mt.Leaves) {
		return nil, fmt.Errorf("%w: index %d (tree has %d leaves)", ErrIndexOutOfRange, leafIndex, len(mt.Leaves))
	}

	proof := make([][32]byte, 0, mt.Depth())
	index := leafIndex

	// Traverse from leaf to root, collecting sibling hashes
	for level := 0; level < len(mt.levels)-1; level++ {
		currentLevel := mt.levels[level]

		siblingIndex := index ^ 1

		// The last node of an odd level was paired with itself
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
		}

		proof = append(proof, currentLevel[siblingIndex])

		// Move to parent index in next level
		index = index / 2
	}

	return &MerkleProof{
		LeafIndex: leafIndex,
		Leaf:      mt.Leaves[leafIndex],
		Proof:     proof,
	}, nil
}

// VerifyProof verifies that a leaf is included in the merkle tree with the given root.
func VerifyProof(proof *MerkleProof, root [32]byte) bool {
	if proof == nil {
		return false
	}
	return VerifyLeaf(proof.Leaf, proof.Proof, root)
}

// VerifyLeaf recomputes the root from a leaf and its sibling path and compares it
// with the expected root. Pair hashing is order independent, so the leaf index is not needed.
func VerifyLeaf(leaf [32]byte, proof [][32]byte, root [32]byte) bool {
	currentHash := leaf
	for _, siblingHash := range proof {
		currentHash = HashPair(currentHash, siblingHash)
	}
	return currentHash == root
}

// HashPair computes keccak256(min(a, b) || max(a, b)), comparing both values as
// big-endian integers, so HashPair(a, b) == HashPair(b, a).
func HashPair(a, b [32]byte) [32]byte {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}
