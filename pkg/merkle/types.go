package merkle

// MerkleTree represents a binary merkle tree built over an ordered set of leaves.
// The tree uses keccak256 hashing for Solidity compatibility.
type MerkleTree struct {
	// Leaves contains the leaves in insertion order (layer 0)
	Leaves [][32]byte

	// Root is the merkle root hash
	Root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// MerkleProof represents a proof that a leaf is included in the tree.
// The proof consists of sibling hashes along the path from leaf to root.
type MerkleProof struct {
	// LeafIndex is the index of the leaf in the leaves array
	LeafIndex int

	// Leaf is the leaf being proven
	Leaf [32]byte

	// Proof contains the sibling hashes from leaf to root
	// proof[0] is the sibling of the leaf, proof[len-1] is near the root
	Proof [][32]byte
}

// NumLayers returns the number of layers including the leaves and the root.
func (mt *MerkleTree) NumLayers() int {
	return len(mt.levels)
}

// Depth returns the number of layers below the root.
func (mt *MerkleTree) Depth() int {
	return len(mt.levels) - 1
}

// Layer returns a copy of the layer at the given depth, where 0 is the leaves.
// Returns nil if the depth does not exist.
func (mt *MerkleTree) Layer(depth int) [][32]byte {
	if depth < 0 || depth >= len(mt.levels) {
		return nil
	}
	layer := make([][32]byte, len(mt.levels[depth]))
	copy(layer, mt.levels[depth])
	return layer
}
