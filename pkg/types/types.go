package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ProofBundle is the hand-off form of a merkle inclusion proof: every value is
// an ordered, fixed-size 32 byte array encoded as 0x-prefixed hex in JSON.
type ProofBundle struct {
	Root      common.Hash   `json:"root"`
	LeafIndex int           `json:"leafIndex"`
	Leaf      common.Hash   `json:"leaf"`
	Proof     []common.Hash `json:"proof"`
}

// NewProofBundle converts raw tree values into a ProofBundle
func NewProofBundle(root [32]byte, leafIndex int, leaf [32]byte, proof [][32]byte) *ProofBundle {
	hashes := make([]common.Hash, len(proof))
	for i, p := range proof {
		hashes[i] = common.Hash(p)
	}
	return &ProofBundle{
		Root:      common.Hash(root),
		LeafIndex: leafIndex,
		Leaf:      common.Hash(leaf),
		Proof:     hashes,
	}
}

// ProofBytes returns the proof as raw 32 byte arrays, in order
func (pb *ProofBundle) ProofBytes() [][32]byte {
	out := make([][32]byte, len(pb.Proof))
	for i, p := range pb.Proof {
		out[i] = [32]byte(p)
	}
	return out
}

// Submission records one proof submitted to the verifier contract.
type Submission struct {
	ID          string         `json:"id"`
	Chain       string         `json:"chain"`
	Account     common.Address `json:"account"`
	Contract    common.Address `json:"contract"`
	TxHash      common.Hash    `json:"txHash"`
	Bundle      *ProofBundle   `json:"bundle"`
	Challenge   string         `json:"challenge"`
	Signature   hexutil.Bytes  `json:"signature"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// Validate checks the fields required to persist a submission
func (s *Submission) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("submission id is required")
	}
	if s.Bundle == nil {
		return fmt.Errorf("submission proof bundle is required")
	}
	if s.SubmittedAt.IsZero() {
		return fmt.Errorf("submission time is required")
	}
	return nil
}
