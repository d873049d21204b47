// Package prover ties the tree, challenge signing, submission and persistence
// together into the end to end proof submission flow.
package prover

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/challenge"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/contractCaller"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/logger"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

// ErrChallengeVerification is returned when the signed challenge does not recover to the account
var ErrChallengeVerification = errors.New("challenge signature verification failed")

// ValueSource provides the integers committed to by the tree
type ValueSource interface {
	Values() ([]uint64, error)
}

// ChallengeSigner proves control of the submitting account
type ChallengeSigner interface {
	Address() common.Address
	SignChallenge(challenge string) (common.Address, []byte, error)
	VerifyChallenge(challenge string, address common.Address, signature []byte) (bool, error)
}

// Config holds prover configuration
type Config struct {
	Chain           string
	LeafIndex       int // config.RandomLeafIndex picks a random leaf
	ChallengeLength int
	Logger          *zap.Logger // Optional logger, will create default if nil
}

// Dependencies are the collaborators used by Run
type Dependencies struct {
	Values ValueSource
	Signer ChallengeSigner
	Caller contractCaller.IContractCaller
	Store  persistence.ISubmissionStore

	// Optional overrides, mostly for tests
	RandIndex         func(n int) (int, error)
	GenerateChallenge func(length int) (string, error)
	Now               func() time.Time
}

type Prover struct {
	chain           string
	leafIndex       int
	challengeLength int

	values ValueSource
	signer ChallengeSigner
	caller contractCaller.IContractCaller
	store  persistence.ISubmissionStore

	randIndex         func(n int) (int, error)
	generateChallenge func(length int) (string, error)
	now               func() time.Time

	logger *zap.Logger
}

// NewProver creates a prover with dependency injection
func NewProver(cfg Config, deps Dependencies) (*Prover, error) {
	if deps.Values == nil {
		return nil, fmt.Errorf("value source is required")
	}

	proverLogger := cfg.Logger
	if proverLogger == nil {
		proverLogger, _ = logger.NewLogger(&logger.LoggerConfig{Debug: false})
	}

	challengeLength := cfg.ChallengeLength
	if challengeLength <= 0 {
		challengeLength = challenge.DefaultLength
	}

	p := &Prover{
		chain:             cfg.Chain,
		leafIndex:         cfg.LeafIndex,
		challengeLength:   challengeLength,
		values:            deps.Values,
		signer:            deps.Signer,
		caller:            deps.Caller,
		store:             deps.Store,
		randIndex:         deps.RandIndex,
		generateChallenge: deps.GenerateChallenge,
		now:               deps.Now,
		logger:            proverLogger,
	}
	if p.randIndex == nil {
		p.randIndex = randomIndex
	}
	if p.generateChallenge == nil {
		p.generateChallenge = challenge.Generate
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

func randomIndex(n int) (int, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(i.Int64()), nil
}

// BuildTree encodes the source values as leaves and builds the tree over them
func (p *Prover) BuildTree() (*merkle.MerkleTree, error) {
	values, err := p.values.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to load leaf values: %w", err)
	}

	tree, err := merkle.BuildMerkleTree(merkle.EncodeUint64Leaves(values))
	if err != nil {
		return nil, fmt.Errorf("failed to build merkle tree: %w", err)
	}

	p.logger.Sugar().Debugw("Built merkle tree",
		"leaves", len(tree.Leaves),
		"depth", tree.Depth(),
		"root", common.Hash(tree.Root).Hex(),
	)
	return tree, nil
}

// ProveIndex generates the proof for index and checks it against the root before returning it
func (p *Prover) ProveIndex(tree *merkle.MerkleTree, index int) (*merkle.MerkleProof, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree cannot be nil")
	}

	proof, err := tree.GenerateProof(index)
	if err != nil {
		return nil, err
	}

	if !merkle.VerifyProof(proof, tree.Root) {
		return nil, fmt.Errorf("proof for leaf %d does not verify against root %s", index, common.Hash(tree.Root).Hex())
	}
	return proof, nil
}

func (p *Prover) pickIndex(numLeaves int) (int, error) {
	if p.leafIndex != config.RandomLeafIndex {
		return p.leafIndex, nil
	}
	index, err := p.randIndex(numLeaves)
	if err != nil {
		return 0, fmt.Errorf("failed to pick random leaf index: %w", err)
	}
	return index, nil
}

// proveControl signs a fresh challenge and checks it recovers to the signer's address
func (p *Prover) proveControl() (string, []byte, error) {
	msg, err := p.generateChallenge(p.challengeLength)
	if err != nil {
		return "", nil, err
	}

	address, signature, err := p.signer.SignChallenge(msg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	ok, err := p.signer.VerifyChallenge(msg, p.signer.Address(), signature)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrChallengeVerification, err)
	}
	if !ok || address != p.signer.Address() {
		return "", nil, fmt.Errorf("%w: signature does not recover to %s", ErrChallengeVerification, p.signer.Address().Hex())
	}
	return msg, signature, nil
}

// Run builds the tree, proves one leaf, proves control of the account, submits the proof
// to the verifier contract and records the submission.
func (p *Prover) Run(ctx context.Context) (*types.Submission, error) {
	if p.signer == nil || p.caller == nil || p.store == nil {
		return nil, fmt.Errorf("signer, contract caller and store are required to submit")
	}

	tree, err := p.BuildTree()
	if err != nil {
		return nil, err
	}

	index, err := p.pickIndex(len(tree.Leaves))
	if err != nil {
		return nil, err
	}

	proof, err := p.ProveIndex(tree, index)
	if err != nil {
		return nil, err
	}

	p.logger.Sugar().Infow("Generated proof",
		"leafIndex", index,
		"leaf", common.Hash(proof.Leaf).Hex(),
		"proofLength", len(proof.Proof),
		"root", common.Hash(tree.Root).Hex(),
	)

	msg, signature, err := p.proveControl()
	if err != nil {
		return nil, err
	}

	p.logger.Sugar().Infow("Verified account control",
		"account", p.signer.Address().Hex(),
		"challenge", msg,
	)

	txHash, err := p.caller.SubmitProof(ctx, proof.Proof, proof.Leaf)
	if err != nil {
		return nil, fmt.Errorf("failed to submit proof: %w", err)
	}

	submission := &types.Submission{
		ID:          uuid.New().String(),
		Chain:       p.chain,
		Account:     p.signer.Address(),
		Contract:    p.caller.ContractAddress(),
		TxHash:      txHash,
		Bundle:      types.NewProofBundle(tree.Root, proof.LeafIndex, proof.Leaf, proof.Proof),
		Challenge:   msg,
		Signature:   signature,
		SubmittedAt: p.now().UTC(),
	}

	if err := p.store.SaveSubmission(submission); err != nil {
		p.logger.Sugar().Warnw("Failed to record submission",
			"txHash", txHash.Hex(),
			"error", err,
		)
		return submission, fmt.Errorf("proof submitted in %s but not recorded: %w", txHash.Hex(), err)
	}

	p.logger.Sugar().Infow("Submitted proof",
		"id", submission.ID,
		"txHash", txHash.Hex(),
		"contract", submission.Contract.Hex(),
	)
	return submission, nil
}
