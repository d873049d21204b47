package prover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/challenge"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/primes"
)

type staticValues []uint64

func (s staticValues) Values() ([]uint64, error) { return s, nil }

type failingValues struct{}

func (failingValues) Values() ([]uint64, error) { return nil, errors.New("no values") }

type submitCall struct {
	proof [][32]byte
	leaf  [32]byte
}

type fakeCaller struct {
	address common.Address
	calls   []submitCall
	err     error
}

func (f *fakeCaller) SubmitProof(_ context.Context, proof [][32]byte, leaf [32]byte) (common.Hash, error) {
	if f.err != nil {
		return common.Hash{}, f.err
	}
	f.calls = append(f.calls, submitCall{proof: proof, leaf: leaf})
	return common.HexToHash(fmt.Sprintf("0x%x", len(f.calls))), nil
}

func (f *fakeCaller) PackSubmit(_ [][32]byte, _ [32]byte) ([]byte, error) {
	return nil, nil
}

func (f *fakeCaller) ContractAddress() common.Address {
	return f.address
}

// lyingSigner signs correctly but claims to be someone else
type lyingSigner struct {
	*challenge.Signer
}

func (l lyingSigner) Address() common.Address {
	return common.HexToAddress("0x000000000000000000000000000000000000dEaD")
}

func newSigner(t *testing.T) *challenge.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := challenge.NewSigner(key)
	require.NoError(t, err)
	return signer
}

type testHarness struct {
	prover *Prover
	caller *fakeCaller
	store  *memory.MemoryPersistence
	signer *challenge.Signer
}

func newHarness(t *testing.T, leafIndex int, values ValueSource) *testHarness {
	t.Helper()
	signer := newSigner(t)
	caller := &fakeCaller{address: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")}
	store := memory.NewMemoryPersistence()
	t.Cleanup(func() { _ = store.Close() })

	p, err := NewProver(Config{Chain: "bsc", LeafIndex: leafIndex}, Dependencies{
		Values: values,
		Signer: signer,
		Caller: caller,
		Store:  store,
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	})
	require.NoError(t, err)
	return &testHarness{prover: p, caller: caller, store: store, signer: signer}
}

func TestNewProverRequiresValues(t *testing.T) {
	_, err := NewProver(Config{}, Dependencies{})
	require.Error(t, err)
}

func TestBuildTree(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3, 5, 7})

	tree, err := h.prover.BuildTree()
	require.NoError(t, err)
	assert.Len(t, tree.Leaves, 4)
	assert.Equal(t, 2, tree.Depth())

	expected, err := merkle.BuildMerkleTree(merkle.EncodeUint64Leaves([]uint64{2, 3, 5, 7}))
	require.NoError(t, err)
	assert.Equal(t, expected.Root, tree.Root)
}

func TestBuildTreeErrors(t *testing.T) {
	t.Run("Source failure", func(t *testing.T) {
		h := newHarness(t, 0, failingValues{})
		_, err := h.prover.BuildTree()
		require.Error(t, err)
	})

	t.Run("Empty source", func(t *testing.T) {
		h := newHarness(t, 0, staticValues{})
		_, err := h.prover.BuildTree()
		require.ErrorIs(t, err, merkle.ErrEmptyInput)
	})
}

func TestProveIndex(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3, 5})
	tree, err := h.prover.BuildTree()
	require.NoError(t, err)

	for i := range tree.Leaves {
		proof, err := h.prover.ProveIndex(tree, i)
		require.NoError(t, err)
		assert.True(t, merkle.VerifyProof(proof, tree.Root))
	}

	_, err = h.prover.ProveIndex(tree, 3)
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)

	_, err = h.prover.ProveIndex(nil, 0)
	require.Error(t, err)
}

func TestRunSubmitsAndRecords(t *testing.T) {
	h := newHarness(t, 2, staticValues{2, 3, 5, 7})
	ctx := context.Background()

	submission, err := h.prover.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, submission)

	require.Len(t, h.caller.calls, 1)
	call := h.caller.calls[0]
	assert.Equal(t, merkle.EncodeUint64Leaves([]uint64{5})[0], call.leaf)
	assert.Len(t, call.proof, 2)

	assert.NotEmpty(t, submission.ID)
	assert.Equal(t, "bsc", submission.Chain)
	assert.Equal(t, h.signer.Address(), submission.Account)
	assert.Equal(t, h.caller.address, submission.Contract)
	assert.Equal(t, 2, submission.Bundle.LeafIndex)
	assert.Len(t, submission.Challenge, challenge.DefaultLength)
	assert.Len(t, submission.Signature, challenge.SignatureLength)
	assert.True(t, submission.SubmittedAt.Equal(time.Unix(1700000000, 0)))

	ok, err := challenge.Verify(submission.Challenge, submission.Account, submission.Signature)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, merkle.VerifyLeaf(submission.Bundle.Leaf, submission.Bundle.ProofBytes(), submission.Bundle.Root))

	stored, err := h.store.LoadSubmission(submission.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, submission.TxHash, stored.TxHash)
}

func TestRunRandomIndex(t *testing.T) {
	h := newHarness(t, config.RandomLeafIndex, staticValues{2, 3, 5, 7, 11})
	h.prover.randIndex = func(n int) (int, error) {
		assert.Equal(t, 5, n)
		return 4, nil
	}

	submission, err := h.prover.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, submission.Bundle.LeafIndex)
	assert.Equal(t, merkle.EncodeUint64Leaves([]uint64{11})[0], [32]byte(submission.Bundle.Leaf))
}

func TestRunDefaultRandomIndexInRange(t *testing.T) {
	h := newHarness(t, config.RandomLeafIndex, staticValues{2, 3, 5, 7, 11, 13, 17})

	for i := 0; i < 10; i++ {
		submission, err := h.prover.Run(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, submission.Bundle.LeafIndex, 0)
		assert.Less(t, submission.Bundle.LeafIndex, 7)
	}

	all, err := h.store.ListSubmissions()
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestRunPrimes(t *testing.T) {
	h := newHarness(t, 100, &primes.Source{Count: 128, Limit: 1000})

	submission, err := h.prover.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, submission.Bundle.Proof, 7)
	assert.Equal(t, merkle.EncodeUint64Leaves([]uint64{547})[0], [32]byte(submission.Bundle.Leaf))
}

func TestRunIndexOutOfRange(t *testing.T) {
	h := newHarness(t, 4, staticValues{2, 3, 5, 7})

	_, err := h.prover.Run(context.Background())
	require.ErrorIs(t, err, merkle.ErrIndexOutOfRange)
	assert.Empty(t, h.caller.calls)
}

func TestRunChallengeMismatch(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3, 5, 7})
	h.prover.signer = lyingSigner{Signer: h.signer}

	_, err := h.prover.Run(context.Background())
	require.ErrorIs(t, err, ErrChallengeVerification)
	assert.Empty(t, h.caller.calls)

	all, err := h.store.ListSubmissions()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunChallengeGenerationFailure(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3})
	h.prover.generateChallenge = func(int) (string, error) { return "", errors.New("entropy exhausted") }

	_, err := h.prover.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, h.caller.calls)
}

func TestRunSubmitFailure(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3})
	h.caller.err = errors.New("insufficient funds")

	_, err := h.prover.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")

	all, err := h.store.ListSubmissions()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRunStoreFailure(t *testing.T) {
	h := newHarness(t, 0, staticValues{2, 3})
	require.NoError(t, h.store.Close())

	submission, err := h.prover.Run(context.Background())
	require.ErrorIs(t, err, persistence.ErrClosed)
	require.NotNil(t, submission)
	assert.Len(t, h.caller.calls, 1)
}

func TestRunRequiresCollaborators(t *testing.T) {
	p, err := NewProver(Config{}, Dependencies{Values: staticValues{1}})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
}
