package contractCaller

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/logger"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/transactionSigner"
)

const submitABI = `[{"inputs":[{"internalType":"bytes32[]","name":"proof","type":"bytes32[]"},{"internalType":"bytes32","name":"leaf","type":"bytes32"}],"name":"submit","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

const verifierAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func testContractInfo(abiJSON string) *config.ContractInfo {
	return &config.ContractInfo{Address: verifierAddress, ABI: json.RawMessage(abiJSON)}
}

type testEnv struct {
	sim    *simulated.Backend
	signer *transactionSigner.PrivateKeySigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	balance := new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))
	sim := simulated.NewBackend(types.GenesisAlloc{from: {Balance: balance}})
	t.Cleanup(func() { _ = sim.Close() })

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	signer, err := transactionSigner.NewPrivateKeySigner(context.Background(), key, &transactionSigner.SignerConfig{
		GasLimit: config.DefaultGasLimit,
		GasPrice: big.NewInt(10 * params.GWei),
	}, sim.Client(), l)
	require.NoError(t, err)

	return &testEnv{sim: sim, signer: signer}
}

func (e *testEnv) newCaller(t *testing.T, opts *Options) *ContractCaller {
	t.Helper()
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cc, err := NewContractCaller(e.sim.Client(), testContractInfo(submitABI), e.signer, opts, l)
	require.NoError(t, err)
	return cc
}

func testProof(t *testing.T) *merkle.MerkleProof {
	t.Helper()
	tree, err := merkle.BuildMerkleTree(merkle.EncodeUint64Leaves([]uint64{2, 3, 5, 7, 11}))
	require.NoError(t, err)
	proof, err := tree.GenerateProof(4)
	require.NoError(t, err)
	return proof
}

func TestNewContractCallerRejectsBadABI(t *testing.T) {
	env := newTestEnv(t)
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	testCases := []struct {
		name string
		info *config.ContractInfo
	}{
		{"Nil info", nil},
		{"No submit method", testContractInfo(`[{"inputs":[],"name":"other","outputs":[],"stateMutability":"nonpayable","type":"function"}]`)},
		{"Wrong submit inputs", testContractInfo(`[{"inputs":[{"name":"leaf","type":"bytes32"}],"name":"submit","outputs":[],"stateMutability":"nonpayable","type":"function"}]`)},
		{"Bad address", &config.ContractInfo{Address: "0x1234", ABI: json.RawMessage(submitABI)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewContractCaller(env.sim.Client(), tc.info, env.signer, nil, l)
			require.Error(t, err)
		})
	}
}

func TestPackSubmit(t *testing.T) {
	env := newTestEnv(t)
	cc := env.newCaller(t, nil)
	proof := testProof(t)

	data, err := cc.PackSubmit(proof.Proof, proof.Leaf)
	require.NoError(t, err)

	method := cc.contractABI.Methods[SubmitMethod]
	require.Equal(t, method.ID, data[:4])

	values, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, proof.Proof, values[0])
	assert.Equal(t, proof.Leaf, values[1])

	// offset and leaf words, then the array length and its entries
	assert.Len(t, data, 4+32*(2+1+len(proof.Proof)))
}

func TestPackSubmitEmptyProof(t *testing.T) {
	env := newTestEnv(t)
	cc := env.newCaller(t, nil)

	data, err := cc.PackSubmit(nil, [32]byte{31: 2})
	require.NoError(t, err)
	assert.Len(t, data, 4+32*3)
}

func TestSubmitProof(t *testing.T) {
	env := newTestEnv(t)
	cc := env.newCaller(t, nil)
	proof := testProof(t)
	ctx := context.Background()

	txHash, err := cc.SubmitProof(ctx, proof.Proof, proof.Leaf)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, txHash)

	env.sim.Commit()

	client := env.sim.Client()
	receipt, err := client.TransactionReceipt(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	tx, _, err := client.TransactionByHash(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(verifierAddress), *tx.To())
	assert.Equal(t, config.DefaultGasLimit, tx.Gas())
	assert.Equal(t, int64(10*params.GWei), tx.GasPrice().Int64())

	expected, err := cc.PackSubmit(proof.Proof, proof.Leaf)
	require.NoError(t, err)
	assert.Equal(t, expected, tx.Data())
}

func TestSubmitProofWaitsForReceipt(t *testing.T) {
	env := newTestEnv(t)
	cc := env.newCaller(t, &Options{WaitForReceipt: true})
	proof := testProof(t)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				env.sim.Commit()
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	txHash, err := cc.SubmitProof(ctx, proof.Proof, proof.Leaf)
	require.NoError(t, err)

	receipt, err := env.sim.Client().TransactionReceipt(ctx, txHash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
}
