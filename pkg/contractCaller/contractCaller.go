package contractCaller

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/transactionSigner"
)

// SubmitMethod is the verifier contract method that accepts a proof and its leaf
const SubmitMethod = "submit"

type IContractCaller interface {
	// SubmitProof sends submit(proof, leaf) to the verifier contract and returns the transaction hash
	SubmitProof(ctx context.Context, proof [][32]byte, leaf [32]byte) (common.Hash, error)

	// PackSubmit returns the calldata for submit(proof, leaf)
	PackSubmit(proof [][32]byte, leaf [32]byte) ([]byte, error)

	ContractAddress() common.Address
}

type ContractCaller struct {
	logger         *zap.Logger
	signer         transactionSigner.ITransactionSigner
	address        common.Address
	contractABI    abi.ABI
	contract       *bind.BoundContract
	waitForReceipt bool
}

var _ IContractCaller = (*ContractCaller)(nil)

// Options tweak how submissions are sent
type Options struct {
	// WaitForReceipt blocks SubmitProof until the transaction is mined
	WaitForReceipt bool
}

func NewContractCaller(
	backend bind.ContractBackend,
	info *config.ContractInfo,
	signer transactionSigner.ITransactionSigner,
	opts *Options,
	logger *zap.Logger,
) (*ContractCaller, error) {
	if info == nil {
		return nil, fmt.Errorf("contract info cannot be nil")
	}
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid contract info: %w", err)
	}
	if opts == nil {
		opts = &Options{}
	}

	contractABI, err := info.ParsedABI()
	if err != nil {
		return nil, err
	}
	if err := checkSubmitMethod(contractABI); err != nil {
		return nil, err
	}

	address := common.HexToAddress(info.Address)
	logger.Sugar().Infow("Using verifier contract",
		zap.String("address", address.Hex()),
		zap.String("from", signer.GetFromAddress().Hex()),
	)

	return &ContractCaller{
		logger:         logger,
		signer:         signer,
		address:        address,
		contractABI:    contractABI,
		contract:       bind.NewBoundContract(address, contractABI, backend, backend, backend),
		waitForReceipt: opts.WaitForReceipt,
	}, nil
}

// checkSubmitMethod makes sure the ABI exposes submit(bytes32[], bytes32)
func checkSubmitMethod(contractABI abi.ABI) error {
	method, ok := contractABI.Methods[SubmitMethod]
	if !ok {
		return fmt.Errorf("contract ABI has no %s method", SubmitMethod)
	}
	if len(method.Inputs) != 2 ||
		method.Inputs[0].Type.String() != "bytes32[]" ||
		method.Inputs[1].Type.String() != "bytes32" {
		return fmt.Errorf("contract method %s must take (bytes32[], bytes32), got %s", SubmitMethod, method.Sig)
	}
	return nil
}

func (cc *ContractCaller) ContractAddress() common.Address {
	return cc.address
}

func (cc *ContractCaller) PackSubmit(proof [][32]byte, leaf [32]byte) ([]byte, error) {
	data, err := cc.contractABI.Pack(SubmitMethod, normalizeProof(proof), leaf)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s calldata", SubmitMethod)
	}
	return data, nil
}

func (cc *ContractCaller) SubmitProof(ctx context.Context, proof [][32]byte, leaf [32]byte) (common.Hash, error) {
	txOpts, err := cc.buildTransactionOpts(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to build transaction options")
	}

	tx, err := cc.contract.Transact(txOpts, SubmitMethod, normalizeProof(proof), leaf)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to create %s transaction for contract %s", SubmitMethod, cc.address.Hex())
	}

	sentTx, err := cc.signAndSendTransaction(ctx, tx, "SubmitProof")
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to send %s transaction", SubmitMethod)
	}

	if cc.waitForReceipt {
		if _, err := cc.signer.WaitForReceipt(ctx, sentTx); err != nil {
			return sentTx.Hash(), errors.Wrapf(err, "%s transaction %s was not successful", SubmitMethod, sentTx.Hash().Hex())
		}
	}

	return sentTx.Hash(), nil
}

// normalizeProof keeps an empty proof encoding as an empty array rather than nil
func normalizeProof(proof [][32]byte) [][32]byte {
	if proof == nil {
		return [][32]byte{}
	}
	return proof
}

func (cc *ContractCaller) buildTransactionOpts(ctx context.Context) (*bind.TransactOpts, error) {
	return cc.signer.GetTransactOpts(ctx)
}

func (cc *ContractCaller) signAndSendTransaction(ctx context.Context, tx *ethereumTypes.Transaction, operation string) (*ethereumTypes.Transaction, error) {
	cc.logger.Sugar().Infow("Signing and sending transaction",
		zap.String("operation", operation),
		zap.String("from", cc.signer.GetFromAddress().Hex()),
		zap.String("to", tx.To().Hex()),
	)

	return cc.signer.SignAndSendTransaction(ctx, tx)
}
