package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/challenge"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/contractCaller"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/keystore"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/logger"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/primes"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/prover"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/transactionSigner"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func valueSource(c *cli.Context) *primes.Source {
	return &primes.Source{
		Count: c.Int("num-primes"),
		Limit: c.Int("sieve-limit"),
	}
}

// buildTree builds the tree over the configured primes
func buildTree(c *cli.Context, l *zap.Logger) (*merkle.MerkleTree, error) {
	p, err := prover.NewProver(prover.Config{Logger: l}, prover.Dependencies{Values: valueSource(c)})
	if err != nil {
		return nil, err
	}
	return p.BuildTree()
}

func persistenceConfig(c *cli.Context) config.PersistenceConfig {
	return config.PersistenceConfig{
		Type:          config.PersistenceType(c.String("persistence")),
		DataPath:      c.String("data-path"),
		RedisAddress:  c.String("redis-address"),
		RedisPassword: c.String("redis-password"),
		RedisDB:       c.Int("redis-db"),
	}
}

// rootCommand handles the root subcommand
func rootCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	tree, err := buildTree(c, l)
	if err != nil {
		return err
	}

	fmt.Printf("Root:   %s\n", common.Hash(tree.Root).Hex())
	fmt.Printf("Leaves: %d\n", len(tree.Leaves))
	fmt.Printf("Depth:  %d\n", tree.Depth())
	return nil
}

// proveCommand handles the prove subcommand
func proveCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	p, err := prover.NewProver(prover.Config{Logger: l}, prover.Dependencies{Values: valueSource(c)})
	if err != nil {
		return err
	}
	tree, err := p.BuildTree()
	if err != nil {
		return err
	}

	proof, err := p.ProveIndex(tree, c.Int("index"))
	if err != nil {
		return fmt.Errorf("failed to generate proof: %w", err)
	}

	bundle := types.NewProofBundle(tree.Root, proof.LeafIndex, proof.Leaf, proof.Proof)
	out, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode proof bundle: %w", err)
	}

	if outputFile := c.String("output"); outputFile != "" {
		if err := os.WriteFile(outputFile, out, 0644); err != nil {
			return fmt.Errorf("failed to write to file: %w", err)
		}
		fmt.Printf("Proof bundle written to: %s\n", outputFile)
		return nil
	}
	fmt.Println(string(out))
	return nil
}

// verifyCommand handles the verify subcommand
func verifyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	path := c.String("bundle")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read proof bundle: %w", err)
	}

	var bundle types.ProofBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return fmt.Errorf("failed to parse proof bundle %s: %w", path, err)
	}

	if c.Bool("check-root") {
		tree, err := buildTree(c, l)
		if err != nil {
			return err
		}
		if common.Hash(tree.Root) != bundle.Root {
			return cli.Exit(fmt.Sprintf("bundle root %s does not match tree root %s", bundle.Root.Hex(), common.Hash(tree.Root).Hex()), 1)
		}
	}

	if !merkle.VerifyLeaf(bundle.Leaf, bundle.ProofBytes(), bundle.Root) {
		return cli.Exit(fmt.Sprintf("proof for leaf %d rejected", bundle.LeafIndex), 1)
	}

	fmt.Printf("Proof for leaf %d (%s) is valid against root %s\n",
		bundle.LeafIndex, merkle.DecodeLeaf(bundle.Leaf).String(), bundle.Root.Hex())
	return nil
}

func parseSubmitterConfig(c *cli.Context) (*config.SubmitterConfig, error) {
	chain, err := config.ParseChainName(c.String("chain"))
	if err != nil {
		return nil, err
	}

	cfg := &config.SubmitterConfig{
		Chain:            chain,
		RpcUrl:           c.String("rpc-url"),
		KeyFile:          c.String("key-file"),
		KeystorePath:     c.String("keystore"),
		KeystorePassword: c.String("keystore-password"),
		ContractInfoPath: c.String("contract-info"),
		GasLimit:         c.Uint64("gas-limit"),
		GasPriceGwei:     c.Uint64("gas-price-gwei"),
		NumPrimes:        c.Int("num-primes"),
		SieveLimit:       c.Int("sieve-limit"),
		LeafIndex:        c.Int("index"),
		Persistence:      persistenceConfig(c),
		Debug:            c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// submitCommand handles the submit subcommand
func submitCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	cfg, err := parseSubmitterConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Sugar().Infow("Using chain", "name", cfg.Chain, "chain_id", cfg.ChainID(), "rpc_url", cfg.RpcUrl)

	keySource := &keystore.Source{
		KeyFile:          cfg.KeyFile,
		KeystorePath:     cfg.KeystorePath,
		KeystorePassword: cfg.KeystorePassword,
	}
	privateKey, err := keySource.Load()
	if err != nil {
		return fmt.Errorf("failed to load account key: %w", err)
	}

	info, err := config.LoadContractInfo(cfg.ContractInfoPath, cfg.Chain)
	if err != nil {
		return err
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.RpcUrl, err)
	}
	defer ethClient.Close()

	if err := checkChainID(ctx, ethClient, cfg); err != nil {
		return err
	}

	signer, err := transactionSigner.NewPrivateKeySigner(ctx, privateKey, &transactionSigner.SignerConfig{
		GasLimit: cfg.GasLimit,
		GasPrice: cfg.GasPriceWei(),
	}, ethClient, l)
	if err != nil {
		return fmt.Errorf("failed to create transaction signer: %w", err)
	}

	caller, err := contractCaller.NewContractCaller(ethClient, info, signer, &contractCaller.Options{
		WaitForReceipt: c.Bool("wait"),
	}, l)
	if err != nil {
		return fmt.Errorf("failed to create contract caller: %w", err)
	}

	challengeSigner, err := challenge.NewSigner(privateKey)
	if err != nil {
		return err
	}

	store, err := newStore(&cfg.Persistence, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p, err := prover.NewProver(prover.Config{
		Chain:     cfg.Chain.String(),
		LeafIndex: cfg.LeafIndex,
		Logger:    l,
	}, prover.Dependencies{
		Values: &primes.Source{Count: cfg.NumPrimes, Limit: cfg.SieveLimit},
		Signer: challengeSigner,
		Caller: caller,
		Store:  store,
	})
	if err != nil {
		return err
	}

	submission, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Submitted leaf %d (%s) from %s\n",
		submission.Bundle.LeafIndex, merkle.DecodeLeaf(submission.Bundle.Leaf).String(), submission.Account.Hex())
	fmt.Printf("Transaction: %s\n", submission.TxHash.Hex())
	fmt.Printf("Record ID:   %s\n", submission.ID)
	return nil
}

func checkChainID(ctx context.Context, ethClient *ethclient.Client, cfg *config.SubmitterConfig) error {
	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Cmp(cfg.ChainID()) != 0 {
		return fmt.Errorf("rpc %s serves chain %s, expected %s (%s)", cfg.RpcUrl, chainID, cfg.ChainID(), cfg.Chain)
	}
	return nil
}

// historyCommand handles the history subcommand
func historyCommand(c *cli.Context) error {
	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	pc := persistenceConfig(c)
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("invalid persistence configuration: %w", err)
	}
	store, err := newStore(&pc, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	submissions, err := store.ListSubmissions()
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	if c.Bool("json") {
		out, err := json.MarshalIndent(submissions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(submissions) == 0 {
		fmt.Println("No submissions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBMITTED\tCHAIN\tLEAF\tACCOUNT\tTX")
	for _, s := range submissions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.SubmittedAt.Format("2006-01-02T15:04:05Z07:00"), s.Chain, s.Bundle.LeafIndex, s.Account.Hex(), s.TxHash.Hex())
	}
	return w.Flush()
}
