package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/primes"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "merkle-prover",
		Usage: "Build a Merkle tree over the first primes and submit leaf proofs on chain",
		Description: `Commits to the first N primes with a sorted-pair keccak256 Merkle tree.

This tool can:
- Print the tree root and depth
- Generate and verify inclusion proofs for a leaf
- Prove control of an account and submit a proof to the verifier contract
- List previously recorded submissions`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "num-primes",
				Aliases: []string{"n"},
				Usage:   "Number of primes committed to by the tree",
				Value:   primes.DefaultCount,
				EnvVars: []string{config.EnvNumPrimes},
			},
			&cli.IntFlag{
				Name:    "sieve-limit",
				Usage:   "Upper bound of the prime sieve",
				Value:   primes.DefaultSieveLimit,
				EnvVars: []string{config.EnvSieveLimit},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Usage:   "Submission store: memory, badger or redis",
				Value:   string(config.PersistenceType_Badger),
				EnvVars: []string{config.EnvPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				Value:   "./data/submissions",
				EnvVars: []string{config.EnvDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port)",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvRedisDB},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "root",
				Usage:  "Print the Merkle root and depth",
				Action: rootCommand,
			},
			{
				Name:  "prove",
				Usage: "Print the proof bundle for a leaf as JSON",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "index",
						Aliases:  []string{"i"},
						Usage:    "Leaf index",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Output file for the proof bundle",
					},
				},
				Action: proveCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify a proof bundle file against its root",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "bundle",
						Aliases:  []string{"b"},
						Usage:    "Path to a proof bundle JSON file",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "check-root",
						Usage: "Also require the bundle root to match the locally built tree",
					},
				},
				Action: verifyCommand,
			},
			{
				Name:  "submit",
				Usage: "Prove account control and submit a leaf proof to the verifier contract",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "chain",
						Usage:   fmt.Sprintf("Target chain: %s", config.GetSupportedChainsString()),
						Value:   string(config.DefaultChain),
						EnvVars: []string{config.EnvChain},
					},
					&cli.StringFlag{
						Name:    "rpc-url",
						Aliases: []string{"rpc"},
						Usage:   "RPC endpoint URL, defaults to the chain's public endpoint",
						EnvVars: []string{config.EnvRPCURL},
					},
					&cli.StringFlag{
						Name:    "key-file",
						Usage:   "File whose first line is the hex private key",
						Value:   "sk.txt",
						EnvVars: []string{config.EnvKeyFile},
					},
					&cli.StringFlag{
						Name:    "keystore",
						Usage:   "Encrypted keystore file, takes precedence over --key-file",
						EnvVars: []string{config.EnvKeystorePath},
					},
					&cli.StringFlag{
						Name:    "keystore-password",
						Usage:   "Keystore password",
						EnvVars: []string{config.EnvKeystorePassword},
					},
					&cli.StringFlag{
						Name:    "contract-info",
						Usage:   "Contract info JSON keyed by chain",
						Value:   config.DefaultContractInfoFile,
						EnvVars: []string{config.EnvContractInfo},
					},
					&cli.Uint64Flag{
						Name:    "gas-limit",
						Usage:   "Gas limit, 0 to estimate",
						Value:   config.DefaultGasLimit,
						EnvVars: []string{config.EnvGasLimit},
					},
					&cli.Uint64Flag{
						Name:    "gas-price-gwei",
						Usage:   "Gas price in gwei, 0 to use the node's suggestion",
						Value:   config.DefaultGasPriceGwei,
						EnvVars: []string{config.EnvGasPriceGwei},
					},
					&cli.IntFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Leaf index to prove, -1 for a random leaf",
						Value:   config.RandomLeafIndex,
						EnvVars: []string{config.EnvLeafIndex},
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for the transaction to be mined",
					},
				},
				Action: submitCommand,
			},
			{
				Name:  "history",
				Usage: "List recorded submissions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print submissions as JSON",
					},
				},
				Action: historyCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
