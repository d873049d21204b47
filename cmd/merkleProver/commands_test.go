package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/merkle"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	app := newApp()
	// Keep exit codes from terminating the test binary
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app.Run(append([]string{"merkle-prover", "--num-primes", "16", "--sieve-limit", "100"}, args...))
}

func TestProveThenVerify(t *testing.T) {
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")

	require.NoError(t, runApp(t, "prove", "--index", "5", "--output", bundlePath))

	data, err := os.ReadFile(bundlePath)
	require.NoError(t, err)

	var bundle types.ProofBundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	assert.Equal(t, 5, bundle.LeafIndex)
	assert.Equal(t, uint64(13), merkle.DecodeLeaf(bundle.Leaf).Uint64())
	assert.Len(t, bundle.Proof, 4)

	require.NoError(t, runApp(t, "verify", "--bundle", bundlePath, "--check-root"))
}

func TestVerifyRejectsTamperedBundle(t *testing.T) {
	dir := t.TempDir()
	bundlePath := filepath.Join(dir, "bundle.json")
	require.NoError(t, runApp(t, "prove", "--index", "2", "--output", bundlePath))

	data, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	var bundle types.ProofBundle
	require.NoError(t, json.Unmarshal(data, &bundle))

	bundle.Leaf[31] ^= 0x01
	tampered, err := json.Marshal(&bundle)
	require.NoError(t, err)
	tamperedPath := filepath.Join(dir, "tampered.json")
	require.NoError(t, os.WriteFile(tamperedPath, tampered, 0644))

	require.Error(t, runApp(t, "verify", "--bundle", tamperedPath))
}

func TestVerifyRejectsForeignRoot(t *testing.T) {
	bundlePath := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, runApp(t, "prove", "--index", "0", "--output", bundlePath))

	// Same bundle checked against a tree over more primes
	app := newApp()
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run([]string{"merkle-prover", "--num-primes", "17", "--sieve-limit", "100", "verify", "--bundle", bundlePath, "--check-root"})
	require.Error(t, err)
}

func TestProveOutOfRange(t *testing.T) {
	require.ErrorIs(t, runApp(t, "prove", "--index", "16"), merkle.ErrIndexOutOfRange)
}

func TestRootCommand(t *testing.T) {
	require.NoError(t, runApp(t, "root"))
}

func TestSubmitRejectsUnknownChain(t *testing.T) {
	require.Error(t, runApp(t, "submit", "--chain", "solana"))
}
