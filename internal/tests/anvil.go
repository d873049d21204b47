package tests

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

type AnvilConfig struct {
	BlockTime  string `json:"blockTime"`
	PortNumber string `json:"portNumber"`
	ChainId    string `json:"chainId"`
}

func (c *AnvilConfig) RpcUrl() string {
	return fmt.Sprintf("http://127.0.0.1:%s", c.PortNumber)
}

// AnvilAvailable reports whether the anvil binary is on PATH
func AnvilAvailable() bool {
	_, err := exec.LookPath("anvil")
	return err == nil
}

func StartAnvil(ctx context.Context, cfg *AnvilConfig) (*exec.Cmd, error) {
	args := []string{
		"--chain-id", cfg.ChainId,
		"--port", cfg.PortNumber,
	}
	if cfg.BlockTime != "" {
		args = append(args, "--block-time", cfg.BlockTime)
	}
	fmt.Printf("Starting anvil with args: %v\n", args)
	cmd := exec.CommandContext(ctx, "anvil", args...)
	cmd.Stderr = os.Stderr

	joinOutput := os.Getenv("JOIN_ANVIL_OUTPUT")
	if joinOutput == "true" {
		cmd.Stdout = os.Stdout
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start anvil: %w", err)
	}
	return cmd, nil
}

// WaitForAnvil polls the node until it answers eth_chainId or the context ends
func WaitForAnvil(ctx context.Context, t *testing.T, rpcUrl string) (*ethclient.Client, error) {
	for i := 1; ; i++ {
		client, err := ethclient.DialContext(ctx, rpcUrl)
		if err == nil {
			if _, err = client.ChainID(ctx); err == nil {
				t.Logf("Anvil is up and running at %s", rpcUrl)
				return client, nil
			}
			client.Close()
		}
		t.Logf("Anvil not ready yet, retrying... %d", i)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to start anvil: %w", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func KillAnvil(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return fmt.Errorf("anvil command is not running")
	}

	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill anvil process: %w", err)
	}
	_ = cmd.Wait()

	fmt.Println("Anvil process killed successfully")
	return nil
}

// StartChainAnvil starts a local anvil that reports the given chain id
func StartChainAnvil(ctx context.Context, t *testing.T, chainId uint64, port string) (*ethclient.Client, func(), error) {
	cfg := &AnvilConfig{
		BlockTime:  "1",
		PortNumber: port,
		ChainId:    fmt.Sprintf("%d", chainId),
	}
	cmd, err := StartAnvil(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := WaitForAnvil(ctx, t, cfg.RpcUrl())
	if err != nil {
		_ = KillAnvil(cmd)
		return nil, nil, err
	}

	cleanup := func() {
		client.Close()
		if err := KillAnvil(cmd); err != nil {
			t.Logf("Warning: failed to kill anvil: %v", err)
		}
	}
	return client, cleanup, nil
}
