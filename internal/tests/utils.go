package tests

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Default anvil accounts, derived from the "test test ... junk" mnemonic
const (
	AnvilAccountPrivateKey0 = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	AnvilAccountAddress0    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	AnvilAccountPrivateKey1 = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	AnvilAccountAddress1    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func GetProjectRootPath() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	startingPath := ""
	iterations := 0
	for {
		if iterations > 10 {
			panic("Could not find project root path")
		}
		iterations++
		p, err := filepath.Abs(fmt.Sprintf("%s/%s", wd, startingPath))
		if err != nil {
			panic(err)
		}

		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return p
		}
		match := regexp.MustCompile(`\/merkle-submitter-go([A-Za-z0-9_-]+)?\/?$`)
		if match.MatchString(p) {
			return p
		}
		startingPath = startingPath + "/.."
	}
}

// WriteKeyFile writes a key file in the "first line is the hex key" format and returns its path
func WriteKeyFile(dir string, hexKey string) (string, error) {
	path := filepath.Join(dir, "sk.txt")
	if err := os.WriteFile(path, []byte(hexKey+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	return path, nil
}

// WriteContractInfo writes a contract_info.json with a single chain entry and returns its path
func WriteContractInfo(dir string, chain string, address string, abiJSON string) (string, error) {
	path := filepath.Join(dir, "contract_info.json")
	content := fmt.Sprintf(`{"%s": {"address": "%s", "abi": %s}}`, chain, address, abiJSON)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write contract info: %w", err)
	}
	return path, nil
}
