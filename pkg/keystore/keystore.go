// Package keystore loads the account key used to sign challenges and transactions.
package keystore

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParsePrivateKey parses a hex encoded secp256k1 private key, with or without a 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	if hexKey == "" {
		return nil, fmt.Errorf("private key cannot be empty")
	}
	if len(hexKey) != 64 {
		return nil, fmt.Errorf("private key must be 32 bytes (64 hex chars), got %d chars", len(hexKey))
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// LoadPrivateKeyFromFile reads a hex private key from the first line of a file.
func LoadPrivateKeyFromFile(path string) (*ecdsa.PrivateKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
		}
		return nil, fmt.Errorf("key file %s is empty", path)
	}

	return ParsePrivateKey(scanner.Text())
}

// LoadFromEncryptedKeystore decrypts a V3 JSON keystore file.
func LoadFromEncryptedKeystore(path string, password string) (*ecdsa.PrivateKey, error) {
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore file %s: %w", path, err)
	}

	key, err := gethkeystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore file %s: %w", path, err)
	}
	return key.PrivateKey, nil
}

// Source describes where to load the account key from. KeystorePath takes
// precedence over KeyFile when both are set.
type Source struct {
	KeyFile          string
	KeystorePath     string
	KeystorePassword string
}

// Load returns the private key from the configured source.
func (s *Source) Load() (*ecdsa.PrivateKey, error) {
	switch {
	case s.KeystorePath != "":
		return LoadFromEncryptedKeystore(s.KeystorePath, s.KeystorePassword)
	case s.KeyFile != "":
		return LoadPrivateKeyFromFile(s.KeyFile)
	default:
		return nil, fmt.Errorf("no key file or keystore configured")
	}
}
