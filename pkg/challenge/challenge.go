// Package challenge signs and verifies free-form challenge strings with an
// Ethereum account key, using the EIP-191 personal message format.
package challenge

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// DefaultLength is the default number of characters in a generated challenge
	DefaultLength = 32

	// SignatureLength is the length of an r || s || v signature
	SignatureLength = 65

	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generate returns a random challenge of ASCII letters.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("challenge length must be positive, got %d", length)
	}

	upper := big.NewInt(int64(len(letters)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", fmt.Errorf("failed to generate challenge: %w", err)
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

// Sign signs the challenge as an EIP-191 personal message and returns the
// signer address with a 65 byte signature whose recovery byte is 27 or 28.
func Sign(privateKey *ecdsa.PrivateKey, challenge string) (common.Address, []byte, error) {
	if privateKey == nil {
		return common.Address{}, nil, fmt.Errorf("private key is nil")
	}

	signature, err := crypto.Sign(accounts.TextHash([]byte(challenge)), privateKey)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to sign challenge: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27

	return crypto.PubkeyToAddress(privateKey.PublicKey), signature, nil
}

// Recover returns the address that produced signature over the challenge.
func Recover(challenge string, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: expected %d bytes, got %d", SignatureLength, len(signature))
	}

	// Adjust recovery byte if needed
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	recoveredPubKey, err := crypto.SigToPub(accounts.TextHash([]byte(challenge)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*recoveredPubKey), nil
}

// Verify reports whether signature over challenge was produced by address.
// A well-formed signature from another account is a false result, not an error.
func Verify(challenge string, address common.Address, signature []byte) (bool, error) {
	recovered, err := Recover(challenge, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}

// Signer signs challenges with a fixed account key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
}

// NewSigner creates a Signer for the given key.
func NewSigner(privateKey *ecdsa.PrivateKey) (*Signer, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	return &Signer{privateKey: privateKey}, nil
}

// Address returns the account address of the signer.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.privateKey.PublicKey)
}

// SignChallenge signs a challenge with the signer's key.
func (s *Signer) SignChallenge(challenge string) (common.Address, []byte, error) {
	return Sign(s.privateKey, challenge)
}

// VerifyChallenge checks a signature against an address.
func (s *Signer) VerifyChallenge(challenge string, address common.Address, signature []byte) (bool, error) {
	return Verify(challenge, address, signature)
}
