package challenge

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	c, err := Generate(DefaultLength)
	require.NoError(t, err)
	require.Len(t, c, DefaultLength)
	for _, r := range c {
		assert.True(t, strings.ContainsRune(letters, r), "unexpected character %q", r)
	}

	other, err := Generate(DefaultLength)
	require.NoError(t, err)
	assert.NotEqual(t, c, other)

	_, err = Generate(0)
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr, sig, err := Sign(key, "hello challenge")
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)
	require.Len(t, sig, SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[64])

	ok, err := Verify("hello challenge", addr, sig)
	require.NoError(t, err)
	require.True(t, ok)

	recovered, err := Recover("hello challenge", sig)
	require.NoError(t, err)
	require.Equal(t, addr, recovered)
}

func TestVerifyRejects(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr, sig, err := Sign(key, "challenge")
	require.NoError(t, err)

	t.Run("Different message", func(t *testing.T) {
		ok, err := Verify("challenge!", addr, sig)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Different address", func(t *testing.T) {
		ok, err := Verify("challenge", crypto.PubkeyToAddress(otherKey.PublicKey), sig)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Wrong length", func(t *testing.T) {
		_, err := Verify("challenge", addr, sig[:64])
		require.Error(t, err)
	})

	t.Run("Signature is not mutated", func(t *testing.T) {
		before := append([]byte{}, sig...)
		_, err := Verify("challenge", addr, sig)
		require.NoError(t, err)
		require.Equal(t, before, sig)
	})
}

func TestSignNilKey(t *testing.T) {
	_, _, err := Sign(nil, "challenge")
	require.Error(t, err)

	_, err = NewSigner(nil)
	require.Error(t, err)
}

func TestSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	signer, err := NewSigner(key)
	require.NoError(t, err)

	addr, sig, err := signer.SignChallenge("abc")
	require.NoError(t, err)
	require.Equal(t, signer.Address(), addr)

	ok, err := signer.VerifyChallenge("abc", addr, sig)
	require.NoError(t, err)
	require.True(t, ok)
}
