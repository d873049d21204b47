// Package persistencetest holds the behaviour tests shared by every ISubmissionStore backend.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

// NewSubmission returns a populated submission submitted at the given time.
func NewSubmission(at time.Time) *types.Submission {
	return &types.Submission{
		ID:          uuid.NewString(),
		Chain:       "bsc",
		Account:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Contract:    common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		TxHash:      common.BytesToHash(uuid.New().NodeID()),
		Bundle:      types.NewProofBundle([32]byte{1}, 2, [32]byte{31: 5}, [][32]byte{{31: 5}, {9}}),
		Challenge:   "abcdefghijklmnopqrstuvwxyzABCDEF",
		Signature:   []byte{1, 2, 3, 4},
		SubmittedAt: at.UTC().Truncate(time.Second),
	}
}

// Run exercises a fresh store. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) persistence.ISubmissionStore) {
	t.Run("SaveAndLoad", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		sub := NewSubmission(time.Now())
		require.NoError(t, store.SaveSubmission(sub))

		loaded, err := store.LoadSubmission(sub.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, sub.ID, loaded.ID)
		assert.Equal(t, sub.TxHash, loaded.TxHash)
		assert.Equal(t, sub.Bundle, loaded.Bundle)
		assert.Equal(t, sub.Signature, loaded.Signature)
		assert.True(t, sub.SubmittedAt.Equal(loaded.SubmittedAt))
	})

	t.Run("LoadNotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadSubmission(uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		require.Error(t, store.SaveSubmission(nil))
		require.Error(t, store.SaveSubmission(&types.Submission{ID: "no-bundle"}))
	})

	t.Run("Overwrite", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		sub := NewSubmission(time.Now())
		require.NoError(t, store.SaveSubmission(sub))

		sub.Challenge = "updated"
		require.NoError(t, store.SaveSubmission(sub))

		loaded, err := store.LoadSubmission(sub.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated", loaded.Challenge)
	})

	t.Run("ListSorted", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		base := time.Now()
		later := NewSubmission(base.Add(2 * time.Minute))
		earlier := NewSubmission(base)
		middle := NewSubmission(base.Add(time.Minute))
		for _, s := range []*types.Submission{later, earlier, middle} {
			require.NoError(t, store.SaveSubmission(s))
		}

		list, err := store.ListSubmissions()
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, earlier.ID, list[0].ID)
		assert.Equal(t, middle.ID, list[1].ID)
		assert.Equal(t, later.ID, list[2].ID)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		list, err := store.ListSubmissions()
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		sub := NewSubmission(time.Now())
		require.NoError(t, store.SaveSubmission(sub))
		require.NoError(t, store.DeleteSubmission(sub.ID))

		loaded, err := store.LoadSubmission(sub.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		// Idempotent
		require.NoError(t, store.DeleteSubmission(sub.ID))

		list, err := store.ListSubmissions()
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("StoredCopyIsIsolated", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		sub := NewSubmission(time.Now())
		require.NoError(t, store.SaveSubmission(sub))
		sub.Bundle.Proof[0] = common.Hash{}

		loaded, err := store.LoadSubmission(sub.ID)
		require.NoError(t, err)
		assert.NotEqual(t, common.Hash{}, loaded.Bundle.Proof[0])
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sub := NewSubmission(time.Now().Add(time.Duration(i) * time.Second))
				sub.Challenge = fmt.Sprintf("challenge-%d", i)
				errs <- store.SaveSubmission(sub)
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		list, err := store.ListSubmissions()
		require.NoError(t, err)
		assert.Len(t, list, n)
	})

	t.Run("Closed", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		require.ErrorIs(t, store.HealthCheck(), persistence.ErrClosed)
		require.ErrorIs(t, store.SaveSubmission(NewSubmission(time.Now())), persistence.ErrClosed)
		_, err := store.LoadSubmission("x")
		require.ErrorIs(t, err, persistence.ErrClosed)
		_, err = store.ListSubmissions()
		require.ErrorIs(t, err, persistence.ErrClosed)
		require.ErrorIs(t, store.DeleteSubmission("x"), persistence.ErrClosed)
	})
}
