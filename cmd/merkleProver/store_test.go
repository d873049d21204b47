package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence/persistencetest"
)

func TestNewStore(t *testing.T) {
	l := zap.NewNop()

	t.Run("Memory", func(t *testing.T) {
		store, err := newStore(&config.PersistenceConfig{Type: config.PersistenceType_Memory}, l)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()
		require.NoError(t, store.HealthCheck())
	})

	t.Run("Badger", func(t *testing.T) {
		cfg := &config.PersistenceConfig{Type: config.PersistenceType_Badger, DataPath: t.TempDir()}
		store, err := newStore(cfg, l)
		require.NoError(t, err)
		require.NoError(t, store.SaveSubmission(persistencetest.NewSubmission(time.Now())))
		require.NoError(t, store.Close())

		reopened, err := newStore(cfg, l)
		require.NoError(t, err)
		defer func() { _ = reopened.Close() }()
		all, err := reopened.ListSubmissions()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := newStore(&config.PersistenceConfig{Type: "sqlite"}, l)
		require.Error(t, err)
	})
}
