package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/config"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence/badger"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence/memory"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence/redis"
)

// newStore opens the submission store selected by cfg
func newStore(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.ISubmissionStore, error) {
	switch cfg.Type {
	case config.PersistenceType_Memory:
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceType_Badger:
		store, err := badger.NewBadgerPersistence(cfg.DataPath, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return store, nil
	case config.PersistenceType_Redis:
		store, err := redis.NewRedisPersistence(&redis.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
