package persistence

import (
	"errors"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("persistence layer is closed")

// ISubmissionStore persists records of proofs submitted on chain.
// The merkle tree itself is never stored; it is rebuilt from its inputs.
// All implementations must be thread-safe.
type ISubmissionStore interface {
	// SaveSubmission persists a submission indexed by its ID.
	// Overwrites any existing submission with the same ID.
	SaveSubmission(submission *types.Submission) error

	// LoadSubmission retrieves a submission by ID.
	// Returns nil if it doesn't exist, error only on storage failure.
	LoadSubmission(id string) (*types.Submission, error)

	// ListSubmissions returns all submissions sorted by SubmittedAt (ascending).
	// Returns empty slice if none exist.
	ListSubmissions() ([]*types.Submission, error)

	// DeleteSubmission removes a submission. Idempotent.
	DeleteSubmission(id string) error

	// Close cleanly shuts down the persistence layer. Idempotent.
	// After Close(), all other operations return ErrClosed.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	HealthCheck() error
}
