package memory

import (
	"fmt"
	"sync"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/persistence"
	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

// MemoryPersistence is an in-memory implementation of ISubmissionStore.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Deep copies data to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Submissions: id -> serialized Submission
	submissions map[string][]byte

	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		submissions: make(map[string][]byte),
	}
}

// SaveSubmission persists a submission.
func (m *MemoryPersistence) SaveSubmission(submission *types.Submission) error {
	if submission == nil {
		return fmt.Errorf("cannot save nil Submission")
	}
	if err := submission.Validate(); err != nil {
		return err
	}

	// Stored serialized so callers can't mutate the stored copy
	data, err := persistence.MarshalSubmission(submission)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	m.submissions[submission.ID] = data
	return nil
}

// LoadSubmission retrieves a submission by ID.
func (m *MemoryPersistence) LoadSubmission(id string) (*types.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	data, exists := m.submissions[id]
	if !exists {
		return nil, nil
	}
	return persistence.UnmarshalSubmission(data)
}

// ListSubmissions returns all submissions sorted by submission time.
func (m *MemoryPersistence) ListSubmissions() ([]*types.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrClosed
	}

	submissions := make([]*types.Submission, 0, len(m.submissions))
	for id, data := range m.submissions {
		s, err := persistence.UnmarshalSubmission(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode submission %s: %w", id, err)
		}
		submissions = append(submissions, s)
	}

	persistence.SortSubmissions(submissions)
	return submissions, nil
}

// DeleteSubmission removes a submission.
func (m *MemoryPersistence) DeleteSubmission(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrClosed
	}

	delete(m.submissions, id)
	return nil
}

// Close marks the persistence layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the persistence layer is operational.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrClosed
	}
	return nil
}
