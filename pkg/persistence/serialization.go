package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Layr-Labs/merkle-submitter-go/pkg/types"
)

// MarshalSubmission serializes a Submission to JSON bytes.
func MarshalSubmission(s *types.Submission) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot marshal nil Submission")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Submission to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalSubmission deserializes a Submission from JSON bytes.
func UnmarshalSubmission(data []byte) (*types.Submission, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var s types.Submission
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to Submission: %w", err)
	}

	return &s, nil
}

// SortSubmissions orders submissions by time, then ID for stability.
func SortSubmissions(submissions []*types.Submission) {
	sort.Slice(submissions, func(i, j int) bool {
		if submissions[i].SubmittedAt.Equal(submissions[j].SubmittedAt) {
			return submissions[i].ID < submissions[j].ID
		}
		return submissions[i].SubmittedAt.Before(submissions[j].SubmittedAt)
	})
}
