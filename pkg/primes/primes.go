// Package primes generates the ordered integer values that become merkle leaves.
package primes

import (
	"errors"
	"fmt"
)

const (
	// DefaultCount is the number of primes committed to the tree
	DefaultCount = 8192

	// DefaultSieveLimit bounds the sieve; the 8192nd prime is 84017
	DefaultSieveLimit = 100000
)

// ErrInsufficientLimit is returned when the sieve limit holds fewer primes than requested.
var ErrInsufficientLimit = errors.New("sieve limit too small for requested prime count")

// Sieve returns every prime strictly below limit in ascending order.
func Sieve(limit int) []uint64 {
	if limit < 2 {
		return []uint64{}
	}

	composite := make([]bool, limit)
	primes := make([]uint64, 0)
	for i := 2; i < limit; i++ {
		if composite[i] {
			continue
		}
		primes = append(primes, uint64(i))
		for j := i * i; j < limit; j += i {
			composite[j] = true
		}
	}
	return primes
}

// FirstN returns the first n primes, searching below limit.
func FirstN(n int, limit int) ([]uint64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prime count must be positive, got %d", n)
	}
	if limit < 2 {
		return nil, fmt.Errorf("sieve limit must be at least 2, got %d", limit)
	}

	all := Sieve(limit)
	if len(all) < n {
		return nil, fmt.Errorf("%w: found %d primes below %d, need %d", ErrInsufficientLimit, len(all), limit, n)
	}
	return all[:n:n], nil
}

// Source produces the first Count primes below Limit.
type Source struct {
	Count int
	Limit int
}

// NewDefaultSource returns a Source with the default count and sieve limit.
func NewDefaultSource() *Source {
	return &Source{Count: DefaultCount, Limit: DefaultSieveLimit}
}

// Values returns the primes in ascending order.
func (s *Source) Values() ([]uint64, error) {
	return FirstN(s.Count, s.Limit)
}
