package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultTestFraction is the share of the pooled rows held out for testing.
const DefaultTestFraction = 0.15

var ErrTooFewSessions = errors.New("split needs at least 2 sessions")

// Splits holds the three evaluation sets.
type Splits struct {
	Train  Set
	Test   Set
	Unseen Set
}

// Split reserves the last session as the unseen set and randomly divides the
// remaining sessions' rows into train and test. The test set gets
// ceil(testFraction·n) rows. The unseen set never depends on seed.
func Split(perSession []Set, testFraction float64, seed uint64) (Splits, error) {
	if len(perSession) < 2 {
		return Splits{}, fmt.Errorf("%w: got %d", ErrTooFewSessions, len(perSession))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return Splits{}, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}

	last := perSession[len(perSession)-1]
	pool, err := Concat("pool", perSession[:len(perSession)-1]...)
	if err != nil {
		return Splits{}, err
	}

	n := pool.Len()
	nTest := int(math.Ceil(testFraction * float64(n)))
	if nTest == 0 || nTest >= n {
		return Splits{}, fmt.Errorf("%w: %d pooled rows cannot be split at %v", ErrEmptySet, n, testFraction)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)

	return Splits{
		Train:  pool.Rows("train", perm[nTest:]),
		Test:   pool.Rows("test", perm[:nTest]),
		Unseen: last,
	}, nil
}
