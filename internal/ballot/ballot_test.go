package ballot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/senutpal/paxledger/internal/ballot"
)

func TestOrdering(t *testing.T) {
	a := ballot.New(1, "10.0.0.1:9000")
	b := ballot.New(1, "10.0.0.2:9000")
	c := ballot.New(2, "10.0.0.1:9000")

	assert.True(t, a.Less(b), "same N, tiebreak decides")
	assert.True(t, b.Less(c), "higher N always wins")
	assert.True(t, a.Less(c))
	assert.False(t, c.Less(a))
}

func TestZero(t *testing.T) {
	assert.True(t, ballot.Zero.IsZero())
	assert.False(t, ballot.New(1, "x").IsZero())
	assert.True(t, ballot.Zero.Less(ballot.New(1, "x")))
}

func TestNextMonotonic(t *testing.T) {
	b := ballot.New(5, "r1")
	n := b.Next("r1")
	assert.Equal(t, int64(6), n.N)
	assert.True(t, n.Greater(b))

	// A ballot built from the N of a higher ballot seen in a NACK sorts
	// after that ballot.
	seen := ballot.New(9, "r2")
	var next ballot.Ballot
	if seen.N > b.N {
		next = ballot.New(seen.N+1, "r1")
	}
	assert.True(t, next.Greater(seen))
}
