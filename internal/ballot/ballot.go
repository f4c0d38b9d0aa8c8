// Package ballot implements the totally-ordered proposal numbers that drive
// ballot discipline across the Paxos state machine. A Ballot is a pair
// (N, Tiebreak): N is a counter a proposer increments on every fresh
// attempt, Tiebreak is the proposer's stable address so that two replicas
// proposing at the same N never collide.
package ballot

import "fmt"

// Ballot is ordered lexicographically on (N, Tiebreak).
type Ballot struct {
	N        int64
	Tiebreak string
}

// Zero is less than every ballot a proposer can legitimately generate
// (N starts at 1), and marks "no prior promise/accept" in Promise/NACK
// metadata.
var Zero = Ballot{}

// New returns the ballot (n, tiebreak).
func New(n int64, tiebreak string) Ballot {
	return Ballot{N: n, Tiebreak: tiebreak}
}

// IsZero reports whether b is the zero ballot.
func (b Ballot) IsZero() bool {
	return b == Zero
}

// Less reports whether b sorts strictly before o.
func (b Ballot) Less(o Ballot) bool {
	if b.N != o.N {
		return b.N < o.N
	}
	return b.Tiebreak < o.Tiebreak
}

// Greater reports whether b sorts strictly after o.
func (b Ballot) Greater(o Ballot) bool {
	return o.Less(b)
}

// GreaterOrEqual reports whether b sorts at or after o.
func (b Ballot) GreaterOrEqual(o Ballot) bool {
	return !b.Less(o)
}

// Equal reports whether b and o are the same ballot.
func (b Ballot) Equal(o Ballot) bool {
	return b == o
}

// Next returns a ballot with a strictly higher N than b, keeping tiebreak.
// A proposer must never reuse (n, tiebreak) across distinct rounds for the
// same slot without incrementing n; routing restarts through Next instead
// of constructing a Ballot by hand keeps that invariant in one place.
func (b Ballot) Next(tiebreak string) Ballot {
	return Ballot{N: b.N + 1, Tiebreak: tiebreak}
}

func (b Ballot) String() string {
	return fmt.Sprintf("(%d,%s)", b.N, b.Tiebreak)
}
