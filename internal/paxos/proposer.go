package paxos

import "github.com/senutpal/paxledger/internal/ballot"

// BallotGenerator hands out strictly-increasing ballots for one proposer
// identity. A single counter is shared across every slot a replica
// proposes for, since freshness only requires the (n, tiebreak) pair to be
// unused per slot, and a single global counter is the simplest way to
// guarantee that.
type BallotGenerator struct {
	tiebreak string
	highest  int64
}

// NewBallotGenerator returns a generator whose ballots all carry tiebreak.
func NewBallotGenerator(tiebreak string) *BallotGenerator {
	return &BallotGenerator{tiebreak: tiebreak}
}

// Next returns a ballot strictly higher than any ballot this generator has
// produced or observed via Observe.
func (g *BallotGenerator) Next() ballot.Ballot {
	g.highest++
	return ballot.New(g.highest, g.tiebreak)
}

// Observe folds a ballot seen in a NACK/rejection into the generator so the
// next call to Next skips past it.
func (g *BallotGenerator) Observe(seen ballot.Ballot) {
	if seen.N > g.highest {
		g.highest = seen.N
	}
}
