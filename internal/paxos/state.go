// Per-slot Paxos state.
//
// Rather than one PaxosState struct with role/stage enums and null-guarded
// fields, each slot's state is one of three closed variants: a slot is
// either mid-proposal, mid-acceptance, or settled, and the type system
// enforces that a caller can't read fields that don't apply to the current
// variant.
package paxos

import "github.com/senutpal/paxledger/internal/ballot"

// ProposerStage distinguishes where a Proposing slot sits in the proposer
// side of the state machine.
type ProposerStage int

const (
	ProposerSentProposal ProposerStage = iota
	ProposerSentAccept
	ProposerReceivedNack
)

// Response is one promise/accept reply folded into a Proposing slot's
// bookkeeping, keyed by the responder so duplicates are easy to detect.
type Response struct {
	From          Addr
	HighestBallot ballot.Ballot
	Value         Value
}

// SlotState is a closed sum type: exactly one of Proposing, Accepting or
// Decided occupies a slot in the replica's state map at any time.
type SlotState interface {
	isSlotState()
}

// Proposing is the proposer-role record for a slot: the ballot currently in
// flight, the value being proposed (possibly merged), and the responses
// gathered so far.
type Proposing struct {
	Stage     ProposerStage
	Ballot    ballot.Ballot
	Value     Value
	Responses []Response
	// Prompted records which responders have already been counted in
	// Responses for Ballot (self included), so a duplicated network
	// delivery of the same PROMISE/ACCEPTED is not double-counted toward
	// quorum.
	Prompted map[Addr]bool
}

func (*Proposing) isSlotState() {}

// Accepting is the acceptor-role record for a slot. HighestBallot is the
// promise floor: the highest ballot this replica has promised not to
// undercut, bumped on every PREPARE/ACCEPT it honors. AcceptedBallot and
// Value are only set by ACCEPT: the ballot under which Value
// was accepted, separate from HighestBallot so a PROMISE reply can report
// "what I previously accepted" even after a later PREPARE has raised
// HighestBallot past it.
type Accepting struct {
	HighestBallot  ballot.Ballot
	AcceptedBallot ballot.Ballot
	Value          Value
}

func (*Accepting) isSlotState() {}

// Decided is the terminal, learner-role record for a slot once any replica
// observes a DECIDE for it.
type Decided struct {
	Value Value
}

func (*Decided) isSlotState() {}
