package replica

import (
	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/ballot"
	"github.com/senutpal/paxledger/internal/paxos"
)

// applyPrepare implements the acceptor's response to PREPARE against this
// replica's own state. It is called identically whether the PREPARE
// originated on the wire (handlePrepare) or locally, when this replica
// plays proposer for the same slot: proposer.go's launchRound calls it
// against itself before ever touching the network, so a replica's own
// acceptor vote is counted the same way a peer's would be.
func (r *Replica) applyPrepare(slot int, b ballot.Ballot) paxos.Message {
	reply := paxos.Message{Slot: slot, Source: r.self, Ballot: b}

	if v, ok := r.log.Has(slot); ok {
		reply.Type = paxos.AcceptorNack
		reply.Metadata = paxos.Metadata{Decided: true, Value: paxos.SingleValue(v)}
		return reply
	}

	st, ok := r.states[slot]
	if !ok {
		r.states[slot] = &paxos.Accepting{HighestBallot: b}
		reply.Type = paxos.AcceptorPromise
		reply.Metadata = paxos.Metadata{HighestBallot: ballot.Zero}
		return reply
	}

	// r.states only ever holds Accepting or Decided (proposer bookkeeping
	// lives in r.rounds instead); a Decided slot already returned above
	// via log.Has, so this is always an *Accepting.
	s := st.(*paxos.Accepting)
	if b.GreaterOrEqual(s.HighestBallot) {
		reply.Type = paxos.AcceptorPromise
		reply.Metadata = paxos.Metadata{HighestBallot: s.AcceptedBallot, Value: s.Value}
		s.HighestBallot = b
		return reply
	}
	reply.Type = paxos.AcceptorNack
	reply.Metadata = paxos.Metadata{HighestBallot: s.HighestBallot, Value: s.Value}
	return reply
}

// handlePrepare answers a network-delivered PREPARE.
func (r *Replica) handlePrepare(m paxos.Message) {
	reply := r.applyPrepare(m.Slot, m.Ballot)
	r.logger.WithFields(logrus.Fields{"slot": m.Slot, "ballot": m.Ballot, "reply": reply.Type}).Debug("replica: handled PREPARE")
	_ = r.transport.Send(m.Source, reply)
}

// applyAccept implements the acceptor's response to ACCEPT, again callable
// against self or a remote proposer identically.
func (r *Replica) applyAccept(slot int, b ballot.Ballot, v paxos.Value) paxos.Message {
	reply := paxos.Message{Slot: slot, Source: r.self, Ballot: b}

	st, ok := r.states[slot]
	s, isAccepting := st.(*paxos.Accepting)
	if !ok || !isAccepting {
		// No Accepting record for this slot: reply with a NACK carrying a
		// zero floor. handleNackFor ignores a NACK whose ballot is below
		// the round's, so for the proposer this has the same effect as no
		// reply at all.
		reply.Type = paxos.AcceptorNack
		return reply
	}

	if b.GreaterOrEqual(s.HighestBallot) {
		s.HighestBallot = b
		s.AcceptedBallot = b
		s.Value = v
		reply.Type = paxos.AcceptorAccepted
		reply.Metadata = paxos.Metadata{Value: v}
		return reply
	}
	reply.Type = paxos.AcceptorNack
	reply.Metadata = paxos.Metadata{HighestBallot: s.HighestBallot}
	return reply
}

// handleAccept answers a network-delivered ACCEPT.
func (r *Replica) handleAccept(m paxos.Message) {
	reply := r.applyAccept(m.Slot, m.Ballot, m.Metadata.Value)
	r.logger.WithFields(logrus.Fields{"slot": m.Slot, "ballot": m.Ballot, "reply": reply.Type}).Debug("replica: handled ACCEPT")
	_ = r.transport.Send(m.Source, reply)
}
