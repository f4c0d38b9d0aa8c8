package replica

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/ballot"
	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/paxoserr"
)

// Propose is the Replica's public entry point: it records lockValue, drives
// a Paxos round (retrying across slots/ballots as needed), and blocks until
// value — or a MergedValue containing it — is written to the log. Only one
// Propose call is in flight at a time per replica; concurrent callers queue
// on proposeMu.
func (r *Replica) Propose(tv paxos.TransactionValue) error {
	r.proposeMu.Lock()
	defer r.proposeMu.Unlock()

	done := make(chan error, 1)
	r.enqueue(func() {
		r.lockValue = tv
		r.lockSet = true
		r.lockDone = done
		slot := r.allocator.NextFreshSlot()
		r.launchRound(slot, r.ballots.Next(), paxos.SingleValue(tv))
	})
	return <-done
}

// launchRound starts a fresh proposer attempt for slot under ballot b with
// intended value v. It self-applies PREPARE against this replica's own
// acceptor state before ever touching the network, so a replica's own vote
// is counted the same way a peer's would be, then broadcasts to peers.
// Runs on the actor goroutine.
func (r *Replica) launchRound(slot int, b ballot.Ballot, v paxos.Value) {
	round := &paxos.Proposing{
		Stage:    paxos.ProposerSentProposal,
		Ballot:   b,
		Value:    v,
		Prompted: make(map[paxos.Addr]bool),
	}
	r.rounds[slot] = round
	r.lockRoundSlot = slot
	r.logger.WithFields(logrus.Fields{"slot": slot, "ballot": b}).Debug("replica: launching round, sending PREPARE")

	self := r.applyPrepare(slot, b)
	r.countPromiseOrNack(slot, self)

	_ = r.transport.Broadcast(paxos.Message{
		Slot: slot, Type: paxos.ProposerPrepare, Source: r.self, Ballot: b,
	})
}

// countPromiseOrNack feeds one response (self-applied or network-delivered)
// into the round's bookkeeping. A stale response — no round in flight for
// slot, or a ballot that no longer matches it — is silently ignored.
func (r *Replica) countPromiseOrNack(slot int, m paxos.Message) {
	switch m.Type {
	case paxos.AcceptorPromise:
		r.handlePromiseFor(slot, m)
	case paxos.AcceptorNack:
		r.handleNackFor(slot, m)
	}
}

// handlePromise answers a network-delivered PROMISE.
func (r *Replica) handlePromise(m paxos.Message) {
	r.handlePromiseFor(m.Slot, m)
}

func (r *Replica) handlePromiseFor(slot int, m paxos.Message) {
	round, ok := r.rounds[slot]
	if !ok || round.Stage != paxos.ProposerSentProposal || !m.Ballot.Equal(round.Ballot) {
		return
	}
	if round.Prompted[m.Source] {
		return
	}
	round.Prompted[m.Source] = true

	first := len(round.Responses) == 0
	round.Responses = append(round.Responses, paxos.Response{
		From: m.Source, HighestBallot: m.Metadata.HighestBallot, Value: m.Metadata.Value,
	})
	r.logger.WithFields(logrus.Fields{"slot": slot, "from": m.Source, "have": len(round.Responses), "quorum": r.quorum}).Debug("replica: received PROMISE")

	if first {
		slot, b := slot, round.Ballot
		time.AfterFunc(promiseWindow, func() {
			r.enqueue(func() { r.onPromiseTimeout(slot, b) })
		})
	}
}

// onPromiseTimeout implements the quorum check and merge rule once the
// promise window closes. A stale firing — the round moved on, was decided,
// or restarted at a higher ballot — is a no-op.
func (r *Replica) onPromiseTimeout(slot int, b ballot.Ballot) {
	round, ok := r.rounds[slot]
	if !ok || round.Stage != paxos.ProposerSentProposal || !round.Ballot.Equal(b) {
		return
	}
	if len(round.Responses) < r.quorum {
		// Not enough promises arrived in the window; the round simply
		// stalls here. A future NACK or a client retry elsewhere will
		// eventually move it; there is no re-arm.
		r.logger.WithError(paxoserr.ErrNoQuorum).WithFields(logrus.Fields{"slot": slot, "have": len(round.Responses), "quorum": r.quorum}).Debug("replica: promise window closed short of quorum")
		return
	}

	v := r.mergeValue(round)
	r.logger.WithFields(logrus.Fields{"slot": slot, "ballot": b}).Debug("replica: promise quorum formed, sending ACCEPT")

	round.Value = v
	round.Stage = paxos.ProposerSentAccept
	round.Responses = nil
	round.Prompted = make(map[paxos.Addr]bool)

	self := r.applyAccept(slot, b, v)
	r.countAcceptedOrNack(slot, self)

	_ = r.transport.Broadcast(paxos.Message{
		Slot: slot, Type: paxos.ProposerAccept, Source: r.self, Ballot: b,
		Metadata: paxos.Metadata{Value: v},
	})
}

// mergeValue implements the Phase-1 merge rule: pick the highest-ballot
// previously-accepted value if quorum safety requires carrying it forward,
// else fold every distinct same-kind value (including lockValue) into a
// MergedValue so no proposal is lost.
func (r *Replica) mergeValue(round *paxos.Proposing) paxos.Value {
	var (
		haveHighest  bool
		highestB     ballot.Ballot
		highestValue paxos.Value
	)
	for _, resp := range round.Responses {
		if resp.HighestBallot.IsZero() {
			continue
		}
		if !haveHighest || resp.HighestBallot.Greater(highestB) {
			haveHighest = true
			highestB = resp.HighestBallot
			highestValue = resp.Value
		}
	}

	if !haveHighest {
		return round.Value // every response carried a null value: keep lockValue
	}

	votes := 0
	for _, resp := range round.Responses {
		if resp.Value.Equal(highestValue) {
			votes++
		}
	}
	unheard := r.n - len(round.Responses)
	if votes+unheard >= r.quorum {
		return highestValue
	}

	// Safe to fold in our own value: no prior round could have reached
	// quorum on highestValue given the silent replicas.
	seen := map[string]bool{}
	members := make([]paxos.TransactionValue, 0, len(round.Responses)+1)
	add := func(v paxos.Value) {
		for _, tv := range v.Members() {
			key := string(tv.Kind) + "|" + tv.Hash
			if !seen[key] {
				seen[key] = true
				members = append(members, tv)
			}
		}
	}
	wantKind := kindOf(round.Value)
	for _, resp := range round.Responses {
		if resp.Value.IsZero() {
			continue
		}
		if kindOf(resp.Value) != wantKind {
			continue // different transaction kind: merge only same-kind values
		}
		add(resp.Value)
	}
	add(round.Value)
	return paxos.MergedValueOf(members...)
}

func kindOf(v paxos.Value) paxos.TransactionKind {
	if tv, ok := v.AsSingle(); ok {
		return tv.Kind
	}
	members := v.Members()
	if len(members) > 0 {
		return members[0].Kind
	}
	return ""
}

// handleAccepted answers a network-delivered ACCEPTED.
func (r *Replica) handleAccepted(m paxos.Message) {
	r.countAcceptedOrNack(m.Slot, m)
}

func (r *Replica) countAcceptedOrNack(slot int, m paxos.Message) {
	switch m.Type {
	case paxos.AcceptorAccepted:
		r.handleAcceptedFor(slot, m)
	case paxos.AcceptorNack:
		r.handleNackFor(slot, m)
	}
}

func (r *Replica) handleAcceptedFor(slot int, m paxos.Message) {
	round, ok := r.rounds[slot]
	if !ok || round.Stage != paxos.ProposerSentAccept || !m.Ballot.Equal(round.Ballot) {
		return
	}
	if !m.Metadata.Value.Equal(round.Value) {
		return
	}
	if round.Prompted[m.Source] {
		return
	}
	round.Prompted[m.Source] = true
	round.Responses = append(round.Responses, paxos.Response{From: m.Source})
	r.logger.WithFields(logrus.Fields{"slot": slot, "from": m.Source, "have": len(round.Responses), "quorum": r.quorum}).Debug("replica: received ACCEPTED")

	if len(round.Responses) >= r.quorum {
		r.decide(slot, round.Ballot, round.Value)
	}
}

// handleNack handles both the decided-NACK and ballot-rejection cases, fed
// from either phase's response handler.
func (r *Replica) handleNack(m paxos.Message) {
	r.handleNackFor(m.Slot, m)
}

func (r *Replica) handleNackFor(slot int, m paxos.Message) {
	if m.Metadata.Decided {
		tv, ok := m.Metadata.Value.AsSingle()
		if !ok {
			return
		}
		r.logger.WithError(paxoserr.ErrSlotDecided).WithFields(logrus.Fields{"slot": slot, "from": m.Source}).Debug("replica: slot already decided, relearning and retrying on a fresh slot")
		r.learnDecided(slot, tv)
		r.retryLockValueOnFreshSlot()
		return
	}

	round, ok := r.rounds[slot]
	if !ok {
		return
	}
	if m.Metadata.HighestBallot.Less(round.Ballot) {
		return // NACK ballot is lower than our current ballot: stale, ignore
	}
	if round.Stage == paxos.ProposerReceivedNack {
		return // dedup
	}
	r.logger.WithError(paxoserr.ErrRejected).WithFields(logrus.Fields{"slot": slot, "from": m.Source, "highestBallot": m.Metadata.HighestBallot}).Debug("replica: proposal rejected, scheduling retry at a higher ballot")
	r.ballots.Observe(m.Metadata.HighestBallot)
	round.Stage = paxos.ProposerReceivedNack

	backoff := nackBackoffMin + time.Duration(rand.Int63n(int64(nackBackoffMax-nackBackoffMin)))
	nackedBallot := round.Ballot
	nextBallot := m.Metadata.HighestBallot.Next(r.self.String())
	time.AfterFunc(backoff, func() {
		r.enqueue(func() {
			cur, ok := r.rounds[slot]
			if !ok || cur.Stage != paxos.ProposerReceivedNack || !cur.Ballot.Equal(nackedBallot) {
				return // decided or restarted meanwhile: stale firing
			}
			if r.lockSet {
				r.launchRound(slot, nextBallot, paxos.SingleValue(r.lockValue))
			}
		})
	})
}
