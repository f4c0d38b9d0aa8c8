package replica

import (
	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/ballot"
	"github.com/senutpal/paxledger/internal/paxos"
)

// decide is reached when this replica's own proposer round gathers an
// ACCEPTED quorum: broadcast DECIDE, commit to the log, advance the slot
// allocator, then run the shared completion/retry check against lockValue.
func (r *Replica) decide(slot int, b ballot.Ballot, v paxos.Value) {
	r.logger.WithFields(logrus.Fields{"slot": slot, "ballot": b}).Debug("replica: accept quorum formed, broadcasting DECIDE")
	_ = r.transport.Broadcast(paxos.Message{
		Slot: slot, Type: paxos.ProposerDecide, Source: r.self, Ballot: b,
		Metadata: paxos.Metadata{Value: v},
	})
	r.commitDecision(slot, v)
	r.checkLockCompletion(slot, v)
}

// handleDecide is reached on any replica, proposer or not, that observes a
// DECIDE: every replica learns the outcome the same way.
func (r *Replica) handleDecide(m paxos.Message) {
	r.logger.WithField("slot", m.Slot).Debug("replica: received DECIDE")
	r.commitDecision(m.Slot, m.Metadata.Value)
	r.checkLockCompletion(m.Slot, m.Metadata.Value)
}

// learnDecided is the decided-NACK path: a stale proposer learns a slot was
// already settled by someone else. The NACK's metadata carries the
// already-flattened log entry as a singleton Value; handleNackFor unwraps
// it, and it is wrapped again here before sharing commitDecision's logic.
func (r *Replica) learnDecided(slot int, tv paxos.TransactionValue) {
	r.commitDecision(slot, paxos.SingleValue(tv))
}

// commitDecision applies the state transition common to every path that
// learns a slot's outcome: mark the slot Decided, flatten into the log, and
// advance the allocator. A conflicting flatten or log entry means two
// different values were decided for the same slot — a safety violation
// that must never happen under correct operation — and is logged at Fatal
// rather than swallowed, since it indicates the Paxos core itself
// misbehaved.
func (r *Replica) commitDecision(slot int, v paxos.Value) {
	r.states[slot] = &paxos.Decided{Value: v}
	delete(r.rounds, slot)

	tv, err := v.Flatten()
	if err != nil {
		r.logger.WithError(err).WithField("slot", slot).Fatal("replica: cannot flatten decided value")
		return
	}
	if err := r.log.Append(slot, tv); err != nil {
		r.logger.WithError(err).WithField("slot", slot).Fatal("replica: safety violation committing decided value")
		return
	}
	r.allocator.MarkDecided(slot)
}

// checkLockCompletion is the completion/retry check shared by the
// proposer's own ACCEPTED-quorum path and any replica observing an
// external DECIDE: if the decided value equals or contains lockValue,
// signal the waiting Propose call; otherwise, only the round that was
// actually carrying lockValue retries on a fresh slot — an unrelated slot
// being decided elsewhere must not spawn a second, redundant attempt.
func (r *Replica) checkLockCompletion(slot int, decided paxos.Value) {
	if !r.lockSet {
		return
	}
	if decided.Contains(r.lockValue) {
		r.completeLock()
		return
	}
	if slot == r.lockRoundSlot {
		r.retryLockValueOnFreshSlot()
	}
}

func (r *Replica) completeLock() {
	done := r.lockDone
	r.lockSet = false
	r.lockDone = nil
	done <- nil
}

func (r *Replica) retryLockValueOnFreshSlot() {
	if !r.lockSet {
		return
	}
	slot := r.allocator.NextFreshSlot()
	r.launchRound(slot, r.ballots.Next(), paxos.SingleValue(r.lockValue))
}
