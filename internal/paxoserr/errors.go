// Package paxoserr defines the sentinel errors the consensus core surfaces
// to its own callers. Transient network and ballot-rejection conditions are
// expected outcomes of running Paxos over an unreliable transport, not bugs;
// they are modeled as values so callers can distinguish them with errors.Is
// rather than parsing strings.
package paxoserr

import (
	"strconv"

	"github.com/pkg/errors"
)

var (
	// ErrRejected marks an acceptor NACK of a PREPARE or ACCEPT because it
	// has already promised a higher ballot. The replica attaches it to its
	// debug log entry for the NACK; no function returns it.
	ErrRejected = errors.New("paxos: proposal rejected")

	// ErrSlotDecided marks a PREPARE that landed on a slot that already has
	// a decided value; the proposer relearns it and retries elsewhere. The
	// replica attaches it to its debug log entry; no function returns it.
	ErrSlotDecided = errors.New("paxos: slot already decided")

	// ErrTimeout is returned by transport.ReceiveTimeout when its deadline
	// passes without a datagram arriving.
	ErrTimeout = errors.New("paxos: receive timed out")

	// ErrFailed is returned by transport operations while the transport has
	// been administratively failed via fail().
	ErrFailed = errors.New("paxos: transport is failed")

	// ErrNoQuorum marks a promise window that closed without reaching
	// quorum; the replica attaches it to its debug log entry and no
	// function returns it.
	ErrNoQuorum = errors.New("paxos: quorum not reached")
)

// SafetyViolation records a disagreement between two values that the
// protocol must never produce. Implementations assert this rather than try
// to recover from it: a correct Paxos run cannot reach this state.
type SafetyViolation struct {
	Slot    int
	Message string
}

func (e *SafetyViolation) Error() string {
	return "paxos: safety violation at slot " + strconv.Itoa(e.Slot) + ": " + e.Message
}
