// Package transport implements the datagram send/receive layer: fire-and-
// forget Send/Broadcast, a blocking Receive with timeout, and a fail/unfail
// gate that drops traffic in both directions while failed.
//
// Receive is polled rather than callback-based: the replica's receive loop
// (internal/replica) is already a single polling consumer that hands each
// message to its actor loop, so a callback API would just add an extra hop.
package transport

import (
	"context"
	"time"

	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/paxoserr"
)

// Transport is the datagram abstraction the replica drives. Send and
// Broadcast are fire-and-forget: neither blocks on or reports peer
// liveness, and there is no retransmission or ordering guarantee. Receive
// blocks until a datagram arrives or ctx is done.
type Transport interface {
	LocalAddr() paxos.Addr
	Peers() []paxos.Addr

	Send(to paxos.Addr, msg paxos.Message) error
	Broadcast(msg paxos.Message) error
	Receive(ctx context.Context) (paxos.Message, error)

	// Fail drops all subsequent Send/Broadcast/Receive traffic until
	// Unfail is called. Running reports the current gate state. Invariant:
	// failed ⇔ ¬Running().
	Fail()
	Unfail()
	Running() bool

	Close() error
}

// ReceiveTimeout is a convenience wrapper used by the replica's receive
// loop to poll with a bounded wait instead of threading a context through
// every call site. A deadline is reported as paxoserr.ErrTimeout.
func ReceiveTimeout(t Transport, timeout time.Duration) (paxos.Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	msg, err := t.Receive(ctx)
	if err == context.DeadlineExceeded {
		return paxos.Message{}, paxoserr.ErrTimeout
	}
	return msg, err
}
