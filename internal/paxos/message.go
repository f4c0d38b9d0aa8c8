// Message types exchanged between replicas over the transport.
//
// Every message carries a slot number since this is Multi-Paxos, not
// single-decree: proposer, acceptor and learner traffic for many concurrent
// slots share one wire format. NACK folds the ordinary ballot-rejection
// case and the decided-value case (an acceptor telling a stale proposer its
// slot is already settled) into one message type rather than two. The
// LOG_SYNC_REQUEST/RESPONSE pair lets a replica that missed traffic catch
// up by exchanging log snapshots with a peer.
package paxos

import (
	"fmt"

	"github.com/senutpal/paxledger/internal/ballot"
)

// Addr identifies a replica endpoint, and doubles as the ballot tiebreaker:
// a stable per-replica identifier such as address:port.
type Addr struct {
	IP   string
	Port int
}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

func (a Addr) IsZero() bool {
	return a == Addr{}
}

// MessageType tags a wire Message with the role-pair it belongs to.
type MessageType int

const (
	ProposerPrepare MessageType = iota
	AcceptorPromise
	AcceptorNack
	ProposerAccept
	AcceptorAccepted
	ProposerDecide
	LogSyncRequest
	LogSyncResponse
)

func (t MessageType) String() string {
	switch t {
	case ProposerPrepare:
		return "PREPARE"
	case AcceptorPromise:
		return "PROMISE"
	case AcceptorNack:
		return "NACK"
	case ProposerAccept:
		return "ACCEPT"
	case AcceptorAccepted:
		return "ACCEPTED"
	case ProposerDecide:
		return "DECIDE"
	case LogSyncRequest:
		return "SYNC_REQUEST"
	case LogSyncResponse:
		return "SYNC_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Metadata carries the union of fields any message type might populate,
// rather than an actual map[string]interface{} (which gob cannot encode
// without a registry of concrete types per key). Each MessageType only
// reads the fields relevant to it:
//
//	PROMISE / NACK:               HighestBallot, Value, Decided (NACK-decided only)
//	ACCEPT / ACCEPTED / DECIDE:   Value
//	SYNC_REQUEST / SYNC_RESPONSE: Log
type Metadata struct {
	HighestBallot ballot.Ballot
	Value         Value
	Decided       bool
	Log           map[int]TransactionValue
}

// Message is the record exchanged over the transport.
type Message struct {
	Slot     int
	Type     MessageType
	Source   Addr
	Ballot   ballot.Ballot
	Metadata Metadata
}
