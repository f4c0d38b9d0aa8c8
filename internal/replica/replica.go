// Package replica is the Paxos core: one Replica plays proposer, acceptor
// and learner for every slot. Rather than three separate role objects
// behind a message router, those roles are folded into the per-slot state
// types in internal/paxos (Proposing/Accepting/Decided), since one replica
// owns all three roles directly for any given slot.
//
// Concurrency is a single actor goroutine draining a command queue of
// closures: inbound messages, timer firings and client Propose/Sync calls
// all enter the same serialization domain before touching Replica state, fed
// by a separate goroutine that polls transport.Receive on a timeout.
package replica

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/ledger"
	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/transport"
)

// pollInterval bounds how long the receiver loop blocks on transport.Receive
// before checking for shutdown.
const pollInterval = 100 * time.Millisecond

// promiseWindow is how long a proposer waits for PROMISE replies before
// closing the round on whatever quorum it has gathered so far.
const promiseWindow = 3 * time.Second

const (
	nackBackoffMin = 1 * time.Second
	nackBackoffMax = 5 * time.Second
)

// Replica is a single participant: proposer, acceptor and learner for every
// slot, fronted by a command queue that serializes all state access.
type Replica struct {
	self   paxos.Addr
	peers  []paxos.Addr
	n      int
	quorum int

	transport transport.Transport
	log       *ledger.TransactionLog
	allocator *ledger.SlotAllocator
	ballots   *paxos.BallotGenerator
	logger    *logrus.Entry

	cmds   chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Actor-goroutine-only state: everything below is only ever touched
	// from inside the loop run by run(), so it needs no lock of its own.
	states map[int]paxos.SlotState
	rounds map[int]*paxos.Proposing

	proposeMu     sync.Mutex // serializes concurrent external Propose callers
	lockValue     paxos.TransactionValue
	lockSet       bool
	lockRoundSlot int
	lockDone      chan error
}

// New constructs a Replica. peers must not include self. quorum is derived
// as floor(n/2)+1 over n = len(peers)+1.
func New(self paxos.Addr, peers []paxos.Addr, tr transport.Transport, log *ledger.TransactionLog, allocator *ledger.SlotAllocator, logger *logrus.Entry) *Replica {
	n := len(peers) + 1
	return &Replica{
		self:      self,
		peers:     peers,
		n:         n,
		quorum:    n/2 + 1,
		transport: tr,
		log:       log,
		allocator: allocator,
		ballots:   paxos.NewBallotGenerator(self.String()),
		logger:    logger,
		cmds:      make(chan func(), 64),
		stopCh:    make(chan struct{}),
		states:    make(map[int]paxos.SlotState),
		rounds:    make(map[int]*paxos.Proposing),
	}
}

// Start launches the receiver loop and the actor loop.
func (r *Replica) Start() {
	r.wg.Add(2)
	go r.receiveLoop()
	go r.run()
}

// Stop signals both loops to exit and waits for them.
func (r *Replica) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// enqueue submits fn to run on the actor goroutine. Safe to call from any
// other goroutine, such as a time.AfterFunc callback. It blocks while the
// queue is full (until Stop), so it is not called from the actor goroutine
// itself.
func (r *Replica) enqueue(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.stopCh:
	}
}

// run is the single serialization domain: exactly one closure executes at
// a time, so message handlers, timer firings and Propose/Sync starts never
// interleave.
func (r *Replica) run() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		case fn := <-r.cmds:
			fn()
		}
	}
}

// receiveLoop polls the transport with a bounded timeout, and hands every
// inbound message to the actor loop via enqueue so it is serialized with
// everything else.
func (r *Replica) receiveLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}
		msg, err := transport.ReceiveTimeout(r.transport, pollInterval)
		if err != nil {
			continue // timeout or transient receive error; just poll again
		}
		m := msg
		r.enqueue(func() { r.dispatch(m) })
	}
}

// dispatch routes one inbound message to its handler. Runs on the actor
// goroutine.
func (r *Replica) dispatch(m paxos.Message) {
	switch m.Type {
	case paxos.ProposerPrepare:
		r.handlePrepare(m)
	case paxos.ProposerAccept:
		r.handleAccept(m)
	case paxos.AcceptorPromise:
		r.handlePromise(m)
	case paxos.AcceptorNack:
		r.handleNack(m)
	case paxos.AcceptorAccepted:
		r.handleAccepted(m)
	case paxos.ProposerDecide:
		r.handleDecide(m)
	case paxos.LogSyncRequest:
		r.handleSyncRequest(m)
	case paxos.LogSyncResponse:
		r.handleSyncResponse(m)
	default:
		r.logger.WithField("type", m.Type).Warn("replica: unknown message type")
	}
}

// Fail/Unfail toggle the transport gate, simulating a crashed/recovered
// replica for testing.
func (r *Replica) Fail()         { r.transport.Fail() }
func (r *Replica) Unfail()       { r.transport.Unfail() }
func (r *Replica) Running() bool { return r.transport.Running() }

// Balance and History delegate straight to TransactionLog.
func (r *Replica) Balance() float64           { return r.log.Balance() }
func (r *Replica) History() []ledger.LogEntry { return r.log.History() }
func (r *Replica) Self() paxos.Addr           { return r.self }
