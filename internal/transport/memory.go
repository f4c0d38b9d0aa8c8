package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/senutpal/paxledger/internal/paxos"
)

// MemoryNetwork is a shared in-process switchboard used by tests to wire
// several replicas together without touching a real socket: a registry of
// buffered inboxes, with Partition/Heal to drop traffic between a pair of
// addresses in both directions so tests can simulate a network split.
type MemoryNetwork struct {
	mu         sync.Mutex
	inboxes    map[paxos.Addr]chan paxos.Message
	partitions map[[2]paxos.Addr]bool
}

// NewMemoryNetwork returns an empty switchboard.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		inboxes:    make(map[paxos.Addr]chan paxos.Message),
		partitions: make(map[[2]paxos.Addr]bool),
	}
}

// NewTransport registers addr on the network and returns its Transport.
func (n *MemoryNetwork) NewTransport(addr paxos.Addr, peers []paxos.Addr) *MemoryTransport {
	n.mu.Lock()
	defer n.mu.Unlock()
	inbox := make(chan paxos.Message, 256)
	n.inboxes[addr] = inbox
	t := &MemoryTransport{net: n, self: addr, peers: peers, inbox: inbox}
	atomic.StoreInt32(&t.running, 1)
	return t
}

// Partition blocks delivery between a and b in both directions until
// Heal is called.
func (n *MemoryNetwork) Partition(a, b paxos.Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitions[[2]paxos.Addr{a, b}] = true
	n.partitions[[2]paxos.Addr{b, a}] = true
}

// Heal restores delivery between a and b.
func (n *MemoryNetwork) Heal(a, b paxos.Addr) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partitions, [2]paxos.Addr{a, b})
	delete(n.partitions, [2]paxos.Addr{b, a})
}

func (n *MemoryNetwork) partitioned(a, b paxos.Addr) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.partitions[[2]paxos.Addr{a, b}]
}

func (n *MemoryNetwork) deliver(to paxos.Addr, msg paxos.Message) {
	n.mu.Lock()
	inbox, ok := n.inboxes[to]
	n.mu.Unlock()
	if !ok {
		return
	}
	select {
	case inbox <- msg:
	default:
		// Inbox full: same as a dropped datagram on a real network.
	}
}

// MemoryTransport is the Transport implementation backed by a
// MemoryNetwork. Send is fire-and-forget and non-blocking; Receive blocks
// on the local inbox channel.
type MemoryTransport struct {
	net   *MemoryNetwork
	self  paxos.Addr
	peers []paxos.Addr
	inbox chan paxos.Message

	running int32
}

func (t *MemoryTransport) LocalAddr() paxos.Addr { return t.self }
func (t *MemoryTransport) Peers() []paxos.Addr   { return t.peers }

func (t *MemoryTransport) Running() bool {
	return atomic.LoadInt32(&t.running) == 1
}

func (t *MemoryTransport) Fail()   { atomic.StoreInt32(&t.running, 0) }
func (t *MemoryTransport) Unfail() { atomic.StoreInt32(&t.running, 1) }

func (t *MemoryTransport) Send(to paxos.Addr, msg paxos.Message) error {
	if !t.Running() {
		return nil // dropped outbound while failed
	}
	if t.net.partitioned(t.self, to) {
		return nil
	}
	t.net.deliver(to, msg)
	return nil
}

func (t *MemoryTransport) Broadcast(msg paxos.Message) error {
	for _, p := range t.peers {
		_ = t.Send(p, msg)
	}
	return nil
}

func (t *MemoryTransport) Receive(ctx context.Context) (paxos.Message, error) {
	for {
		select {
		case msg := <-t.inbox:
			if !t.Running() {
				continue // dropped inbound while failed
			}
			return msg, nil
		case <-ctx.Done():
			return paxos.Message{}, ctx.Err()
		}
	}
}

func (t *MemoryTransport) Close() error {
	return nil
}
