package transport

import (
	"bytes"
	"context"
	"encoding/gob"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/paxoserr"
)

const maxDatagramSize = 16 * 1024

// UDPTransport is the production transport: one net.PacketConn per
// replica, gob-encoded Message datagrams, and a background goroutine that
// decodes inbound packets onto a channel the replica's receive loop polls.
type UDPTransport struct {
	conn  net.PacketConn
	self  paxos.Addr
	peers []paxos.Addr

	inbound chan paxos.Message

	running int32 // atomic bool, 1 = not failed

	mu     sync.Mutex
	closed bool
}

// NewUDPTransport binds a UDP socket at bindAddr ("ip:port") and begins
// receiving in the background. self is the replica's globally-addressable
// identity (used as the ballot tiebreaker elsewhere), which may differ from
// bindAddr when the replica is addressed through a different interface or
// NAT mapping than the one it binds locally.
func NewUDPTransport(bindAddr string, self paxos.Addr, peers []paxos.Addr) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", bindAddr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: listen")
	}
	t := &UDPTransport{
		conn:    conn,
		self:    self,
		peers:   peers,
		inbound: make(chan paxos.Message, 256),
	}
	atomic.StoreInt32(&t.running, 1)
	go t.readLoop()
	return t, nil
}

func (t *UDPTransport) LocalAddr() paxos.Addr { return t.self }
func (t *UDPTransport) Peers() []paxos.Addr   { return t.peers }

func (t *UDPTransport) Running() bool {
	return atomic.LoadInt32(&t.running) == 1
}

func (t *UDPTransport) Fail() {
	atomic.StoreInt32(&t.running, 0)
}

func (t *UDPTransport) Unfail() {
	atomic.StoreInt32(&t.running, 1)
}

func (t *UDPTransport) Send(to paxos.Addr, msg paxos.Message) error {
	if !t.Running() {
		return paxoserr.ErrFailed
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return errors.Wrap(err, "transport: encode")
	}
	raddr, err := net.ResolveUDPAddr("udp", to.String())
	if err != nil {
		return errors.Wrap(err, "transport: resolve peer")
	}
	_, err = t.conn.WriteTo(buf.Bytes(), raddr)
	if err != nil {
		return errors.Wrap(err, "transport: write")
	}
	return nil
}

func (t *UDPTransport) Broadcast(msg paxos.Message) error {
	var firstErr error
	for _, p := range t.peers {
		if err := t.Send(p, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *UDPTransport) Receive(ctx context.Context) (paxos.Message, error) {
	select {
	case msg, ok := <-t.inbound:
		if !ok {
			return paxos.Message{}, errors.New("transport: closed")
		}
		if !t.Running() {
			// Dropped both directions while failed.
			return t.Receive(ctx)
		}
		return msg, nil
	case <-ctx.Done():
		return paxos.Message{}, ctx.Err()
	}
}

func (t *UDPTransport) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, _, err := t.conn.ReadFrom(buf)
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed {
				return
			}
			logrus.WithError(err).Warn("transport: read failed")
			continue
		}
		if !t.Running() {
			continue // silently dropped: fail() gate
		}
		var msg paxos.Message
		if err := gob.NewDecoder(bytes.NewReader(buf[:n])).Decode(&msg); err != nil {
			logrus.WithError(err).Warn("transport: discarding undecodable datagram")
			continue
		}
		select {
		case t.inbound <- msg:
		default:
			logrus.Warn("transport: inbound queue full, dropping datagram")
		}
	}
}

func (t *UDPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.conn.Close()
}
