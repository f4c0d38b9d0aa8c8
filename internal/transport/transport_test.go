package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/transport"
)

func TestMemoryTransportSendReceive(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := paxos.Addr{IP: "127.0.0.1", Port: 9001}
	b := paxos.Addr{IP: "127.0.0.1", Port: 9002}
	ta := net.NewTransport(a, []paxos.Addr{b})
	tb := net.NewTransport(b, []paxos.Addr{a})

	msg := paxos.Message{Slot: 3, Type: paxos.ProposerPrepare, Source: a}
	require.NoError(t, ta.Send(b, msg))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := tb.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestMemoryTransportFailDropsInbound(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := paxos.Addr{IP: "127.0.0.1", Port: 9101}
	b := paxos.Addr{IP: "127.0.0.1", Port: 9102}
	ta := net.NewTransport(a, []paxos.Addr{b})
	tb := net.NewTransport(b, []paxos.Addr{a})

	tb.Fail()
	assert.False(t, tb.Running())
	require.NoError(t, ta.Send(b, paxos.Message{Slot: 0}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tb.Receive(ctx)
	assert.Error(t, err) // dropped while failed, so the receive times out

	tb.Unfail()
	require.NoError(t, ta.Send(b, paxos.Message{Slot: 1}))
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	msg, err := tb.Receive(ctx2)
	require.NoError(t, err)
	assert.Equal(t, 1, msg.Slot)
}

func TestMemoryNetworkPartition(t *testing.T) {
	net := transport.NewMemoryNetwork()
	a := paxos.Addr{IP: "127.0.0.1", Port: 9201}
	b := paxos.Addr{IP: "127.0.0.1", Port: 9202}
	ta := net.NewTransport(a, []paxos.Addr{b})
	tb := net.NewTransport(b, []paxos.Addr{a})

	net.Partition(a, b)
	require.NoError(t, ta.Send(b, paxos.Message{Slot: 0}))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := tb.Receive(ctx)
	assert.Error(t, err)

	net.Heal(a, b)
	require.NoError(t, ta.Send(b, paxos.Message{Slot: 2}))
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	msg, err := tb.Receive(ctx2)
	require.NoError(t, err)
	assert.Equal(t, 2, msg.Slot)
}
