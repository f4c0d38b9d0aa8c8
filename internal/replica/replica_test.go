package replica_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxledger/internal/ledger"
	"github.com/senutpal/paxledger/internal/logging"
	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/replica"
	"github.com/senutpal/paxledger/internal/transport"
)

type cluster struct {
	net   *transport.MemoryNetwork
	nodes []*replica.Replica
}

func newCluster(t *testing.T, n int) *cluster {
	t.Helper()
	net := transport.NewMemoryNetwork()
	addrs := make([]paxos.Addr, n)
	for i := 0; i < n; i++ {
		addrs[i] = paxos.Addr{IP: "127.0.0.1", Port: 10000 + i}
	}

	c := &cluster{net: net}
	for i := 0; i < n; i++ {
		peers := make([]paxos.Addr, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				peers = append(peers, addrs[j])
			}
		}
		tr := net.NewTransport(addrs[i], peers)
		log := ledger.NewTransactionLog()
		alloc := ledger.NewSlotAllocator()
		r := replica.New(addrs[i], peers, tr, log, alloc, logging.New(addrs[i].String()))
		r.Start()
		c.nodes = append(c.nodes, r)
	}
	t.Cleanup(func() {
		for _, r := range c.nodes {
			r.Stop()
		}
	})
	return c
}

func proposeWithTimeout(t *testing.T, r *replica.Replica, tv paxos.TransactionValue, timeout time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- r.Propose(tv) }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatalf("propose timed out after %s", timeout)
		return nil
	}
}

func TestSingleDepositAgreedAcrossAllReplicas(t *testing.T) {
	c := newCluster(t, 3)
	tv := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 100, Hash: "h1"}
	require.NoError(t, proposeWithTimeout(t, c.nodes[0], tv, 6*time.Second))

	// Give the DECIDE broadcast time to reach the other replicas.
	time.Sleep(200 * time.Millisecond)
	for _, r := range c.nodes {
		assert.Equal(t, float64(100), r.Balance())
	}
}

func TestSequentialDepositsAndWithdrawalAccumulateBalance(t *testing.T) {
	c := newCluster(t, 3)
	leader := c.nodes[0]

	require.NoError(t, proposeWithTimeout(t, leader, paxos.TransactionValue{Kind: paxos.Deposit, Amount: 50, Hash: "d1"}, 6*time.Second))
	require.NoError(t, proposeWithTimeout(t, leader, paxos.TransactionValue{Kind: paxos.Deposit, Amount: 25, Hash: "d2"}, 6*time.Second))
	require.NoError(t, proposeWithTimeout(t, leader, paxos.TransactionValue{Kind: paxos.Withdraw, Amount: 10, Hash: "w1"}, 6*time.Second))

	time.Sleep(200 * time.Millisecond)
	for _, r := range c.nodes {
		assert.Equal(t, float64(65), r.Balance())
		assert.Len(t, r.History(), 3)
	}
}

func TestFailedReplicaCatchesUpViaSync(t *testing.T) {
	c := newCluster(t, 3)
	laggard := c.nodes[2]
	laggard.Fail()

	require.NoError(t, proposeWithTimeout(t, c.nodes[0], paxos.TransactionValue{Kind: paxos.Deposit, Amount: 30, Hash: "s1"}, 6*time.Second))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, float64(0), laggard.Balance())

	laggard.Unfail()
	laggard.Sync()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, float64(30), laggard.Balance())
}

func TestConcurrentProposalsOnDifferentReplicasBothLand(t *testing.T) {
	c := newCluster(t, 3)

	errA := make(chan error, 1)
	errB := make(chan error, 1)
	go func() { errA <- c.nodes[0].Propose(paxos.TransactionValue{Kind: paxos.Deposit, Amount: 5, Hash: "ha"}) }()
	go func() { errB <- c.nodes[1].Propose(paxos.TransactionValue{Kind: paxos.Deposit, Amount: 7, Hash: "hb"}) }()

	timeout := time.After(8 * time.Second)
	var gotA, gotB bool
	for !gotA || !gotB {
		select {
		case err := <-errA:
			require.NoError(t, err)
			gotA = true
		case err := <-errB:
			require.NoError(t, err)
			gotB = true
		case <-timeout:
			t.Fatal("concurrent proposals did not both complete in time")
		}
	}

	time.Sleep(200 * time.Millisecond)
	for _, r := range c.nodes {
		assert.Equal(t, float64(12), r.Balance())
		assert.Len(t, r.History(), 2)
	}
}
