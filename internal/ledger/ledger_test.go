package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxledger/internal/ledger"
	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/paxoserr"
)

func TestAppendIdempotent(t *testing.T) {
	l := ledger.NewTransactionLog()
	v := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 100, Hash: "h1"}
	require.NoError(t, l.Append(0, v))
	require.NoError(t, l.Append(0, v)) // idempotent re-delivery
	assert.Equal(t, float64(100), l.Balance())
	assert.Equal(t, 1, l.Len())
}

func TestAppendConflictIsSafetyViolation(t *testing.T) {
	l := ledger.NewTransactionLog()
	v1 := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 100, Hash: "h1"}
	v2 := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 200, Hash: "h2"}
	require.NoError(t, l.Append(0, v1))
	err := l.Append(0, v2)
	var sv *paxoserr.SafetyViolation
	assert.ErrorAs(t, err, &sv)
	assert.Equal(t, 0, sv.Slot)
}

func TestBalanceAndHistoryOrder(t *testing.T) {
	l := ledger.NewTransactionLog()
	require.NoError(t, l.Append(2, paxos.TransactionValue{Kind: paxos.Deposit, Amount: 50, Hash: "h3"}))
	require.NoError(t, l.Append(0, paxos.TransactionValue{Kind: paxos.Deposit, Amount: 100, Hash: "h1"}))
	require.NoError(t, l.Append(1, paxos.TransactionValue{Kind: paxos.Withdraw, Amount: 30, Hash: "h2"}))

	assert.Equal(t, float64(120), l.Balance())
	hist := l.History()
	require.Len(t, hist, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{hist[0].Slot, hist[1].Slot, hist[2].Slot})
}

func TestSlotAllocatorBasic(t *testing.T) {
	a := ledger.NewSlotAllocator()
	assert.Equal(t, 0, a.NextFreshSlot())
	assert.Equal(t, 0, a.NextFree())

	a.MarkDecided(0)
	assert.Equal(t, 1, a.HighestRound())
	assert.Empty(t, a.Gaps())
	assert.Equal(t, 1, a.NextFreshSlot())
}

func TestSlotAllocatorFutureJumpWidensGaps(t *testing.T) {
	a := ledger.NewSlotAllocator()
	a.MarkDecided(3) // decide slot 3 before 0,1,2
	assert.Equal(t, 4, a.HighestRound())
	gaps := a.Gaps()
	assert.ElementsMatch(t, []int{0, 1, 2}, gaps)
	assert.Equal(t, 0, a.NextFree()) // min(gaps)

	a.MarkDecided(0)
	assert.ElementsMatch(t, []int{1, 2}, a.Gaps())
	assert.Equal(t, 4, a.HighestRound()) // unchanged, already beyond slot 0
}

func TestSlotAllocatorRebuild(t *testing.T) {
	a := ledger.NewSlotAllocator()
	a.Rebuild([]int{0, 1, 2, 4})
	assert.Equal(t, 5, a.HighestRound())
	assert.ElementsMatch(t, []int{3}, a.Gaps())
}
