package paxos_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senutpal/paxledger/internal/paxos"
)

func TestFlattenSingle(t *testing.T) {
	tv := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 100, Hash: "h1"}
	v := paxos.SingleValue(tv)
	flat, err := v.Flatten()
	require.NoError(t, err)
	assert.Equal(t, tv, flat)
}

func TestFlattenMergedSumsAmountsAndHashesNonces(t *testing.T) {
	a := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 5, Hash: "hA"}
	b := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 7, Hash: "hB"}
	v := paxos.MergedValueOf(a, b)

	flat, err := v.Flatten()
	require.NoError(t, err)
	assert.Equal(t, paxos.Deposit, flat.Kind)
	assert.Equal(t, float64(12), flat.Amount)
	assert.NotEmpty(t, flat.Hash)

	// deterministic: same order, same hash
	flat2, err := paxos.MergedValueOf(a, b).Flatten()
	require.NoError(t, err)
	assert.Equal(t, flat.Hash, flat2.Hash)

	// different order, different hash (order is significant)
	flat3, err := paxos.MergedValueOf(b, a).Flatten()
	require.NoError(t, err)
	assert.NotEqual(t, flat.Hash, flat3.Hash)
}

func TestFlattenRejectsMixedKind(t *testing.T) {
	a := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 5, Hash: "hA"}
	b := paxos.TransactionValue{Kind: paxos.Withdraw, Amount: 7, Hash: "hB"}
	_, err := paxos.MergedValueOf(a, b).Flatten()
	assert.ErrorIs(t, err, paxos.ErrMixedKind)
}

func TestValueContainsAndEqual(t *testing.T) {
	a := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 5, Hash: "hA"}
	b := paxos.TransactionValue{Kind: paxos.Deposit, Amount: 7, Hash: "hB"}
	merged := paxos.MergedValueOf(a, b)

	assert.True(t, merged.Contains(a))
	assert.True(t, merged.Contains(b))
	assert.False(t, merged.Contains(paxos.TransactionValue{Kind: paxos.Deposit, Amount: 1, Hash: "hC"}))

	assert.True(t, paxos.SingleValue(a).Equal(paxos.SingleValue(a)))
	assert.False(t, paxos.SingleValue(a).Equal(paxos.SingleValue(b)))
	assert.False(t, paxos.SingleValue(a).Equal(merged))
}
