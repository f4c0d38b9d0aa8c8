// Package ledger holds the replica's in-memory record of decided
// transactions (TransactionLog) and the bookkeeping that assigns a
// not-yet-decided client value to a log slot (SlotAllocator). The log is
// intentionally memory-resident, keyed by slot, and exposes balance/history
// projections directly rather than a generic Save/Load durability
// interface.
package ledger

import (
	"sort"
	"sync"

	"github.com/senutpal/paxledger/internal/paxos"
	"github.com/senutpal/paxledger/internal/paxoserr"
)

// LogEntry is one decided transaction, as stored at a slot.
type LogEntry struct {
	Slot   int
	Kind   paxos.TransactionKind
	Amount float64
	Hash   string
}

// TransactionLog is the append-only, slot-keyed record of decided values.
type TransactionLog struct {
	mu      sync.RWMutex
	entries map[int]paxos.TransactionValue
}

// NewTransactionLog returns an empty log.
func NewTransactionLog() *TransactionLog {
	return &TransactionLog{entries: make(map[int]paxos.TransactionValue)}
}

// Append records v at slot. It is idempotent when the same value is
// appended twice (a DECIDE re-delivered, or learned independently via
// sync), and returns a paxoserr.SafetyViolation if a different value is
// already stored there — a state that must never arise under correct
// operation.
func (l *TransactionLog) Append(slot int, v paxos.TransactionValue) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[slot]; ok {
		if existing.Equal(v) {
			return nil
		}
		return &paxoserr.SafetyViolation{
			Slot:    slot,
			Message: "conflicting values decided for the same slot",
		}
	}
	l.entries[slot] = v
	return nil
}

// Has reports whether slot already has a logged value, and returns it.
func (l *TransactionLog) Has(slot int) (paxos.TransactionValue, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.entries[slot]
	return v, ok
}

// Balance sums +amount for DEPOSIT and -amount for WITHDRAW across every
// logged entry.
func (l *TransactionLog) Balance() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total float64
	for _, v := range l.entries {
		switch v.Kind {
		case paxos.Deposit:
			total += v.Amount
		case paxos.Withdraw:
			total -= v.Amount
		}
	}
	return total
}

// Snapshot returns a defensive copy of the slot->value map, used by the
// sync protocol.
func (l *TransactionLog) Snapshot() map[int]paxos.TransactionValue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make(map[int]paxos.TransactionValue, len(l.entries))
	for slot, v := range l.entries {
		cp[slot] = v
	}
	return cp
}

// History returns logged entries in slot order. Order doesn't affect the
// balance sum but is defined here for audit purposes.
func (l *TransactionLog) History() []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	slots := make([]int, 0, len(l.entries))
	for slot := range l.entries {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	out := make([]LogEntry, 0, len(slots))
	for _, slot := range slots {
		v := l.entries[slot]
		out = append(out, LogEntry{Slot: slot, Kind: v.Kind, Amount: v.Amount, Hash: v.Hash})
	}
	return out
}

// Len reports how many slots have been decided.
func (l *TransactionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
