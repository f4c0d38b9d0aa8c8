// Package paxos holds the per-slot data model shared by the replica's
// acceptor, proposer and learner roles: transaction values, the Value sum
// type that folds concurrent proposals together, the wire Message, and the
// tagged SlotState variants the replica keeps one of per slot.
package paxos

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"

	"github.com/pkg/errors"
)

// TransactionKind distinguishes a credit from a debit.
type TransactionKind string

const (
	Deposit  TransactionKind = "DEPOSIT"
	Withdraw TransactionKind = "WITHDRAW"
)

// TransactionValue is the atomic unit a client proposes: a kind, an amount,
// and a nonce ("hash") chosen by the client that identifies the logical
// request. Two values are the same request iff the triple is equal.
type TransactionValue struct {
	Kind   TransactionKind
	Amount float64
	Hash   string
}

// Equal compares by value: two requests are the same iff kind, amount and
// nonce all match, never by reference.
func (t TransactionValue) Equal(o TransactionValue) bool {
	return t.Kind == o.Kind && t.Amount == o.Amount && t.Hash == o.Hash
}

func (t TransactionValue) IsZero() bool {
	return t == TransactionValue{}
}

// Value is a closed sum type: either a single TransactionValue, or a
// MergedValue — an ordered list of same-kind TransactionValues folded
// together by the proposer's merge rule. A non-zero Value populates exactly
// one of single or merged; callers never type-switch on interface{}.
type Value struct {
	single TransactionValue
	merged []TransactionValue
	kind   valueKind
}

type valueKind int

const (
	valueKindZero valueKind = iota
	valueKindSingle
	valueKindMerged
)

// wireValue mirrors Value with exported fields so gob (which only sees
// exported struct fields) can carry it across the wire deterministically.
type wireValue struct {
	Single TransactionValue
	Merged []TransactionValue
	Kind   valueKind
}

// GobEncode/GobDecode give Value a stable wire representation despite its
// fields being unexported (kept unexported so callers can only build a
// Value through SingleValue/MergedValueOf, never a partially-populated
// zero value with both single and merged set).
func (v Value) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	w := wireValue{Single: v.single, Merged: v.merged, Kind: v.kind}
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) GobDecode(data []byte) error {
	var w wireValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return err
	}
	v.single, v.merged, v.kind = w.Single, w.Merged, w.Kind
	return nil
}

// SingleValue wraps a lone TransactionValue.
func SingleValue(tv TransactionValue) Value {
	return Value{single: tv, kind: valueKindSingle}
}

// MergedValueOf wraps an ordered list of TransactionValues that must share
// a kind. The invariant is not checked here; Flatten asserts it and
// returns ErrMixedKind when it does not hold.
func MergedValueOf(tvs ...TransactionValue) Value {
	cp := make([]TransactionValue, len(tvs))
	copy(cp, tvs)
	return Value{merged: cp, kind: valueKindMerged}
}

// IsZero reports whether v holds neither a single nor a merged value.
func (v Value) IsZero() bool {
	return v.kind == valueKindZero
}

// IsMerged reports whether v is a MergedValue.
func (v Value) IsMerged() bool {
	return v.kind == valueKindMerged
}

// AsSingle returns the wrapped TransactionValue and true if v is a singleton.
func (v Value) AsSingle() (TransactionValue, bool) {
	if v.kind == valueKindSingle {
		return v.single, true
	}
	return TransactionValue{}, false
}

// Members returns the components of v: a one-element slice for a
// singleton, or the full list for a MergedValue.
func (v Value) Members() []TransactionValue {
	switch v.kind {
	case valueKindSingle:
		return []TransactionValue{v.single}
	case valueKindMerged:
		return v.merged
	default:
		return nil
	}
}

// Contains reports whether tv is (or is among) the components of v.
func (v Value) Contains(tv TransactionValue) bool {
	for _, m := range v.Members() {
		if m.Equal(tv) {
			return true
		}
	}
	return false
}

// Equal compares two Values structurally: same kind of wrapper, same
// members in the same order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case valueKindSingle:
		return v.single.Equal(o.single)
	case valueKindMerged:
		if len(v.merged) != len(o.merged) {
			return false
		}
		for i := range v.merged {
			if !v.merged[i].Equal(o.merged[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ErrMixedKind is returned by Flatten when a MergedValue's components do
// not all share a kind — a case the caller should never observe if the
// proposer's merge rule only ever folds same-kind values together.
var ErrMixedKind = errors.New("paxos: merged value has mixed transaction kinds")

// Flatten collapses v to a single TransactionValue: a singleton passes
// through unchanged; a MergedValue [(k,a1,h1),...,(k,an,hn)] becomes
// (k, sum(ai), H(h1,...,hn)) where H is a deterministic hash of the ordered
// nonce tuple.
func (v Value) Flatten() (TransactionValue, error) {
	switch v.kind {
	case valueKindSingle:
		return v.single, nil
	case valueKindMerged:
		if len(v.merged) == 0 {
			return TransactionValue{}, errors.New("paxos: empty merged value")
		}
		kind := v.merged[0].Kind
		var sum float64
		hashes := make([]string, 0, len(v.merged))
		for _, tv := range v.merged {
			if tv.Kind != kind {
				return TransactionValue{}, ErrMixedKind
			}
			sum += tv.Amount
			hashes = append(hashes, tv.Hash)
		}
		return TransactionValue{Kind: kind, Amount: sum, Hash: combineHashes(hashes)}, nil
	default:
		return TransactionValue{}, errors.New("paxos: flatten of zero value")
	}
}

// combineHashes deterministically hashes an ordered tuple of nonces. Order
// matters: callers must present hashes in the same order on every replica.
// Flatten takes them in the order of the merged member list, which travels
// unchanged inside ACCEPT/DECIDE, so every replica flattens the same order.
func combineHashes(hashes []string) string {
	h := sha256.New()
	for _, s := range hashes {
		h.Write([]byte(s))
		h.Write([]byte{0}) // separator, avoids "ab","c" colliding with "a","bc"
	}
	return hex.EncodeToString(h.Sum(nil))
}
