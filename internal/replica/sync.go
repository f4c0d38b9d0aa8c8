package replica

import (
	"github.com/sirupsen/logrus"

	"github.com/senutpal/paxledger/internal/paxos"
)

// Sync broadcasts a SYNC_REQUEST carrying the local log snapshot so every
// peer can fill gaps and tell us about theirs.
func (r *Replica) Sync() {
	done := make(chan struct{})
	r.enqueue(func() {
		snapshot := r.log.Snapshot()
		r.logger.WithField("entries", len(snapshot)).Debug("replica: broadcasting SYNC_REQUEST")
		_ = r.transport.Broadcast(paxos.Message{
			Type: paxos.LogSyncRequest, Source: r.self,
			Metadata: paxos.Metadata{Log: snapshot},
		})
		close(done)
	})
	<-done
}

// handleSyncRequest answers a SYNC_REQUEST: ingest whatever the sender has
// that we lack, reply with whatever we have that the sender lacks, then
// rebuild the slot allocator from the now-complete local log.
func (r *Replica) handleSyncRequest(m paxos.Message) {
	r.ingestForeignLog(m.Metadata.Log)

	missing := make(map[int]paxos.TransactionValue)
	for slot, v := range r.log.Snapshot() {
		if _, ok := m.Metadata.Log[slot]; !ok {
			missing[slot] = v
		}
	}
	r.rebuildAllocator()
	r.logger.WithFields(logrus.Fields{"from": m.Source, "sending": len(missing)}).Debug("replica: answering SYNC_REQUEST")

	_ = r.transport.Send(m.Source, paxos.Message{
		Type: paxos.LogSyncResponse, Source: r.self,
		Metadata: paxos.Metadata{Log: missing},
	})
}

// handleSyncResponse is a one-shot ingest + rebuild.
func (r *Replica) handleSyncResponse(m paxos.Message) {
	r.logger.WithField("entries", len(m.Metadata.Log)).Debug("replica: received SYNC_RESPONSE")
	r.ingestForeignLog(m.Metadata.Log)
	r.rebuildAllocator()
}

// ingestForeignLog appends every entry from a peer's log that this replica
// does not already have. A conflicting entry (same slot, different value)
// means two different values were decided for the same slot — a safety
// violation that must never happen under correct operation — and is fatal.
func (r *Replica) ingestForeignLog(foreign map[int]paxos.TransactionValue) {
	for slot, v := range foreign {
		if existing, ok := r.log.Has(slot); ok && existing.Equal(v) {
			continue
		}
		if err := r.log.Append(slot, v); err != nil {
			r.logger.WithError(err).WithField("slot", slot).Fatal("replica: sync safety violation")
			continue
		}
		r.states[slot] = &paxos.Decided{Value: paxos.SingleValue(v)}
	}
}

func (r *Replica) rebuildAllocator() {
	snapshot := r.log.Snapshot()
	slots := make([]int, 0, len(snapshot))
	for slot := range snapshot {
		slots = append(slots, slot)
	}
	r.allocator.Rebuild(slots)
}
