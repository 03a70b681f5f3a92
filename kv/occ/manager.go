// Package occ implements Optimistic Concurrency Control with
// backward validation: transactions execute without acquiring any
// locks and are checked for read/write conflicts against already
// committed transactions at commit time.
package occ

import (
	"sync"
	"sync/atomic"

	"github.com/pingcap-incubator/cc-bench/kv/storage"
	"github.com/pingcap-incubator/cc-bench/kv/txn"
)

// committedRecord is the OCC-internal record of a committed
// transaction's finish timestamp and the keys it wrote, used by
// Validate to detect conflicts. It is intentionally decoupled from
// txn.Transaction so completed transactions can be garbage collected
// independently of any live *txn.Transaction the caller still holds.
type committedRecord struct {
	txnID     uint64
	finishTS  uint64
	writeKeys map[string]struct{}
}

// Manager implements txn.Manager using backward validation. All
// committing transactions serialize through validationMu, which
// yields a total commit order equal to ValidationTS order.
type Manager struct {
	store storage.Storage

	timestampCounter uint64
	txnIDCounter     uint64

	validationMu sync.Mutex

	historyMu sync.Mutex
	history   []committedRecord
}

// NewManager constructs an OCC manager over store. store is borrowed,
// never owned: closing it is the harness's responsibility.
func NewManager(store storage.Storage) *Manager {
	return &Manager{store: store}
}

func (m *Manager) ProtocolName() string { return "OCC" }

func (m *Manager) Begin(typeName string, _ []string) *txn.Transaction {
	t := txn.New(atomic.AddUint64(&m.txnIDCounter, 1), typeName)
	// A load, not an increment: multiple transactions may legitimately
	// share a start timestamp, since it only marks a snapshot point,
	// not a serialization point.
	t.StartTS = atomic.LoadUint64(&m.timestampCounter)
	return t
}

func (m *Manager) Read(t *txn.Transaction, key string) (string, bool) {
	return t.Read(key, m.store)
}

func (m *Manager) Write(t *txn.Transaction, key, value string) {
	t.Write(key, value)
}

// validate reports whether t's read set is free of conflicts with
// every transaction that committed after t started. Must be called
// with validationMu held.
func (m *Manager) validate(t *txn.Transaction) bool {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	for _, record := range m.history {
		if record.finishTS <= t.StartTS {
			continue
		}
		for key := range t.ReadSet {
			if _, conflict := record.writeKeys[key]; conflict {
				return false
			}
		}
	}
	return true
}

// Commit validates t against the committed history and, on success,
// applies its writes atomically with respect to the committed-history
// insertion. The full critical section holds validationMu so that no
// two commits interleave, which is what makes ValidationTS order a
// valid serialization order.
func (m *Manager) Commit(t *txn.Transaction) txn.CommitResult {
	m.validationMu.Lock()
	defer m.validationMu.Unlock()

	t.ValidationTS = atomic.AddUint64(&m.timestampCounter, 1)

	if !m.validate(t) {
		t.Status = txn.Aborted
		return txn.CommitResult{Success: false, TxnID: t.TxnID, Retries: t.RetryCount}
	}

	for key, value := range t.WriteSet {
		m.store.Put(key, value)
	}

	t.FinishTS = atomic.AddUint64(&m.timestampCounter, 1)
	t.Status = txn.Committed

	writeKeys := make(map[string]struct{}, len(t.WriteSet))
	for key := range t.WriteSet {
		writeKeys[key] = struct{}{}
	}
	m.historyMu.Lock()
	m.history = append(m.history, committedRecord{
		txnID:     t.TxnID,
		finishTS:  t.FinishTS,
		writeKeys: writeKeys,
	})
	m.historyMu.Unlock()

	return txn.CommitResult{Success: true, TxnID: t.TxnID, Retries: t.RetryCount}
}

// Abort marks t ABORTED and clears its read/write sets. Commit does
// not clear them on validation failure — only Abort does — so callers
// that want the sets discarded after a failed Commit must call Abort
// themselves.
func (m *Manager) Abort(t *txn.Transaction) {
	t.Status = txn.Aborted
	t.Clear()
}

// GarbageCollect discards committed-history records that no active
// transaction could possibly still need for validation: any record
// whose FinishTS is at or before minActiveStartTS predates every
// currently active transaction's snapshot. The harness is responsible
// for tracking minActiveStartTS and invoking this periodically.
func (m *Manager) GarbageCollect(minActiveStartTS uint64) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	kept := m.history[:0]
	for _, record := range m.history {
		if record.finishTS > minActiveStartTS {
			kept = append(kept, record)
		}
	}
	m.history = kept
}
