// Package twopl implements Conservative Two-Phase Locking: a
// transaction acquires exclusive locks on every key it will touch
// before executing any operation, and releases them all only after
// commit or abort. Because acquisition is all-or-nothing, a
// transaction never holds a strict subset of the locks it needs while
// waiting for the rest, which makes the classic wait-cycle precondition
// for deadlock structurally impossible.
package twopl

import "sync"

// LockTable is a single-mode (exclusive-only) lock table keyed by
// account key. It is grounded on TinyKV's per-key latch map
// (kv/transaction/latches), adapted from that package's blocking
// WaitGroup handoff to a poll-and-backoff contract: C2PL's Begin needs
// to interleave lock attempts with jittered exponential backoff for
// livelock avoidance, which a blocking Wait() cannot express.
type LockTable struct {
	mu    sync.Mutex
	table map[string]uint64 // key -> owning txn ID; absent means free
}

// NewLockTable constructs an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{table: make(map[string]uint64)}
}

// TryAcquireAll attempts to lock every key in keys for txnID. It is
// atomic: if any key is already held by a different transaction, the
// table is left completely unmodified and false is returned.
func (lt *LockTable) TryAcquireAll(txnID uint64, keys []string) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	for _, key := range keys {
		if owner, held := lt.table[key]; held && owner != txnID {
			return false
		}
	}
	for _, key := range keys {
		lt.table[key] = txnID
	}
	return true
}

// ReleaseAll releases every key in keys owned by txnID. Keys owned by
// a different transaction are left untouched — this is defensive
// against a stale or duplicate release rather than something the
// protocol should ever trigger.
func (lt *LockTable) ReleaseAll(txnID uint64, keys []string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	for _, key := range keys {
		if owner, held := lt.table[key]; held && owner == txnID {
			delete(lt.table, key)
		}
	}
}
