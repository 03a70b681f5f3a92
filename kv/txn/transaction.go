// Package txn holds the per-transaction state shared by the OCC and
// C2PL managers: read/write sets, status, and the timestamps and lock
// bookkeeping each protocol stamps onto it. Nothing in this package
// talks to storage directly except through the Storage interface
// passed into Read.
package txn

import (
	"time"

	"github.com/pingcap-incubator/cc-bench/kv/storage"
)

// Status is the lifecycle state of a Transaction.
type Status int

const (
	Active Status = iota
	Committed
	Aborted
)

func (s Status) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Committed:
		return "COMMITTED"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Transaction is a single unit of work. OCC assigns
// StartTS/ValidationTS/FinishTS, while C2PL leaves them at zero and
// populates LockKeys instead.
type Transaction struct {
	TxnID        uint64
	TypeName     string
	StartTS      uint64
	ValidationTS uint64
	FinishTS     uint64
	Status       Status

	ReadSet  map[string]string
	WriteSet map[string]string

	// LockKeys holds the keys locked under C2PL, in acquisition order.
	// Empty for OCC transactions.
	LockKeys []string

	// RetryCount is the number of backoff attempts observed in Begin
	// (C2PL) or left at zero (OCC, where retries happen in the
	// executor, not inside Begin).
	RetryCount int

	WallStart time.Time
}

// New creates an ACTIVE transaction with empty read/write sets. Callers
// are managers, never workload code directly.
func New(txnID uint64, typeName string) *Transaction {
	return &Transaction{
		TxnID:     txnID,
		TypeName:  typeName,
		Status:    Active,
		ReadSet:   make(map[string]string),
		WriteSet:  make(map[string]string),
		WallStart: time.Now(),
	}
}

// Read implements read-your-writes over storage: the write set is
// consulted first, then storage. A storage hit populates the read
// set so a later read of the same key is repeatable within the
// transaction; a write-set hit does NOT touch the read set, and a
// storage miss leaves the read set untouched — see DESIGN.md for why
// this differs from the original reference's read_set bookkeeping.
func (t *Transaction) Read(key string, store storage.Storage) (string, bool) {
	if v, ok := t.WriteSet[key]; ok {
		return v, true
	}
	if v, ok := t.ReadSet[key]; ok {
		return v, true
	}
	v, ok := store.Get(key)
	if ok {
		t.ReadSet[key] = v
	}
	return v, ok
}

// Write buffers value at key, overwriting any prior buffered write for
// the same key (last-write-wins).
func (t *Transaction) Write(key, value string) {
	t.WriteSet[key] = value
}

// Clear empties the read and write sets. Called by a manager's Abort.
func (t *Transaction) Clear() {
	t.ReadSet = make(map[string]string)
	t.WriteSet = make(map[string]string)
}
