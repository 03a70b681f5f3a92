// Package storage defines the narrow key/value contract that the
// concurrency-control core consumes. The core never depends on a
// concrete storage engine directly — it only ever talks to a Storage,
// so the durability and on-disk format of the underlying store are
// treated as an external concern.
package storage

// Storage is the flat get/put/delete key space the transaction
// managers apply committed writes to and read pre-transaction values
// from. Implementations are expected to be safe for concurrent use by
// distinct keys; the core does not add its own synchronization on top
// of what a manager's protocol already guarantees.
type Storage interface {
	// Open opens or creates the store at path. It returns false if the
	// store could not be brought up.
	Open(path string) bool

	// Get retrieves the value for key. The second return value is
	// false if the key is absent or the read failed.
	Get(key string) (string, bool)

	// Put stores value at key, returning false on failure.
	Put(key, value string) bool

	// Delete removes key, returning false on failure.
	Delete(key string) bool

	// InitializeWithData bulk-loads a set of key/value pairs, useful for
	// seeding accounts before a workload run. Returns false if any
	// individual insert failed.
	InitializeWithData(data map[string]string) bool

	// Clear removes every key from the store.
	Clear() bool

	// GetKeyCount returns the number of keys currently stored.
	GetKeyCount() int

	// IsOpen reports whether the store has been opened.
	IsOpen() bool

	// Close releases any resources held by the store.
	Close() error
}
