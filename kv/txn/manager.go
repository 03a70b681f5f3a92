package txn

// CommitResult reports the outcome of a Commit call.
type CommitResult struct {
	Success bool
	TxnID   uint64
	Retries int
}

// Manager is the capability set the workload executor and templates
// depend on. OCC and C2PL are the only two variants, so a plain
// interface (rather than a tagged-union dispatch) is the idiomatic Go
// choice here: workload code stays oblivious to which protocol it's
// driving.
type Manager interface {
	// Begin starts a new transaction of the given template type. keys
	// is only meaningful to C2PL, which must acquire locks on all of
	// them before returning; OCC ignores it.
	Begin(typeName string, keys []string) *Transaction

	Read(t *Transaction, key string) (string, bool)
	Write(t *Transaction, key, value string)
	Commit(t *Transaction) CommitResult
	Abort(t *Transaction)

	// ProtocolName identifies the manager for metrics and reporting:
	// "OCC" or "2PL".
	ProtocolName() string
}
