package workload

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/pingcap-incubator/cc-bench/kv/txn"
)

// Template is a closed transaction shape the executor drives against
// a manager. NumInputKeys tells the executor how many distinct keys
// to sample from the KeySelector before calling Execute. Every error
// branch inside Execute must call mgr.Abort on its transaction before
// returning, so C2PL locks acquired at Begin are always released even
// when the run is about to terminate.
type Template struct {
	Name         string
	NumInputKeys int
	Execute      func(mgr txn.Manager, keys []string) (txn.CommitResult, error)
}

// balanceOf parses a decimal-integer account balance, treating an
// absent key as balance zero. A malformed value is reported as an
// error rather than a panic — templates run inside worker goroutines
// and a panic there would take the whole run down with it.
func balanceOf(value string, present bool) (int, error) {
	if !present {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "parse balance %q", value)
	}
	return n, nil
}

const transferAmount = 10

// Transfer moves transferAmount from keys[0] to keys[1]. It is
// zero-sum: the combined balance of the two accounts is unchanged by
// a successful commit.
var Transfer = Template{
	Name:         "transfer",
	NumInputKeys: 2,
	Execute: func(mgr txn.Manager, keys []string) (txn.CommitResult, error) {
		t := mgr.Begin("transfer", keys)

		aVal, aOk := mgr.Read(t, keys[0])
		bVal, bOk := mgr.Read(t, keys[1])

		a, err := balanceOf(aVal, aOk)
		if err != nil {
			mgr.Abort(t)
			return txn.CommitResult{}, err
		}
		b, err := balanceOf(bVal, bOk)
		if err != nil {
			mgr.Abort(t)
			return txn.CommitResult{}, err
		}

		a -= transferAmount
		b += transferAmount

		mgr.Write(t, keys[0], strconv.Itoa(a))
		mgr.Write(t, keys[1], strconv.Itoa(b))

		return mgr.Commit(t), nil
	},
}

// BalanceCheck is a read-only transaction over a single key. It still
// commits, since OCC's validation path is meaningful even for a
// transaction with an empty write set.
var BalanceCheck = Template{
	Name:         "balance_check",
	NumInputKeys: 1,
	Execute: func(mgr txn.Manager, keys []string) (txn.CommitResult, error) {
		t := mgr.Begin("balance_check", keys)
		mgr.Read(t, keys[0])
		return mgr.Commit(t), nil
	},
}

// NewWriteHeavy builds a template that increments every key in its
// input set by one, touching n keys per transaction.
func NewWriteHeavy(n int) Template {
	return Template{
		Name:         "write_heavy",
		NumInputKeys: n,
		Execute: func(mgr txn.Manager, keys []string) (txn.CommitResult, error) {
			t := mgr.Begin("write_heavy", keys)

			for _, key := range keys {
				val, ok := mgr.Read(t, key)
				current, err := balanceOf(val, ok)
				if err != nil {
					mgr.Abort(t)
					return txn.CommitResult{}, err
				}
				mgr.Write(t, key, strconv.Itoa(current+1))
			}

			return mgr.Commit(t), nil
		},
	}
}
