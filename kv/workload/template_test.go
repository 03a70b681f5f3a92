package workload

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pingcap-incubator/cc-bench/kv/occ"
	"github.com/pingcap-incubator/cc-bench/kv/storage"
	"github.com/pingcap-incubator/cc-bench/kv/twopl"
	"github.com/pingcap-incubator/cc-bench/kv/txn"
)

func seededStore(t *testing.T, seed map[string]string) storage.Storage {
	t.Helper()
	s := storage.NewMemStorage()
	s.Open("")
	s.InitializeWithData(seed)
	return s
}

func TestTransferIsZeroSum(t *testing.T) {
	store := seededStore(t, map[string]string{"a": "100", "b": "50"})
	mgr := occ.NewManager(store)

	result, err := Transfer.Execute(mgr, []string{"a", "b"})
	assert.NoError(t, err)
	assert.True(t, result.Success)

	av, _ := store.Get("a")
	bv, _ := store.Get("b")
	a, _ := strconv.Atoi(av)
	b, _ := strconv.Atoi(bv)
	assert.Equal(t, 90, a)
	assert.Equal(t, 60, b)
	assert.Equal(t, 150, a+b)
}

func TestBalanceCheckDoesNotMutateStore(t *testing.T) {
	store := seededStore(t, map[string]string{"a": "100"})
	mgr := occ.NewManager(store)

	result, err := BalanceCheck.Execute(mgr, []string{"a"})
	assert.NoError(t, err)
	assert.True(t, result.Success)

	v, _ := store.Get("a")
	assert.Equal(t, "100", v)
}

func TestWriteHeavyIncrementsEveryKey(t *testing.T) {
	store := seededStore(t, map[string]string{"a": "1", "b": "2", "c": "3"})
	mgr := occ.NewManager(store)

	tmpl := NewWriteHeavy(3)
	result, err := tmpl.Execute(mgr, []string{"a", "b", "c"})
	assert.NoError(t, err)
	assert.True(t, result.Success)

	av, _ := store.Get("a")
	bv, _ := store.Get("b")
	cv, _ := store.Get("c")
	assert.Equal(t, "2", av)
	assert.Equal(t, "3", bv)
	assert.Equal(t, "4", cv)
}

func TestTransferOnAbsentKeysTreatsMissingAsZero(t *testing.T) {
	store := seededStore(t, map[string]string{})
	mgr := occ.NewManager(store)

	result, err := Transfer.Execute(mgr, []string{"a", "b"})
	assert.NoError(t, err)
	assert.True(t, result.Success)

	av, _ := store.Get("a")
	bv, _ := store.Get("b")
	assert.Equal(t, "-10", av)
	assert.Equal(t, "10", bv)
}

func TestTransferWorksUnderTwoPL(t *testing.T) {
	store := seededStore(t, map[string]string{"a": "100", "b": "50"})
	mgr := twopl.NewManager(store, 10)

	result, err := Transfer.Execute(mgr, []string{"a", "b"})
	assert.NoError(t, err)
	assert.True(t, result.Success)

	av, _ := store.Get("a")
	bv, _ := store.Get("b")
	assert.Equal(t, "90", av)
	assert.Equal(t, "60", bv)
}

func TestTransferErrorReleasesTwoPLLocks(t *testing.T) {
	store := seededStore(t, map[string]string{"a": "not-a-number", "b": "50"})
	mgr := twopl.NewManager(store, 5)

	_, err := Transfer.Execute(mgr, []string{"a", "b"})
	assert.Error(t, err, "a malformed balance must surface as an error")

	store.Put("a", "10")

	// If the failed attempt's locks were never released, this second
	// call against the same keys would spin in backoff forever.
	result, err := Transfer.Execute(mgr, []string{"a", "b"})
	assert.NoError(t, err)
	assert.True(t, result.Success)
}

var _ txn.Manager = (*occ.Manager)(nil)
var _ txn.Manager = (*twopl.Manager)(nil)
