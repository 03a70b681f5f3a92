package workload

import (
	"math/rand"
	"time"

	"github.com/pingcap-incubator/cc-bench/kv/metrics"
	"github.com/pingcap-incubator/cc-bench/kv/txn"
)

// ExecutorConfig parameterizes a single worker thread's run.
type ExecutorConfig struct {
	ThreadID          int
	TxnsPerThread     int
	Contention        ContentionConfig
	BaseBackoffMicros int
}

// Templates is the fixed catalog of transaction shapes a worker draws
// from. writeHeavyKeys controls the fan-out of the write_heavy
// template.
func Templates(writeHeavyKeys int) []Template {
	return []Template{Transfer, BalanceCheck, NewWriteHeavy(writeHeavyKeys)}
}

// RunWorker drives cfg.TxnsPerThread transactions against mgr on the
// calling goroutine, recording outcomes into collector. Each worker
// owns a private *rand.Rand seeded from its thread ID and the wall
// clock, matching go-ycsb's per-worker-thread generator seeding, so
// concurrent workers never contend on a shared RNG. It returns the
// first template execution error it encounters (e.g. a malformed
// balance) and stops driving further transactions: this is treated as
// a run-terminating condition, not a transient conflict to retry past.
func RunWorker(cfg ExecutorConfig, mgr txn.Manager, templates []Template, collector *metrics.Collector) error {
	seed := int64(cfg.ThreadID) ^ time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))
	selector := NewKeySelector(cfg.Contention, rng)

	for i := 0; i < cfg.TxnsPerThread; i++ {
		tmpl := templates[rng.Intn(len(templates))]
		if err := runOne(cfg, tmpl, selector, mgr, collector, rng); err != nil {
			return err
		}
	}
	return nil
}

// runOne executes a single transaction, retrying with jittered
// exponential backoff on abort until it commits. It reuses the same
// sampled key set across retries, matching the reference executor:
// retrying against a fresh key sample would make the abort/retry loop
// meaningless as a measure of contention on a fixed working set. The
// recorded latency runs from before the first attempt to the
// successful commit, so it includes every failed attempt and backoff.
func runOne(cfg ExecutorConfig, tmpl Template, selector *KeySelector, mgr txn.Manager, collector *metrics.Collector, rng *rand.Rand) error {
	keys := selector.SelectDistinctKeys(tmpl.NumInputKeys)

	start := time.Now()
	for attempt := 0; ; attempt++ {
		result, err := tmpl.Execute(mgr, keys)
		if err != nil {
			return err
		}

		if result.Success {
			collector.RecordCommit(tmpl.Name, time.Since(start))
			return nil
		}

		collector.RecordAbort(tmpl.Name)
		retryBackoff(cfg.BaseBackoffMicros, attempt, rng)
	}
}

func retryBackoff(baseMicros, attempt int, rng *rand.Rand) {
	capped := attempt
	if capped > 10 {
		capped = 10
	}
	backoffUs := baseMicros << uint(capped)
	jitter := 0
	if backoffUs > 0 {
		jitter = rng.Intn(backoffUs + 1)
	}
	time.Sleep(time.Duration(backoffUs+jitter) * time.Microsecond)
}
