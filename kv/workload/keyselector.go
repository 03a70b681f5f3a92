package workload

import (
	"fmt"
	"math/rand"
)

// ContentionConfig controls how a KeySelector biases its sampling.
type ContentionConfig struct {
	TotalKeys         int
	HotsetSize        int
	HotsetProbability float64
}

// KeySelector samples "account_<i>" keys with a hot/cold bias,
// grounded on the reference implementation's key_selector.h and, for
// the general shape of a biased integer generator in idiomatic Go, on
// go-ycsb's generator.Hotspot. Unlike Hotspot (which supports an
// arbitrary integer range with a configurable hot fraction of that
// range), this selector matches the reference exactly: a fixed-size
// hot subrange [0, HotsetSize) sampled with HotsetProbability,
// otherwise a uniform draw over the full [0, TotalKeys) range — the
// two ranges are not disjoint, matching the source's behavior.
type KeySelector struct {
	cfg ContentionConfig
	rng *rand.Rand
}

// NewKeySelector constructs a selector using rng for all sampling.
// rng is not safe for concurrent use; each worker goroutine must own
// its own KeySelector and *rand.Rand.
func NewKeySelector(cfg ContentionConfig, rng *rand.Rand) *KeySelector {
	return &KeySelector{cfg: cfg, rng: rng}
}

// SelectKey draws a single biased key.
func (k *KeySelector) SelectKey() string {
	var idx int
	if k.rng.Float64() < k.cfg.HotsetProbability {
		idx = k.rng.Intn(k.cfg.HotsetSize)
	} else {
		idx = k.rng.Intn(k.cfg.TotalKeys)
	}
	return fmt.Sprintf("account_%d", idx)
}

// SelectDistinctKeys repeatedly samples until n distinct keys have
// been obtained. If n exceeds TotalKeys this loops forever; that is
// the caller's responsibility.
func (k *KeySelector) SelectDistinctKeys(n int) []string {
	seen := make(map[string]struct{}, n)
	keys := make([]string, 0, n)
	for len(keys) < n {
		key := k.SelectKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
