package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentileOverOneToOneHundred(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 100; i++ {
		c.RecordCommit("t", time.Duration(i)*time.Microsecond)
	}

	assert.InDelta(t, 50.5, c.AvgResponseTime("t"), 0.01)
	assert.InDelta(t, 50.5, c.Percentile("t", 50), 0.01)
	assert.InDelta(t, 99.01, c.Percentile("t", 99), 0.01)
}

func TestAbortPercentage(t *testing.T) {
	c := NewCollector()
	c.RecordCommit("t", time.Microsecond)
	c.RecordCommit("t", time.Microsecond)
	c.RecordAbort("t")

	assert.InDelta(t, 33.333, c.AbortPercentage("t"), 0.01)
}

func TestAbortPercentageWithNoAttemptsIsZero(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, float64(0), c.AbortPercentage("unseen"))
}

func TestTotalsAggregateAcrossTypes(t *testing.T) {
	c := NewCollector()
	c.RecordCommit("a", time.Microsecond)
	c.RecordCommit("b", time.Microsecond)
	c.RecordAbort("a")

	assert.Equal(t, uint64(2), c.TotalCommits())
	assert.Equal(t, uint64(1), c.TotalAborts())
}

func TestPercentileWithNoSamplesIsZero(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, float64(0), c.Percentile("unseen", 50))
}
