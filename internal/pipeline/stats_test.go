package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatsSnapshotPercentiles(t *testing.T) {
	stats := NewSplitStats(time.Hour)
	for i, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(time.Duration(ms)*time.Millisecond, i*2)
	}

	snap := stats.Snapshot()
	require.Equal(t, 5, snap.Count)
	assert.Equal(t, int64(100), snap.MinMs)
	assert.Equal(t, int64(500), snap.MaxMs)
	assert.Equal(t, 300.0, snap.AvgMs)
	assert.Equal(t, 300.0, snap.P50Ms)
	assert.InDelta(t, 480.0, snap.P95Ms, 1e-9)
	assert.InDelta(t, 496.0, snap.P99Ms, 1e-9)
	assert.Equal(t, 4.0, snap.AvgNodes)
}

func TestSplitStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewSplitStats(10 * time.Millisecond)
	stats.Record(100*time.Millisecond, 1)
	time.Sleep(25 * time.Millisecond)

	assert.Equal(t, 0, stats.Snapshot().Count)

	stats.Record(200*time.Millisecond, 3)
	snap := stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(200), snap.MinMs)
	assert.Equal(t, int64(200), snap.MaxMs)
	assert.Equal(t, 3.0, snap.AvgNodes)
}

func TestSplitStatsRecordClampsNegativeDuration(t *testing.T) {
	stats := NewSplitStats(time.Hour)
	stats.Record(-10*time.Millisecond, 0)
	snap := stats.Snapshot()
	require.Equal(t, 1, snap.Count)
	assert.Equal(t, int64(0), snap.MinMs)
	assert.Equal(t, int64(0), snap.MaxMs)
}

func TestSplitStatsEmpty(t *testing.T) {
	assert.Equal(t, StatsSnapshot{}, NewSplitStats(0).Snapshot())
}
