package routing

import (
	"sync"
	"testing"
)

func TestRouterStats(t *testing.T) {
	stats := NewRouterStats()

	stats.IncrementSelection(StrategyBalanced, "alpha")
	stats.IncrementSelection(StrategyBalanced, "beta")
	stats.IncrementSelection(StrategyCheapest, "alpha")
	stats.IncrementCompletions()
	stats.IncrementStreams()
	stats.IncrementFailures()
	stats.IncrementErrors()

	snap := stats.Snapshot()
	if snap.Selections != 3 {
		t.Errorf("Selections = %d, want 3", snap.Selections)
	}
	if snap.Completions != 1 || snap.Streams != 1 || snap.Failures != 1 || snap.Errors != 1 {
		t.Errorf("counters = %d/%d/%d/%d, want 1/1/1/1",
			snap.Completions, snap.Streams, snap.Failures, snap.Errors)
	}
	if snap.SelectionsPerStrategy[StrategyBalanced] != 2 {
		t.Errorf("balanced selections = %d, want 2", snap.SelectionsPerStrategy[StrategyBalanced])
	}
	if snap.SelectionsPerProvider["alpha"] != 2 {
		t.Errorf("alpha selections = %d, want 2", snap.SelectionsPerProvider["alpha"])
	}

	// The snapshot is detached from later activity.
	stats.IncrementCompletions()
	if snap.Completions != 1 {
		t.Error("snapshot changed after later increments")
	}
}

func TestRouterStats_Reset(t *testing.T) {
	stats := NewRouterStats()
	stats.IncrementSelection(StrategyBalanced, "alpha")
	stats.IncrementCompletions()

	before := stats.Snapshot().LastResetTime
	stats.Reset()

	snap := stats.Snapshot()
	if snap.Selections != 0 || snap.Completions != 0 {
		t.Errorf("post-reset counters = %d/%d, want 0/0", snap.Selections, snap.Completions)
	}
	if len(snap.SelectionsPerStrategy) != 0 || len(snap.SelectionsPerProvider) != 0 {
		t.Error("per-key maps not cleared by Reset")
	}
	if !snap.LastResetTime.After(before) && !snap.LastResetTime.Equal(before) {
		t.Error("LastResetTime went backwards")
	}
}

func TestRouterStats_Concurrent(t *testing.T) {
	stats := NewRouterStats()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.IncrementSelection(StrategyBalanced, "alpha")
				stats.IncrementCompletions()
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	if snap.Selections != 800 {
		t.Errorf("Selections = %d, want 800", snap.Selections)
	}
	if snap.SelectionsPerProvider["alpha"] != 800 {
		t.Errorf("alpha selections = %d, want 800", snap.SelectionsPerProvider["alpha"])
	}
}
