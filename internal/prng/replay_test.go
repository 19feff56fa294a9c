package prng

import "testing"

func TestRunIsDeterministic(t *testing.T) {
	a := Run("seed-abc", "game-1")
	b := Run("seed-abc", "game-1")

	if a.TotalTicks != b.TotalTicks {
		t.Fatalf("totalTicks differ across runs: %d vs %d", a.TotalTicks, b.TotalTicks)
	}
	if len(a.Prices) != len(b.Prices) {
		t.Fatalf("price array lengths differ: %d vs %d", len(a.Prices), len(b.Prices))
	}
	for i := range a.Prices {
		if a.Prices[i] != b.Prices[i] {
			t.Fatalf("price[%d] differs: %v vs %v", i, a.Prices[i], b.Prices[i])
		}
	}
	if a.PeakMultiplier != b.PeakMultiplier {
		t.Fatalf("peak differs: %v vs %v", a.PeakMultiplier, b.PeakMultiplier)
	}
}

func TestRunDiffersAcrossSeeds(t *testing.T) {
	a := Run("seed-one", "game-1")
	b := Run("seed-two", "game-1")

	if a.TotalTicks == b.TotalTicks && equalSlices(a.Prices, b.Prices) {
		t.Fatalf("two different seeds produced an identical trajectory — seed is not mixed into the RNG")
	}
}

func TestRunTerminatesWithinMaxTicks(t *testing.T) {
	traj := Run("any-seed", "any-game")
	if traj.TotalTicks > maxTicks {
		t.Fatalf("totalTicks = %d, want <= %d", traj.TotalTicks, maxTicks)
	}
	if len(traj.Prices) == 0 {
		t.Fatalf("expected at least the tick-0 price")
	}
	if traj.Prices[0] != startPrice {
		t.Fatalf("prices[0] = %v, want startPrice %v", traj.Prices[0], startPrice)
	}
}

func equalSlices(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
