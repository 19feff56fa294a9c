package gametrack

import "github.com/dutchthenomad/rugfeed/internal/domain"

// godCandleRatio is the minimum single-tick price multiple that qualifies
// as a god candle.
const godCandleRatio = 10

// godCandlePriceCap is the guard that distinguishes a legitimate god candle
// from a data anomaly: the jump must originate below this price.
const godCandlePriceCap = 100

// cooldownThreshold is the cooldownTimer value (ms) at or below which a
// game is considered to have entered its pre-round buy window.
const cooldownThreshold = 10000

// nextPhase derives the lifecycle phase for one snapshot, per the guard
// priority order: a rug always wins, then an active round, then the two
// cooldown-timer bands. Rugged and active are mutually authoritative over
// cooldownTimer — the feed holds cooldownTimer steady or stale during an
// active round.
func nextPhase(snap domain.GameStateSnapshot) domain.Phase {
	switch {
	case snap.Rugged:
		return domain.PhaseRug
	case snap.Active:
		return domain.PhaseActive
	case snap.CooldownTimer > cooldownThreshold:
		return domain.PhaseCooldown
	case snap.CooldownTimer > 0 && snap.CooldownTimer <= cooldownThreshold && snap.AllowPreRoundBuy:
		return domain.PhasePreRound
	default:
		return domain.PhaseWaiting
	}
}

// isGodCandle reports whether a tick-to-tick price move qualifies, per
// spec.md §4.4: at least a 10x jump originating at a price no higher than
// 100.
func isGodCandle(fromPrice, toPrice float64) (ratio float64, ok bool) {
	if fromPrice <= 0 || fromPrice > godCandlePriceCap {
		return 0, false
	}
	ratio = toPrice / fromPrice
	return ratio, ratio >= godCandleRatio
}

// ohlcIndex returns the 5-tick bucket a tick belongs to and that bucket's
// tick bounds.
func ohlcIndex(tick int) (index, start, end int) {
	index = tick / 5
	start = index * 5
	end = start + 4
	return
}
