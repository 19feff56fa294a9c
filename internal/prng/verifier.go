package prng

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

const priceTolerance = 1e-6

// Store is everything the verifier needs from the persistence layer.
type Store interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, bool, error)
	ListTicksOrdered(ctx context.Context, gameID string) ([]domain.GameTick, error)
	UpdatePRNGVerification(ctx context.Context, gameID string, status domain.PRNGStatus, v domain.VerificationData) error
}

// Verifier runs replay-and-compare requests, rate-limited so a burst of
// POST /api/prng/verify/{id} calls can't starve the ingest pipeline of
// CPU — a 5,000-tick replay is the most expensive single operation in the
// service.
type Verifier struct {
	store   Store
	limiter *rate.Limiter
}

// NewVerifier builds a Verifier allowing ratePerSecond verifications per
// second, with burst allowed in excess of that rate.
func NewVerifier(store Store, ratePerSecond float64, burst int) *Verifier {
	return &Verifier{store: store, limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Verify replays gameID's trajectory and compares it to the stored
// authoritative ticks, persisting the outcome on prng_tracking.
func (v *Verifier) Verify(ctx context.Context, gameID string) (domain.VerificationData, domain.PRNGStatus, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return domain.VerificationData{}, domain.PRNGFailed, err
	}

	game, found, err := v.store.GetGame(ctx, gameID)
	if err != nil {
		return domain.VerificationData{}, domain.PRNGFailed, err
	}
	if !found {
		return domain.VerificationData{}, domain.PRNGMissingExpected, fmt.Errorf("prng: game %s not found", gameID)
	}
	if game.ServerSeed == nil || *game.ServerSeed == "" {
		status := domain.PRNGAwaitingSeed
		_ = v.store.UpdatePRNGVerification(ctx, gameID, status, domain.VerificationData{CheckedAt: time.Now().UTC()})
		return domain.VerificationData{}, status, fmt.Errorf("prng: game %s has no revealed server seed yet", gameID)
	}

	ticks, err := v.store.ListTicksOrdered(ctx, gameID)
	if err != nil {
		return domain.VerificationData{}, domain.PRNGFailed, err
	}
	if len(ticks) == 0 {
		status := domain.PRNGMissingExpected
		_ = v.store.UpdatePRNGVerification(ctx, gameID, status, domain.VerificationData{CheckedAt: time.Now().UTC()})
		return domain.VerificationData{}, status, fmt.Errorf("prng: game %s has no recorded ticks", gameID)
	}

	traj := Run(*game.ServerSeed, gameID)
	vd := compare(traj, ticks, game.PeakMultiplier)

	status := domain.PRNGFailed
	if vd.FullVerification {
		status = domain.PRNGVerified
	}

	if err := v.store.UpdatePRNGVerification(ctx, gameID, status, vd); err != nil {
		return vd, status, err
	}
	return vd, status, nil
}

// compare implements spec.md §4.6's comparison: absolute price tolerance
// 1e-6, exact tick-count equality, and prngVerified = peakMatch ∧
// ticksMatch ∧ arrayMatch.
func compare(traj Trajectory, ticks []domain.GameTick, storedPeak *decimal.Decimal) domain.VerificationData {
	vd := domain.VerificationData{
		ExpectedTicks: traj.TotalTicks,
		ActualTicks:   ticks[len(ticks)-1].Tick,
		CheckedAt:     time.Now().UTC(),
	}

	expectedPeak := decimal.NewFromFloat(traj.PeakMultiplier)
	vd.ExpectedPeak = &expectedPeak
	vd.ActualPeak = storedPeak

	vd.TicksMatch = vd.ExpectedTicks == vd.ActualTicks

	vd.PeakMatch = storedPeak != nil &&
		math.Abs(traj.PeakMultiplier-mustFloat64(*storedPeak)) <= priceTolerance

	vd.ArrayMatch = true
	n := len(traj.Prices)
	if len(ticks) < n {
		n = len(ticks)
	}
	for i := 0; i < n; i++ {
		actual := mustFloat64(ticks[i].Price)
		if math.Abs(traj.Prices[i]-actual) > priceTolerance {
			vd.ArrayMatch = false
			idx := ticks[i].Tick
			vd.DivergedAtTick = &idx
			break
		}
	}
	if len(traj.Prices) != len(ticks) {
		vd.ArrayMatch = false
		if vd.DivergedAtTick == nil {
			idx := n
			vd.DivergedAtTick = &idx
		}
	}

	vd.FullVerification = vd.PeakMatch && vd.TicksMatch && vd.ArrayMatch
	return vd
}

func mustFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
