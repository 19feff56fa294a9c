package prng

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

type fakeVerifierStore struct {
	game  domain.Game
	found bool
	ticks []domain.GameTick

	lastStatus domain.PRNGStatus
	lastData   domain.VerificationData
}

func (s *fakeVerifierStore) GetGame(ctx context.Context, gameID string) (domain.Game, bool, error) {
	return s.game, s.found, nil
}
func (s *fakeVerifierStore) ListTicksOrdered(ctx context.Context, gameID string) ([]domain.GameTick, error) {
	return s.ticks, nil
}
func (s *fakeVerifierStore) UpdatePRNGVerification(ctx context.Context, gameID string, status domain.PRNGStatus, v domain.VerificationData) error {
	s.lastStatus = status
	s.lastData = v
	return nil
}

func TestVerifyMatchesReplayedTicks(t *testing.T) {
	serverSeed := "revealed-seed"
	gameID := "game-xyz"
	traj := Run(serverSeed, gameID)

	ticks := make([]domain.GameTick, len(traj.Prices))
	for i, p := range traj.Prices {
		ticks[i] = domain.GameTick{GameID: gameID, Tick: i, Price: decimal.NewFromFloat(p)}
	}
	peak := decimal.NewFromFloat(traj.PeakMultiplier)

	store := &fakeVerifierStore{
		found: true,
		game:  domain.Game{ID: gameID, ServerSeed: &serverSeed, PeakMultiplier: &peak},
		ticks: ticks,
	}
	v := NewVerifier(store, 100, 10)

	vd, status, err := v.Verify(context.Background(), gameID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !vd.PeakMatch {
		t.Fatalf("expected peak to match an unmodified replay: %+v", vd)
	}
	if !vd.ArrayMatch {
		t.Fatalf("expected every price to match an unmodified replay: %+v", vd)
	}
	// TotalTicks is the last recorded tick index whether or not the replay
	// rugged, so an unmodified replay matches the stored tick count too.
	if !vd.TicksMatch {
		t.Fatalf("ticksMatch = false, want true (rugged=%v): %+v", traj.Rugged, vd)
	}
	if vd.FullVerification != (vd.PeakMatch && vd.TicksMatch && vd.ArrayMatch) {
		t.Fatalf("fullVerification inconsistent with its components: %+v", vd)
	}
	if store.lastStatus != status {
		t.Fatalf("persisted status = %s, want %s", store.lastStatus, status)
	}
}

func TestVerifyFlagsDivergence(t *testing.T) {
	serverSeed := "revealed-seed"
	gameID := "game-xyz"
	traj := Run(serverSeed, gameID)

	ticks := make([]domain.GameTick, len(traj.Prices))
	for i, p := range traj.Prices {
		ticks[i] = domain.GameTick{GameID: gameID, Tick: i, Price: decimal.NewFromFloat(p)}
	}
	// Corrupt one tick so the stored record no longer matches the replay.
	ticks[len(ticks)/2].Price = ticks[len(ticks)/2].Price.Add(decimal.NewFromFloat(1))
	peak := decimal.NewFromFloat(traj.PeakMultiplier)

	store := &fakeVerifierStore{
		found: true,
		game:  domain.Game{ID: gameID, ServerSeed: &serverSeed, PeakMultiplier: &peak},
		ticks: ticks,
	}
	v := NewVerifier(store, 100, 10)

	vd, status, err := v.Verify(context.Background(), gameID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if status != domain.PRNGFailed {
		t.Fatalf("status = %s, want FAILED", status)
	}
	if vd.ArrayMatch {
		t.Fatalf("expected arrayMatch=false after corrupting a tick")
	}
	if vd.DivergedAtTick == nil {
		t.Fatalf("expected DivergedAtTick to be set")
	}
}

func TestVerifyAwaitsSeedWhenMissing(t *testing.T) {
	store := &fakeVerifierStore{found: true, game: domain.Game{ID: "g1"}}
	v := NewVerifier(store, 100, 10)

	_, status, err := v.Verify(context.Background(), "g1")
	if err == nil {
		t.Fatalf("expected an error when server seed is unrevealed")
	}
	if status != domain.PRNGAwaitingSeed {
		t.Fatalf("status = %s, want AWAITING_SEED", status)
	}
}

func TestVerifyMissingGame(t *testing.T) {
	store := &fakeVerifierStore{found: false}
	v := NewVerifier(store, 100, 10)

	_, status, err := v.Verify(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected an error for a missing game")
	}
	if status != domain.PRNGMissingExpected {
		t.Fatalf("status = %s, want MISSING_EXPECTED", status)
	}
}
