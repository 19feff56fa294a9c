package gametrack

import (
	"context"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// Store is everything the tracker needs from the persistence layer. Per the
// ownership split, the tracker owns games, prng_tracking, game_ticks,
// game_indices, god_candles and live_state — the router never writes these.
type Store interface {
	UpsertGame(ctx context.Context, g domain.Game)
	UpsertTick(ctx context.Context, t domain.GameTick)
	UpsertIndex(ctx context.Context, idx domain.GameIndex)
	InsertGodCandle(ctx context.Context, gc domain.GodCandle)
	UpsertPRNGTracking(ctx context.Context, rec domain.PRNGTrackingRecord)
	SetLiveState(ctx context.Context, ls domain.LiveState)
}
