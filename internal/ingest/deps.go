package ingest

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// PersistenceSink is everything the router needs from the persistence
// layer. The router owns events, trades, side_bets and
// game_state_snapshots (spec.md §3); games, ticks, indices, god candles
// and live_state belong to the tracker and are reached through Tracker
// instead.
type PersistenceSink interface {
	InsertEvent(ctx context.Context, evt domain.ArchivedEvent)
	InsertSnapshot(ctx context.Context, snap domain.GameStateSnapshot)
	UpsertTrade(ctx context.Context, t domain.Trade)
	UpsertSideBet(ctx context.Context, sb domain.SideBet)
}

// TrackOutcome is what processing one snapshot through the game state
// tracker yields: the phase the tracker settled on, plus any derived
// events the tracker produced for this tick.
type TrackOutcome struct {
	Phase      domain.Phase
	GodCandle  *domain.GodCandle
	JustRugged bool
	EndPrice   *decimal.Decimal
}

// Tracker advances the single-game lifecycle state machine (spec.md §4.4)
// and reports what happened. Implemented by internal/gametrack.
type Tracker interface {
	Process(ctx context.Context, snap domain.GameStateSnapshot, history []GameHistoryEntry, fair *ProvablyFair) TrackOutcome
}

// Publisher fans a normalized frame out to downstream subscribers.
// Implemented by internal/broadcast.
type Publisher interface {
	Publish(frame OutboundFrame)
}
