package mongo

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// The methods below satisfy ingest.PersistenceSink, gametrack.Store and
// rugsfeed.ConnectionRecorder. None return an error: a failed write is
// logged and counted, never propagated, since nothing upstream can act on
// it beyond what telemetry already surfaces (spec.md §7).

func (s *Store) InsertEvent(ctx context.Context, evt domain.ArchivedEvent) {
	s.submit(func(ctx context.Context) {
		logFailed("insert_event", upsert(ctx, s.events, evt.ID, evt))
	})
}

func (s *Store) InsertSnapshot(ctx context.Context, snap domain.GameStateSnapshot) {
	s.submit(func(ctx context.Context) {
		logFailed("insert_snapshot", upsert(ctx, s.snapshots, snap.ID, snap))
	})
}

func (s *Store) UpsertTrade(ctx context.Context, t domain.Trade) {
	s.submit(func(ctx context.Context) {
		_, err := s.trades.UpdateOne(ctx,
			bson.M{"eventId": t.EventID},
			bson.M{"$setOnInsert": t},
			options.Update().SetUpsert(true),
		)
		logFailed("upsert_trade", err)
	})
}

func (s *Store) UpsertSideBet(ctx context.Context, sb domain.SideBet) {
	s.submit(func(ctx context.Context) {
		_, err := s.sideBets.UpdateOne(ctx,
			bson.M{"gameId": sb.GameID, "playerId": sb.PlayerID, "startTick": sb.StartTick, "event": sb.Event},
			bson.M{"$set": sb},
			options.Update().SetUpsert(true),
		)
		logFailed("upsert_sidebet", err)
	})
}

func (s *Store) UpsertGame(ctx context.Context, g domain.Game) {
	s.submitCritical(func(ctx context.Context) {
		logFailed("upsert_game", upsert(ctx, s.games, g.ID, g))
	})
}

func (s *Store) UpsertTick(ctx context.Context, t domain.GameTick) {
	s.submit(func(ctx context.Context) {
		_, err := s.ticks.UpdateOne(ctx,
			bson.M{"gameId": t.GameID, "tick": t.Tick},
			bson.M{"$set": t},
			options.Update().SetUpsert(true),
		)
		logFailed("upsert_tick", err)
	})
}

func (s *Store) UpsertIndex(ctx context.Context, idx domain.GameIndex) {
	s.submit(func(ctx context.Context) {
		_, err := s.indices.UpdateOne(ctx,
			bson.M{"gameId": idx.GameID, "index": idx.Index},
			bson.M{"$set": idx},
			options.Update().SetUpsert(true),
		)
		logFailed("upsert_index", err)
	})
}

func (s *Store) InsertGodCandle(ctx context.Context, gc domain.GodCandle) {
	s.submit(func(ctx context.Context) {
		_, err := s.godCandles.UpdateOne(ctx,
			bson.M{"gameId": gc.GameID, "tickIndex": gc.TickIndex},
			bson.M{"$setOnInsert": gc},
			options.Update().SetUpsert(true),
		)
		logFailed("insert_god_candle", err)
	})
}

func (s *Store) UpsertPRNGTracking(ctx context.Context, rec domain.PRNGTrackingRecord) {
	s.submitCritical(func(ctx context.Context) {
		_, err := s.prngTracking.UpdateOne(ctx,
			bson.M{"gameId": rec.GameID},
			bson.M{"$set": rec},
			options.Update().SetUpsert(true),
		)
		logFailed("upsert_prng_tracking", err)
	})
}

func (s *Store) SetLiveState(ctx context.Context, ls domain.LiveState) {
	s.submit(func(ctx context.Context) {
		m := domain.Meta{Key: domain.MetaLiveStateKey, Value: ls, UpdatedAt: ls.UpdatedAt}
		logFailed("set_live_state", upsert(ctx, s.meta, m.Key, m))
	})
}

func (s *Store) RecordConnectionEvent(ctx context.Context, evt domain.ConnectionEvent) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	s.submit(func(ctx context.Context) {
		logFailed("record_connection_event", upsert(ctx, s.connectionEvents, evt.ID, evt))
	})
}

func (s *Store) RecordStatusCheck(ctx context.Context, sc domain.StatusCheck) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	s.submit(func(ctx context.Context) {
		logFailed("record_status_check", upsert(ctx, s.statusChecks, sc.ID, sc))
	})
}
