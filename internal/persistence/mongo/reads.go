package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// ListGames returns the most recent games, newest first.
func (s *Store) ListGames(ctx context.Context, limit int64) ([]domain.Game, error) {
	cur, err := s.games.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "startTime", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.Game
	err = cur.All(ctx, &out)
	return out, err
}

// GetGame returns one game by ID.
func (s *Store) GetGame(ctx context.Context, id string) (domain.Game, bool, error) {
	var g domain.Game
	err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Game{}, false, nil
	}
	return g, err == nil, err
}

// ListOHLC returns every 5-tick aggregate for a game, ordered by index.
func (s *Store) ListOHLC(ctx context.Context, gameID string) ([]domain.GameIndex, error) {
	cur, err := s.indices.Find(ctx, bson.M{"gameId": gameID}, options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.GameIndex
	err = cur.All(ctx, &out)
	return out, err
}

// ListGodCandles returns god candles, optionally scoped to one game.
func (s *Store) ListGodCandles(ctx context.Context, gameID string, limit int64) ([]domain.GodCandle, error) {
	filter := bson.M{}
	if gameID != "" {
		filter["gameId"] = gameID
	}
	cur, err := s.godCandles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.GodCandle
	err = cur.All(ctx, &out)
	return out, err
}

// GetPRNGTracking returns the verification record for one game.
func (s *Store) GetPRNGTracking(ctx context.Context, gameID string) (domain.PRNGTrackingRecord, bool, error) {
	var rec domain.PRNGTrackingRecord
	err := s.prngTracking.FindOne(ctx, bson.M{"gameId": gameID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.PRNGTrackingRecord{}, false, nil
	}
	return rec, err == nil, err
}

// ListPRNGTracking returns every tracking record, newest first.
func (s *Store) ListPRNGTracking(ctx context.Context, limit int64) ([]domain.PRNGTrackingRecord, error) {
	cur, err := s.prngTracking.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.PRNGTrackingRecord
	err = cur.All(ctx, &out)
	return out, err
}

// UpdatePRNGVerification stores a completed verification's outcome on the
// tracking record.
func (s *Store) UpdatePRNGVerification(ctx context.Context, gameID string, status domain.PRNGStatus, v domain.VerificationData) error {
	_, err := s.prngTracking.UpdateOne(ctx,
		bson.M{"gameId": gameID},
		bson.M{"$set": bson.M{"status": status, "verification": v, "updatedAt": v.CheckedAt}},
	)
	return err
}

// GetLiveState returns the live_state singleton.
func (s *Store) GetLiveState(ctx context.Context) (domain.LiveState, bool, error) {
	var m domain.Meta
	err := s.meta.FindOne(ctx, bson.M{"_id": domain.MetaLiveStateKey}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.LiveState{}, false, nil
	}
	if err != nil {
		return domain.LiveState{}, false, err
	}

	raw, err := bson.Marshal(m.Value)
	if err != nil {
		return domain.LiveState{}, false, err
	}
	var ls domain.LiveState
	if err := bson.Unmarshal(raw, &ls); err != nil {
		return domain.LiveState{}, false, err
	}
	return ls, true, nil
}

// ListSnapshots returns the most recent snapshots across all games, newest
// first (GET /api/snapshots has no per-game filter — spec.md §4.8).
func (s *Store) ListSnapshots(ctx context.Context, limit int64) ([]domain.GameStateSnapshot, error) {
	cur, err := s.snapshots.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.GameStateSnapshot
	err = cur.All(ctx, &out)
	return out, err
}

// ListTicksOrdered returns every tick recorded for a game, ascending —
// the authoritative price array the PRNG verifier replays against.
func (s *Store) ListTicksOrdered(ctx context.Context, gameID string) ([]domain.GameTick, error) {
	cur, err := s.ticks.Find(ctx, bson.M{"gameId": gameID}, options.Find().SetSort(bson.D{{Key: "tick", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.GameTick
	err = cur.All(ctx, &out)
	return out, err
}
