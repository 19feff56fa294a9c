// Package mongo is the document-store persistence layer (spec.md §3/§4.5):
// one *mongo.Database, twelve collections, app-minted UUID primary keys
// so every JSON response stays flat, and idempotent upserts keyed by each
// record's natural key rather than an auto-generated one.
package mongo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

const (
	collGames             = "games"
	collSnapshots         = "game_state_snapshots"
	collTrades            = "trades"
	collSideBets          = "side_bets"
	collGodCandles        = "god_candles"
	collTicks             = "game_ticks"
	collIndices           = "game_indices"
	collEvents            = "events"
	collConnectionEvents  = "connection_events"
	collPRNGTracking      = "prng_tracking"
	collMeta              = "meta"
	collStatusChecks      = "status_checks"
)

// Retention bundles the TTL windows read from config. Zero means no TTL
// index is created for that collection (spec.md §9 Open Question: ticks
// and indices default to no expiry, configurable).
type Retention struct {
	SnapshotsDays int
	EventsDays    int
	TicksDays     int
	IndicesDays   int
}

// Store wraps the database handle and every collection handle the service
// touches.
type Store struct {
	db *mongo.Database

	games            *mongo.Collection
	snapshots        *mongo.Collection
	trades           *mongo.Collection
	sideBets         *mongo.Collection
	godCandles       *mongo.Collection
	ticks            *mongo.Collection
	indices          *mongo.Collection
	events           *mongo.Collection
	connectionEvents *mongo.Collection
	prngTracking     *mongo.Collection
	meta             *mongo.Collection
	statusChecks     *mongo.Collection

	jobs chan func(context.Context)
	wg   sync.WaitGroup
}

// StartWorkers launches n goroutines draining the write-job queue, keeping
// mongo round trips off the ingest hot path. Jobs that can't be enqueued
// because the queue is full are dropped and counted, same overflow policy
// as the upstream consumer and the broadcaster.
func (s *Store) StartWorkers(n int) {
	s.jobs = make(chan func(context.Context), 4096)
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go s.worker()
	}
}

// writeTimeout is the deadline each queued write job runs under.
const writeTimeout = 5 * time.Second

func (s *Store) worker() {
	defer s.wg.Done()
	for fn := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		fn(ctx)
		cancel()
	}
}

// Drain closes the job queue and waits for queued writes to finish, or for
// deadline to elapse, whichever comes first.
func (s *Store) Drain(deadline time.Duration) {
	if s.jobs == nil {
		return
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-time.After(deadline):
	case <-done:
	}
}

// submit enqueues a write job, dropping it on overflow.
func (s *Store) submit(fn func(context.Context)) {
	select {
	case s.jobs <- fn:
	default:
		telemetry.Metrics.ErrorCounters.Inc("mongo_queue_overflow")
		telemetry.Warnf("mongo: write queue full, dropping job")
	}
}

// criticalEnqueueWait is how briefly a critical write (games, prng_tracking)
// blocks the caller waiting for queue room before giving up, per spec.md §5:
// non-critical writes drop immediately, critical ones get a short grace
// period since losing them means losing lifecycle state, not just a log.
const criticalEnqueueWait = 50 * time.Millisecond

// submitCritical enqueues fn, waiting briefly for room before dropping.
func (s *Store) submitCritical(fn func(context.Context)) {
	select {
	case s.jobs <- fn:
		return
	default:
	}

	timer := time.NewTimer(criticalEnqueueWait)
	defer timer.Stop()
	select {
	case s.jobs <- fn:
	case <-timer.C:
		telemetry.Metrics.ErrorCounters.Inc("mongo_queue_overflow_critical")
		telemetry.Warnf("mongo: write queue full, dropping critical job after %s", criticalEnqueueWait)
	}
}

// Connect dials MongoDB and pings it before returning, so a bad connection
// string fails fast at startup rather than on the first write.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	s := &Store{
		db:               db,
		games:            db.Collection(collGames),
		snapshots:        db.Collection(collSnapshots),
		trades:           db.Collection(collTrades),
		sideBets:         db.Collection(collSideBets),
		godCandles:       db.Collection(collGodCandles),
		ticks:            db.Collection(collTicks),
		indices:          db.Collection(collIndices),
		events:           db.Collection(collEvents),
		connectionEvents: db.Collection(collConnectionEvents),
		prngTracking:     db.Collection(collPRNGTracking),
		meta:             db.Collection(collMeta),
		statusChecks:     db.Collection(collStatusChecks),
	}
	return s, nil
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// Ping reports round-trip latency to GET /api/readiness, updating the DBPingMs
// gauge as a side effect.
func (s *Store) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.db.Client().Ping(ctx, nil)
	telemetry.Metrics.DBPingMs.Set(time.Since(start).Milliseconds())
	return err
}

// EnsureIndexes creates every index the service relies on, including TTL
// indexes for the collections retention applies to. Idempotent: safe to
// call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context, r Retention) error {
	type spec struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}

	specs := []spec{
		{s.games, indexModel(bson.D{{Key: "phase", Value: 1}}, "", 0)},
		{s.snapshots, indexModel(bson.D{{Key: "gameId", Value: 1}, {Key: "tickCount", Value: 1}}, "", 0)},
		{s.snapshots, indexModel(bson.D{{Key: "createdAt", Value: 1}}, "createdAt", ttlSeconds(r.SnapshotsDays))},
		{s.trades, indexModel(bson.D{{Key: "eventId", Value: 1}}, "", 0)},
		{s.trades, indexModel(bson.D{{Key: "gameId", Value: 1}}, "", 0)},
		{s.sideBets, indexModel(bson.D{{Key: "gameId", Value: 1}, {Key: "playerId", Value: 1}}, "", 0)},
		{s.godCandles, indexModel(bson.D{{Key: "gameId", Value: 1}, {Key: "tickIndex", Value: 1}}, "", 0)},
		{s.ticks, indexModel(bson.D{{Key: "gameId", Value: 1}, {Key: "tick", Value: 1}}, "", 0)},
		{s.indices, indexModel(bson.D{{Key: "gameId", Value: 1}, {Key: "index", Value: 1}}, "", 0)},
		{s.events, indexModel(bson.D{{Key: "createdAt", Value: 1}}, "createdAt", ttlSeconds(r.EventsDays))},
		{s.connectionEvents, indexModel(bson.D{{Key: "createdAt", Value: 1}}, "createdAt", ttlSeconds(30))},
		{s.prngTracking, indexModel(bson.D{{Key: "gameId", Value: 1}}, "", 0)},
		{s.statusChecks, indexModel(bson.D{{Key: "timestamp", Value: -1}}, "", 0)},
	}

	if r.TicksDays > 0 {
		specs = append(specs, spec{s.ticks, indexModel(bson.D{{Key: "createdAt", Value: 1}}, "createdAt", ttlSeconds(r.TicksDays))})
	}
	if r.IndicesDays > 0 {
		specs = append(specs, spec{s.indices, indexModel(bson.D{{Key: "createdAt", Value: 1}}, "createdAt", ttlSeconds(r.IndicesDays))})
	}

	for _, sp := range specs {
		if _, err := sp.coll.Indexes().CreateOne(ctx, sp.model); err != nil {
			return err
		}
	}
	return nil
}

func indexModel(keys bson.D, ttlField string, ttlSecs int32) mongo.IndexModel {
	opts := options.Index()
	if ttlField != "" && ttlSecs > 0 {
		opts.SetExpireAfterSeconds(ttlSecs)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}

func ttlSeconds(days int) int32 {
	if days <= 0 {
		return 0
	}
	return int32(days * 24 * 60 * 60)
}

// upsert replaces the document with _id=id, inserting it if absent. Every
// write in this package goes through this helper so idempotency is uniform.
func upsert(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func logFailed(op string, err error) {
	if err == nil {
		return
	}
	telemetry.Metrics.ErrorCounters.Inc("mongo_" + op)
	telemetry.Errorf("mongo: %s: %v", op, err)
}
