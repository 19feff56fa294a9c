// Package gametrack runs the single-game lifecycle state machine
// (spec.md §4.4): phase transitions, 5-tick OHLC aggregation, god-candle
// detection and the live_state singleton. At most one game is tracked at a
// time, matching the upstream feed's own invariant.
package gametrack

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugfeed/internal/domain"
	"github.com/dutchthenomad/rugfeed/internal/ingest"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

// request is one unit of work handed to the tracker's goroutine: a
// snapshot to process plus a reply channel for the synchronous result the
// router needs back.
type request struct {
	snap    domain.GameStateSnapshot
	history []ingest.GameHistoryEntry
	fair    *ingest.ProvablyFair
	reply   chan ingest.TrackOutcome
}

// active holds the in-memory state of the one game currently being
// tracked. Touched only on the tracker's own goroutine.
type active struct {
	id          string
	game        domain.Game
	phase       domain.Phase
	haveTick    bool
	lastTick    int
	lastPrice   decimal.Decimal
	peakPrice   decimal.Decimal
	rugged      bool
	currentIdx  *domain.GameIndex
}

// Tracker serializes every state mutation through a single goroutine,
// generalizing the teacher's per-entity inbox actor to the service's single
// tracked game (spec.md names a trackedGameId invariant rather than a pool
// of concurrent games).
type Tracker struct {
	store Store
	inbox chan request
	stop  chan struct{}

	cur *active
}

// NewTracker starts the tracker's goroutine.
func NewTracker(store Store) *Tracker {
	t := &Tracker{
		store: store,
		inbox: make(chan request, 256),
		stop:  make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.stop)
	for req := range t.inbox {
		req.reply <- t.processOne(req)
	}
}

// Close shuts down the tracker's goroutine and waits for it to drain.
func (t *Tracker) Close() {
	close(t.inbox)
	<-t.stop
}

// Process implements ingest.Tracker. The call blocks on a reply from the
// tracker's single goroutine — game-state mutation is synchronous by
// design, unlike the fire-and-forget telemetry events the inbox pattern
// usually carries, since the router needs the resulting phase to build the
// outbound frame.
func (t *Tracker) Process(ctx context.Context, snap domain.GameStateSnapshot, history []ingest.GameHistoryEntry, fair *ingest.ProvablyFair) ingest.TrackOutcome {
	reply := make(chan ingest.TrackOutcome, 1)
	select {
	case t.inbox <- request{snap: snap, history: history, fair: fair, reply: reply}:
	default:
		telemetry.Metrics.InboxOverflows.Inc()
		telemetry.Warnf("gametrack: inbox full (cap=%d), processing inline", cap(t.inbox))
		return t.processOne(request{snap: snap, history: history, fair: fair})
	}

	select {
	case out := <-reply:
		return out
	case <-ctx.Done():
		return ingest.TrackOutcome{Phase: snap.Phase}
	}
}

// processOne runs entirely on the tracker's goroutine (or, on inbox
// overflow, inline on the caller — both paths are safe because overflow
// only occurs when the goroutine has fallen irrecoverably behind, at which
// point correctness of ordering is already lost).
func (t *Tracker) processOne(req request) ingest.TrackOutcome {
	ctx := context.Background()
	snap := req.snap

	if t.cur == nil || t.cur.id != snap.GameID {
		if t.cur != nil {
			t.finalize(ctx, req.history, snap.CreatedAt)
		}
		t.startGame(ctx, snap, req.fair)
	}

	out := ingest.TrackOutcome{}

	newPhase := nextPhase(snap)
	if newPhase != t.cur.phase {
		t.cur.phase = newPhase
		t.cur.game.Phase = newPhase
		t.cur.game.AppendHistory(newPhase, snap.CreatedAt)
		t.store.UpsertGame(ctx, t.cur.game)
	}
	out.Phase = newPhase

	t.applyQuality(snap)

	priceF, _ := snap.Price.Float64()
	if snap.Price.Sign() > 0 && (t.cur.peakPrice.IsZero() || snap.Price.GreaterThan(t.cur.peakPrice)) {
		t.cur.peakPrice = snap.Price
	}

	if !t.isDuplicateOrOutOfOrder(snap) {
		t.store.UpsertTick(ctx, domain.GameTick{
			ID:     uuid.NewString(),
			GameID: snap.GameID,
			Tick:   snap.TickCount,
			Price:  snap.Price,
		})
		t.updateOHLC(ctx, snap)

		if t.cur.haveTick {
			lastF, _ := t.cur.lastPrice.Float64()
			if ratio, ok := isGodCandle(lastF, priceF); ok {
				gc := domain.GodCandle{
					ID:        uuid.NewString(),
					GameID:    snap.GameID,
					TickIndex: snap.TickCount,
					FromPrice: t.cur.lastPrice,
					ToPrice:   snap.Price,
					Ratio:     decimal.NewFromFloat(ratio),
					Version:   domain.GodCandleVersion,
					UnderCap:  lastF <= godCandlePriceCap,
					CreatedAt: snap.CreatedAt,
				}
				t.store.InsertGodCandle(ctx, gc)
				t.cur.game.HasGodCandle = true
				t.store.UpsertGame(ctx, t.cur.game)
				out.GodCandle = &gc
			}
		}

		t.cur.lastTick = snap.TickCount
		t.cur.lastPrice = snap.Price
		t.cur.haveTick = true
	}

	if snap.Rugged && !t.cur.rugged {
		t.cur.rugged = true
		out.JustRugged = true
		out.EndPrice = &snap.Price

		tick := snap.TickCount
		t.cur.game.RugTick = &tick
		t.cur.game.EndPrice = &snap.Price
		end := snap.CreatedAt
		t.cur.game.EndTime = &end
		if !t.cur.peakPrice.IsZero() {
			t.cur.game.PeakMultiplier = &t.cur.peakPrice
		}
		t.cur.game.TotalTicks = snap.TickCount
		t.store.UpsertGame(ctx, t.cur.game)
	}

	t.store.SetLiveState(ctx, domain.LiveState{
		GameID:    snap.GameID,
		Phase:     newPhase,
		Tick:      snap.TickCount,
		Price:     snap.Price.String(),
		UpdatedAt: snap.CreatedAt,
	})

	return out
}

func (t *Tracker) startGame(ctx context.Context, snap domain.GameStateSnapshot, fair *ingest.ProvablyFair) {
	g := domain.Game{
		ID:        snap.GameID,
		Phase:     domain.PhaseWaiting,
		Version:   1,
		StartTime: snap.CreatedAt,
	}

	status := domain.PRNGAwaitingSeed
	if fair != nil {
		g.ServerSeedHash = fair.ServerSeedHash
		if fair.ServerSeed != "" {
			seed := fair.ServerSeed
			g.ServerSeed = &seed
			status = domain.PRNGTracking
		}
	}

	t.cur = &active{id: snap.GameID, game: g, phase: domain.PhaseWaiting}
	t.store.UpsertGame(ctx, g)
	t.store.UpsertPRNGTracking(ctx, domain.PRNGTrackingRecord{
		ID:             uuid.NewString(),
		GameID:         g.ID,
		Status:         status,
		ServerSeedHash: g.ServerSeedHash,
		ServerSeed:     g.ServerSeed,
		UpdatedAt:      snap.CreatedAt,
	})
	telemetry.Metrics.TotalGamesTracked.Inc()
}

// finalize closes out the previously tracked game using the gameHistory
// entry matching it by gameId — spec.md §9 is explicit that this must never
// be read positionally, since the array's ordering relative to the new
// game isn't guaranteed. This is normally where the revealed server seed
// arrives (startGame usually sees only the pre-committed hash and records a
// seed only when the start snapshot already carries one); a revealed seed
// here sets ServerSeed and moves prng_tracking to COMPLETE.
func (t *Tracker) finalize(ctx context.Context, history []ingest.GameHistoryEntry, updatedAt time.Time) {
	prev := t.cur
	for _, h := range history {
		if h.GameID != prev.id {
			continue
		}
		peak := h.PeakMultiplier
		prev.game.PeakMultiplier = &peak
		if len(h.Prices) > 0 {
			end := h.Prices[len(h.Prices)-1]
			prev.game.EndPrice = &end
			prev.game.TotalTicks = len(h.Prices) - 1
		}

		var seed *string
		status := domain.PRNGAwaitingSeed
		if h.ProvablyFair != nil {
			if h.ProvablyFair.ServerSeedHash != "" {
				prev.game.ServerSeedHash = h.ProvablyFair.ServerSeedHash
			}
			if h.ProvablyFair.ServerSeed != "" {
				s := h.ProvablyFair.ServerSeed
				seed = &s
				prev.game.ServerSeed = seed
				status = domain.PRNGComplete
			}
		}
		t.store.UpsertPRNGTracking(ctx, domain.PRNGTrackingRecord{
			ID:             uuid.NewString(),
			GameID:         prev.id,
			Status:         status,
			ServerSeedHash: prev.game.ServerSeedHash,
			ServerSeed:     seed,
			UpdatedAt:      updatedAt,
		})
		break
	}
	t.store.UpsertGame(ctx, prev.game)
}

func (t *Tracker) isDuplicateOrOutOfOrder(snap domain.GameStateSnapshot) bool {
	return t.cur.haveTick && snap.TickCount <= t.cur.lastTick
}

func (t *Tracker) applyQuality(snap domain.GameStateSnapshot) {
	q := &t.cur.game.Quality
	changed := false

	if t.isDuplicateOrOutOfOrder(snap) {
		q.DuplicateOrOutOfOrder = true
		changed = true
	}
	if t.cur.haveTick && snap.TickCount-t.cur.lastTick > 10 {
		q.LargeGap = true
		changed = true
	}
	if snap.Price.Sign() <= 0 {
		q.PriceNonPositive = true
		changed = true
	}

	q.LastCheckedAt = snap.CreatedAt
	if changed {
		t.store.UpsertGame(context.Background(), t.cur.game)
	}
}

func (t *Tracker) updateOHLC(ctx context.Context, snap domain.GameStateSnapshot) {
	index, start, end := ohlcIndex(snap.TickCount)

	if t.cur.currentIdx == nil || t.cur.currentIdx.Index != index {
		t.cur.currentIdx = &domain.GameIndex{
			ID:        uuid.NewString(),
			GameID:    snap.GameID,
			Index:     index,
			Open:      snap.Price,
			High:      snap.Price,
			Low:       snap.Price,
			Close:     snap.Price,
			StartTick: start,
			EndTick:   end,
		}
	} else {
		if snap.Price.GreaterThan(t.cur.currentIdx.High) {
			t.cur.currentIdx.High = snap.Price
		}
		if snap.Price.LessThan(t.cur.currentIdx.Low) {
			t.cur.currentIdx.Low = snap.Price
		}
		t.cur.currentIdx.Close = snap.Price
	}

	t.store.UpsertIndex(ctx, *t.cur.currentIdx)
}
