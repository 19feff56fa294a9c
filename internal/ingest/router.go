// Package ingest normalizes inbound feed frames into validated domain
// records and outbound broadcast frames (spec.md §4.2/§4.3). Dispatch is a
// plain tagged-union switch over the resolved schema key rather than a
// generic handler-name map, per the redesign note in spec.md §9: the set of
// inbound event shapes is small, fixed, and known at compile time, so a
// lookup table plus a switch is both clearer and cheaper than a registry of
// closures keyed by string.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/google/uuid"

	"github.com/dutchthenomad/rugfeed/internal/adapters/inbound/rugsfeed"
	"github.com/dutchthenomad/rugfeed/internal/domain"
	"github.com/dutchthenomad/rugfeed/internal/schema"
	"github.com/dutchthenomad/rugfeed/internal/telemetry"
)

// Router drains a stream of inbound frames, validates and normalizes each
// one, and dispatches the result to persistence, the game tracker, and the
// broadcaster.
type Router struct {
	registry    *schema.Registry
	store       PersistenceSink
	tracker     Tracker
	broadcaster Publisher
}

// NewRouter wires a Router to its three collaborators. All three are narrow
// interfaces so the router can be exercised in tests without a live store,
// tracker, or broadcaster.
func NewRouter(registry *schema.Registry, store PersistenceSink, tracker Tracker, broadcaster Publisher) *Router {
	return &Router{registry: registry, store: store, tracker: tracker, broadcaster: broadcaster}
}

// Run drains frames until the channel closes or ctx is cancelled.
func (r *Router) Run(ctx context.Context, frames <-chan rugsfeed.Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			r.handle(ctx, f)
		}
	}
}

// handle is the tagged-union dispatch: every inbound event name resolves to
// at most one of the six canonical schema keys, and each key has exactly
// one normalizer below. Event names with no schema mapping are still
// archived, just without a validation summary.
func (r *Router) handle(ctx context.Context, f rugsfeed.Frame) {
	key, mapped := schema.EventNameToKey[f.EventName]
	if !mapped {
		r.archiveUnmapped(ctx, f)
		return
	}

	var validation domain.Validation
	if instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(f.Payload)); err == nil {
		validation = r.registry.Validate(key, instance)
	} else {
		validation = domain.Validation{OK: false, Schema: string(key), Error: "payload is not valid JSON: " + err.Error()}
	}
	if validation.OK {
		telemetry.Metrics.SchemaValidation.RecordOK(string(key))
	} else {
		telemetry.Metrics.SchemaValidation.RecordFail(string(key))
	}

	switch key {
	case schema.KeyGameStateUpdate:
		r.handleGameStateUpdate(ctx, f, validation)
	case schema.KeyNewTrade:
		r.handleNewTrade(ctx, f, validation)
	case schema.KeyCurrentSideBet:
		r.handleSideBet(ctx, f, validation, domain.SideBetPlaced)
	case schema.KeyNewSideBet:
		r.handleSideBet(ctx, f, validation, domain.SideBetResolved)
	case schema.KeyGameStatePlayerUpdate, schema.KeyPlayerUpdate:
		r.archiveValidated(ctx, f, validation)
	default:
		r.archiveValidated(ctx, f, validation)
	}
}

func (r *Router) handleGameStateUpdate(ctx context.Context, f rugsfeed.Frame, v domain.Validation) {
	var p GameStateUpdatePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		telemetry.Metrics.ErrorCounters.Inc("gameStateUpdate_decode")
		telemetry.Warnf("ingest: decode gameStateUpdate: %v", err)
		r.archiveRaw(ctx, "gameStateUpdate", f.Payload, &v)
		return
	}

	r.archiveRaw(ctx, "gameStateUpdate", f.Payload, &v)

	snap := domain.GameStateSnapshot{
		ID:               uuid.NewString(),
		GameID:           p.GameID,
		TickCount:        p.TickCount,
		Price:            p.Price,
		Active:           p.Active,
		Rugged:           p.Rugged,
		CooldownTimer:    p.CooldownTimer,
		AllowPreRoundBuy: p.AllowPreRoundBuys,
		RawPayload:       f.Payload,
		Validation:       v,
		CreatedAt:        f.ReceivedAt,
	}
	r.store.InsertSnapshot(ctx, snap)

	outcome := r.tracker.Process(ctx, snap, p.GameHistory, p.ProvablyFair)
	snap.Phase = outcome.Phase

	frame := newFrame("game_state_update")
	frame.GameID = p.GameID
	frame.Tick = p.TickCount
	frame.Price = p.Price.String()
	frame.Phase = outcome.Phase
	frame.Validation = &v
	r.broadcaster.Publish(frame)

	if outcome.GodCandle != nil {
		gc := newFrame("god_candle")
		gc.GameID = outcome.GodCandle.GameID
		gc.Tick = outcome.GodCandle.TickIndex
		gc.FromPrice = outcome.GodCandle.FromPrice.String()
		gc.ToPrice = outcome.GodCandle.ToPrice.String()
		gc.Ratio = outcome.GodCandle.Ratio.String()
		r.broadcaster.Publish(gc)
	}

	if outcome.JustRugged {
		rug := newFrame("rug")
		rug.GameID = p.GameID
		rug.Tick = p.TickCount
		if outcome.EndPrice != nil {
			rug.EndPrice = outcome.EndPrice.String()
		}
		r.broadcaster.Publish(rug)
	}
}

func (r *Router) handleNewTrade(ctx context.Context, f rugsfeed.Frame, v domain.Validation) {
	r.archiveRaw(ctx, "newTrade", f.Payload, &v)

	var p NewTradePayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		telemetry.Metrics.ErrorCounters.Inc("newTrade_decode")
		telemetry.Warnf("ingest: decode newTrade: %v", err)
		return
	}

	t := domain.Trade{
		ID:        uuid.NewString(),
		EventID:   p.ID,
		GameID:    p.GameID,
		PlayerID:  p.PlayerID,
		Type:      domain.TradeType(p.Type),
		TickIndex: p.TickIndex,
		Amount:    p.Amount,
		Qty:       p.Qty,
		Price:     p.Price,
		Coin:      p.Coin,
		Validation: v,
		CreatedAt:  f.ReceivedAt,
	}
	r.store.UpsertTrade(ctx, t)
	telemetry.Metrics.TotalTrades.Inc()

	frame := newFrame("trade")
	frame.GameID = t.GameID
	frame.PlayerID = t.PlayerID
	frame.TradeType = string(t.Type)
	frame.TickIndex = t.TickIndex
	frame.Amount = t.Amount.String()
	frame.Qty = t.Qty.String()
	if t.Price != nil {
		frame.Price = t.Price.String()
	}
	frame.Validation = &v
	r.broadcaster.Publish(frame)
}

func (r *Router) handleSideBet(ctx context.Context, f rugsfeed.Frame, v domain.Validation, kind domain.SideBetEvent) {
	eventName := "currentSideBet"
	if kind == domain.SideBetResolved {
		eventName = "newSideBet"
	}
	r.archiveRaw(ctx, eventName, f.Payload, &v)

	var p SideBetPayload
	if err := json.Unmarshal(f.Payload, &p); err != nil {
		telemetry.Metrics.ErrorCounters.Inc("sideBet_decode")
		telemetry.Warnf("ingest: decode %s: %v", eventName, err)
		return
	}

	sb := domain.SideBet{
		ID:               uuid.NewString(),
		GameID:           p.GameID,
		PlayerID:         p.PlayerID,
		Event:            kind,
		StartTick:        p.StartTick,
		EndTick:          p.EndTick,
		BetAmount:        p.BetAmount,
		TargetMultiplier: p.TargetMultiplier,
		PayoutRatio:      p.PayoutRatio,
		Won:              p.Won,
		PnL:              p.PnL,
		Validation:       v,
		CreatedAt:        f.ReceivedAt,
	}
	r.store.UpsertSideBet(ctx, sb)

	frame := newFrame("side_bet")
	frame.GameID = sb.GameID
	frame.PlayerID = sb.PlayerID
	frame.Event = string(sb.Event)
	frame.Validation = &v
	r.broadcaster.Publish(frame)
}

func (r *Router) archiveValidated(ctx context.Context, f rugsfeed.Frame, v domain.Validation) {
	r.archiveRaw(ctx, f.EventName, f.Payload, &v)
}

func (r *Router) archiveUnmapped(ctx context.Context, f rugsfeed.Frame) {
	r.archiveRaw(ctx, f.EventName, f.Payload, nil)
}

func (r *Router) archiveRaw(ctx context.Context, typ string, payload json.RawMessage, v *domain.Validation) {
	var decoded interface{}
	_ = json.Unmarshal(payload, &decoded)
	r.store.InsertEvent(ctx, domain.ArchivedEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Payload:    decoded,
		Validation: v,
		CreatedAt:  time.Now().UTC(),
	})
	telemetry.Metrics.TotalMessagesProcessed.Inc()
	telemetry.Metrics.MessageRate.Mark()
}
