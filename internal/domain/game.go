package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is a game lifecycle state.
type Phase string

const (
	PhaseWaiting   Phase = "WAITING"
	PhaseActive    Phase = "ACTIVE"
	PhaseCooldown  Phase = "COOLDOWN"
	PhasePreRound  Phase = "PRE_ROUND"
	PhaseRug       Phase = "RUG"
	PhaseCompleted Phase = "COMPLETED"
)

// HistoryEntry records one phase transition, append-only.
type HistoryEntry struct {
	Phase Phase     `json:"phase" bson:"phase"`
	At    time.Time `json:"at" bson:"at"`
}

// QualityFlags captures tick-stream anomalies observed for a game.
type QualityFlags struct {
	DuplicateOrOutOfOrder bool      `json:"duplicateOrOutOfOrder" bson:"duplicateOrOutOfOrder"`
	LargeGap              bool      `json:"largeGap" bson:"largeGap"`
	PriceNonPositive      bool      `json:"priceNonPositive" bson:"priceNonPositive"`
	LastCheckedAt         time.Time `json:"lastCheckedAt" bson:"lastCheckedAt"`
}

// Game is the canonical record for one round of the feed, keyed by GameID.
type Game struct {
	ID    string `json:"id" bson:"_id"`
	Phase Phase  `json:"phase" bson:"phase"`

	Version int `json:"version" bson:"version"`

	ServerSeedHash string  `json:"serverSeedHash,omitempty" bson:"serverSeedHash,omitempty"`
	ServerSeed     *string `json:"serverSeed,omitempty" bson:"serverSeed,omitempty"`

	StartTime time.Time  `json:"startTime" bson:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty" bson:"endTime,omitempty"`

	RugTick        *int             `json:"rugTick,omitempty" bson:"rugTick,omitempty"`
	EndPrice       *decimal.Decimal `json:"endPrice,omitempty" bson:"endPrice,omitempty"`
	PeakMultiplier *decimal.Decimal `json:"peakMultiplier,omitempty" bson:"peakMultiplier,omitempty"`
	TotalTicks     int              `json:"totalTicks" bson:"totalTicks"`

	HasGodCandle bool `json:"hasGodCandle" bson:"hasGodCandle"`

	PrngVerified         *bool             `json:"prngVerified,omitempty" bson:"prngVerified,omitempty"`
	PrngVerificationData *VerificationData `json:"prngVerificationData,omitempty" bson:"prngVerificationData,omitempty"`

	Quality QualityFlags `json:"quality" bson:"quality"`

	History []HistoryEntry `json:"history" bson:"history"`
}

// AppendHistory appends a transition entry, never mutating past entries.
func (g *Game) AppendHistory(phase Phase, at time.Time) {
	g.History = append(g.History, HistoryEntry{Phase: phase, At: at})
}
