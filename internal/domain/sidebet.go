package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SideBetEvent distinguishes a placement from a resolution. Both inbound
// schemas (currentSideBet, newSideBet) map to the same outbound type but
// this field is preserved verbatim so downstream consumers can disambiguate
// (spec.md §9 Open Question).
type SideBetEvent string

const (
	SideBetPlaced   SideBetEvent = "placed"
	SideBetResolved SideBetEvent = "resolved"
)

// SideBet is a per-game, per-player wager on a multiplier threshold.
type SideBet struct {
	ID       string `json:"id" bson:"_id"`
	GameID   string `json:"gameId" bson:"gameId"`
	PlayerID string `json:"playerId" bson:"playerId"`

	Event SideBetEvent `json:"event" bson:"event"`

	StartTick int `json:"startTick" bson:"startTick"`
	EndTick   int `json:"endTick" bson:"endTick"`

	BetAmount        decimal.Decimal  `json:"betAmount" bson:"betAmount"`
	TargetMultiplier *decimal.Decimal `json:"targetMultiplier,omitempty" bson:"targetMultiplier,omitempty"`
	PayoutRatio      *decimal.Decimal `json:"payoutRatio,omitempty" bson:"payoutRatio,omitempty"`

	Won *bool            `json:"won,omitempty" bson:"won,omitempty"`
	PnL *decimal.Decimal `json:"pnl,omitempty" bson:"pnl,omitempty"`

	Validation Validation `json:"validation" bson:"validation"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}
