package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameStateSnapshot is a tick-level authoritative snapshot keyed by
// (gameId, tickCount). Retained via a TTL index on CreatedAt.
type GameStateSnapshot struct {
	ID        string          `json:"id" bson:"_id"`
	GameID    string          `json:"gameId" bson:"gameId"`
	TickCount int             `json:"tickCount" bson:"tickCount"`
	Price     decimal.Decimal `json:"price" bson:"price"`

	Active           bool   `json:"active" bson:"active"`
	Rugged           bool   `json:"rugged" bson:"rugged"`
	CooldownTimer    int64  `json:"cooldownTimer" bson:"cooldownTimer"`
	AllowPreRoundBuy bool   `json:"allowPreRoundBuys" bson:"allowPreRoundBuys"`
	Phase            Phase  `json:"phase" bson:"phase"`
	RawPayload       []byte `json:"-" bson:"rawPayload,omitempty"`

	Validation Validation `json:"validation" bson:"validation"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}
