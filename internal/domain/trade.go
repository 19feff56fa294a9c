package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeType is the side of a trade.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// Trade is keyed by a caller-provided EventID and is idempotent: replaying
// the same EventID any number of times must produce exactly one document.
type Trade struct {
	ID        string          `json:"id" bson:"_id"`
	EventID   string          `json:"eventId" bson:"eventId"`
	GameID    string          `json:"gameId" bson:"gameId"`
	PlayerID  string          `json:"playerId" bson:"playerId"`
	Type      TradeType       `json:"type" bson:"type"`
	TickIndex int             `json:"tickIndex" bson:"tickIndex"`
	Amount    decimal.Decimal `json:"amount" bson:"amount"`
	Qty       decimal.Decimal `json:"qty" bson:"qty"`
	Price     *decimal.Decimal `json:"price,omitempty" bson:"price,omitempty"`
	Coin      string          `json:"coin" bson:"coin"`

	Validation Validation `json:"validation" bson:"validation"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}
