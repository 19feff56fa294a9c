package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GodCandleVersion identifies the generator branch that produced a candle.
// Live detection in the game tracker always records "v3" for the current
// feed generation.
const GodCandleVersion = "v3"

// GodCandle records a ≥10× single-tick price jump, unique per (gameId, tickIndex).
type GodCandle struct {
	ID        string `json:"id" bson:"_id"`
	GameID    string `json:"gameId" bson:"gameId"`
	TickIndex int    `json:"tickIndex" bson:"tickIndex"`

	FromPrice decimal.Decimal `json:"fromPrice" bson:"fromPrice"`
	ToPrice   decimal.Decimal `json:"toPrice" bson:"toPrice"`
	Ratio     decimal.Decimal `json:"ratio" bson:"ratio"`
	Version   string          `json:"version" bson:"version"`

	// UnderCap is true when fromPrice <= 100, the guard that legitimizes
	// the jump as a god candle rather than a data anomaly.
	UnderCap bool `json:"underCap" bson:"underCap"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
