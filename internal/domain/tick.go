package domain

import "github.com/shopspring/decimal"

// GameTick is the source of truth for derived OHLC: one row per
// (gameId, tick), unique.
type GameTick struct {
	ID     string          `json:"id" bson:"_id"`
	GameID string          `json:"gameId" bson:"gameId"`
	Tick   int             `json:"tick" bson:"tick"`
	Price  decimal.Decimal `json:"price" bson:"price"`
}

// GameIndex is a 5-tick OHLC aggregate, unique per (gameId, index).
type GameIndex struct {
	ID       string          `json:"id" bson:"_id"`
	GameID   string          `json:"gameId" bson:"gameId"`
	Index    int             `json:"index" bson:"index"`
	Open     decimal.Decimal `json:"open" bson:"open"`
	High     decimal.Decimal `json:"high" bson:"high"`
	Low      decimal.Decimal `json:"low" bson:"low"`
	Close    decimal.Decimal `json:"close" bson:"close"`
	StartTick int            `json:"startTick" bson:"startTick"`
	EndTick   int            `json:"endTick" bson:"endTick"`
}
