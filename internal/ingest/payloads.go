package ingest

import "github.com/shopspring/decimal"

// ProvablyFair carries the seed material revealed (or pre-committed) for a game.
type ProvablyFair struct {
	ServerSeed     string `json:"serverSeed"`
	ServerSeedHash string `json:"serverSeedHash"`
}

// GameHistoryEntry is one entry of the gameStateUpdate payload's
// gameHistory array, present on the snapshot that closes out a completed
// game. The tracker matches these by GameID, never by array position.
type GameHistoryEntry struct {
	GameID         string            `json:"gameId"`
	Prices         []decimal.Decimal `json:"prices"`
	PeakMultiplier decimal.Decimal   `json:"peakMultiplier"`
	ProvablyFair   *ProvablyFair     `json:"provablyFair"`
}

// GameStateUpdatePayload is the decoded gameStateUpdate inbound event.
type GameStateUpdatePayload struct {
	GameID            string             `json:"gameId"`
	TickCount         int                `json:"tickCount"`
	Price             decimal.Decimal    `json:"price"`
	Active            bool               `json:"active"`
	Rugged            bool               `json:"rugged"`
	CooldownTimer     int64              `json:"cooldownTimer"`
	AllowPreRoundBuys bool               `json:"allowPreRoundBuys"`
	GameHistory       []GameHistoryEntry `json:"gameHistory,omitempty"`
	ProvablyFair      *ProvablyFair      `json:"provablyFair,omitempty"`
}

// NewTradePayload is the decoded standard/newTrade inbound event.
type NewTradePayload struct {
	ID        string           `json:"id"`
	GameID    string           `json:"gameId"`
	PlayerID  string           `json:"playerId"`
	Type      string           `json:"type"`
	TickIndex int              `json:"tickIndex"`
	Amount    decimal.Decimal  `json:"amount"`
	Qty       decimal.Decimal  `json:"qty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Coin      string           `json:"coin"`
}

// SideBetPayload is the decoded shape shared by currentSideBet and
// newSideBet inbound events (placement vs resolution).
type SideBetPayload struct {
	GameID           string           `json:"gameId"`
	PlayerID         string           `json:"playerId"`
	StartTick        int              `json:"startTick"`
	EndTick          int              `json:"endTick"`
	BetAmount        decimal.Decimal  `json:"betAmount"`
	TargetMultiplier *decimal.Decimal `json:"targetMultiplier,omitempty"`
	PayoutRatio      *decimal.Decimal `json:"payoutRatio,omitempty"`
	Won              *bool            `json:"won,omitempty"`
	PnL              *decimal.Decimal `json:"pnl,omitempty"`
}
