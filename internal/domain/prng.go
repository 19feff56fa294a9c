package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PRNGStatus is the lifecycle state of a game's provably-fair verification.
type PRNGStatus string

const (
	PRNGTracking        PRNGStatus = "TRACKING"
	PRNGComplete         PRNGStatus = "COMPLETE"
	PRNGAwaitingSeed     PRNGStatus = "AWAITING_SEED"
	PRNGMissingExpected  PRNGStatus = "MISSING_EXPECTED"
	PRNGVerified         PRNGStatus = "VERIFIED"
	PRNGFailed           PRNGStatus = "FAILED"
)

// VerificationData is the comparison report produced by a replay attempt.
type VerificationData struct {
	PeakMatch       bool              `json:"peakMatch" bson:"peakMatch"`
	TicksMatch      bool              `json:"ticksMatch" bson:"ticksMatch"`
	ArrayMatch      bool              `json:"arrayMatch" bson:"arrayMatch"`
	FullVerification bool             `json:"fullVerification" bson:"fullVerification"`
	DivergedAtTick  *int              `json:"divergedAtTick,omitempty" bson:"divergedAtTick,omitempty"`
	ExpectedPeak    *decimal.Decimal  `json:"expectedPeak,omitempty" bson:"expectedPeak,omitempty"`
	ActualPeak      *decimal.Decimal  `json:"actualPeak,omitempty" bson:"actualPeak,omitempty"`
	ExpectedTicks   int               `json:"expectedTicks,omitempty" bson:"expectedTicks,omitempty"`
	ActualTicks     int               `json:"actualTicks,omitempty" bson:"actualTicks,omitempty"`
	CheckedAt       time.Time         `json:"checkedAt" bson:"checkedAt"`
}

// PRNGTrackingRecord is the per-game verification record.
type PRNGTrackingRecord struct {
	ID             string            `json:"id" bson:"_id"`
	GameID         string            `json:"gameId" bson:"gameId"`
	Status         PRNGStatus        `json:"status" bson:"status"`
	ServerSeedHash string            `json:"serverSeedHash" bson:"serverSeedHash"`
	ServerSeed     *string           `json:"serverSeed,omitempty" bson:"serverSeed,omitempty"`
	Verification   *VerificationData `json:"verification,omitempty" bson:"verification,omitempty"`
	UpdatedAt      time.Time         `json:"updatedAt" bson:"updatedAt"`
}
