package domain

import "time"

// MetaLiveStateKey is the well-known Meta key holding the current
// authoritative game snapshot plus inferred phase.
const MetaLiveStateKey = "live_state"

// Meta is a process-wide singleton keyed by Key, used for the live_state
// record consumed by GET /api/live.
type Meta struct {
	Key       string      `json:"key" bson:"_id"`
	Value     interface{} `json:"value" bson:"value"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// LiveState is the shape stored under the live_state Meta key.
type LiveState struct {
	GameID    string    `json:"gameId" bson:"gameId"`
	Phase     Phase     `json:"phase" bson:"phase"`
	Tick      int       `json:"tick" bson:"tick"`
	Price     string    `json:"price" bson:"price"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// StatusCheck is a lightweight liveness row used by GET /api/health style
// heartbeats, ordered by Timestamp desc.
type StatusCheck struct {
	ID        string    `json:"id" bson:"_id"`
	Status    string    `json:"status" bson:"status"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
