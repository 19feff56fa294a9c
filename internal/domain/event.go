package domain

import "time"

// ArchivedEvent is the raw event archive, TTL'd at 30 days.
type ArchivedEvent struct {
	ID         string      `json:"id" bson:"_id"`
	Type       string      `json:"type" bson:"type"`
	Payload    interface{} `json:"payload" bson:"payload"`
	Validation *Validation `json:"validation,omitempty" bson:"validation,omitempty"`
	CreatedAt  time.Time   `json:"createdAt" bson:"createdAt"`
}

// ConnectionEventType is the kind of upstream session lifecycle transition.
type ConnectionEventType string

const (
	ConnEventConnected           ConnectionEventType = "CONNECTED"
	ConnEventDisconnected        ConnectionEventType = "DISCONNECTED"
	ConnEventError               ConnectionEventType = "ERROR"
	ConnEventMaxReconnectReached ConnectionEventType = "MAX_RECONNECTS_REACHED"
)

// ConnectionEvent records an upstream session lifecycle transition, TTL'd
// at 30 days.
type ConnectionEvent struct {
	ID        string              `json:"id" bson:"_id"`
	EventType ConnectionEventType `json:"eventType" bson:"eventType"`
	Reason    string              `json:"reason,omitempty" bson:"reason,omitempty"`
	Attempt   int                 `json:"attempt,omitempty" bson:"attempt,omitempty"`
	Message   string              `json:"message,omitempty" bson:"message,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}
