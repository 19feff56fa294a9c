package ingest

import (
	"time"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

// OutboundFrame is the single wire envelope for every normalized event the
// broadcaster fans out (spec.md §4.3/§6). Fields irrelevant to a given Type
// are left zero and omitted from the JSON encoding, so each Type's actual
// wire shape matches the subset of fields the router populated for it.
type OutboundFrame struct {
	Schema string `json:"schema"`
	Type   string `json:"type"`
	TS     time.Time `json:"ts"`

	GameID string     `json:"gameId,omitempty"`
	Tick   int        `json:"tick,omitempty"`
	Price  string     `json:"price,omitempty"`
	Phase  domain.Phase `json:"phase,omitempty"`

	PlayerID  string `json:"playerId,omitempty"`
	TradeType string `json:"tradeType,omitempty"`
	TickIndex int    `json:"tickIndex,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Qty       string `json:"qty,omitempty"`

	Event string `json:"event,omitempty"`

	FromPrice string `json:"fromPrice,omitempty"`
	ToPrice   string `json:"toPrice,omitempty"`
	Ratio     string `json:"ratio,omitempty"`

	EndPrice string `json:"endPrice,omitempty"`

	Validation *domain.Validation `json:"validation,omitempty"`
}

const envelopeSchemaVersion = "v1"

func newFrame(typ string) OutboundFrame {
	return OutboundFrame{Schema: envelopeSchemaVersion, Type: typ, TS: time.Now().UTC()}
}
