package events

import (
	"encoding/json"
	"time"
)

// Tipos de evento publicados no tópico "bet_fulfillment"
const (
	TypeFulfillmentStatusChanged = "fulfillment.status_changed"
	TypeLoserClaimedFulfillment  = "fulfillment.loser_claimed"
)

// FulfillmentEnvelope embrulha qualquer evento de fulfillment para que os
// consumidores possam discriminar pelo campo Type num único tópico.
type FulfillmentEnvelope struct {
	Type     string          `json:"type"`
	BetID    string          `json:"bet_id"`
	Payload  json.RawMessage `json:"payload"`
	TsUnixMs int64           `json:"ts_unix_ms"`
}

// FulfillmentStatusChanged é emitido quando o status agregado de uma aposta muda.
type FulfillmentStatusChanged struct {
	BetID                 string     `json:"bet_id"`
	PreviousStatus        string     `json:"previous_status"`
	Status                string     `json:"status"` // PENDING | PARTIALLY_FULFILLED | FULFILLED
	ConfirmationCount     int        `json:"confirmation_count"`
	TotalWinners          int        `json:"total_winners"`
	AllWinnersConfirmedAt *time.Time `json:"all_winners_confirmed_at,omitempty"`
	Ts                    time.Time  `json:"ts"`
}

// LoserClaimedFulfillment é informativo: um perdedor declarou ter cumprido o stake.
type LoserClaimedFulfillment struct {
	BetID            string    `json:"bet_id"`
	UserID           string    `json:"user_id"`
	ProofURL         string    `json:"proof_url,omitempty"`
	ProofDescription string    `json:"proof_description,omitempty"`
	ClaimedAt        time.Time `json:"claimed_at"`
}
