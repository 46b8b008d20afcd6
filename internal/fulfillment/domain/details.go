package domain

import "time"

// WinnerConfirmation indica se um vencedor já confirmou o recebimento
type WinnerConfirmation struct {
	UserID    string `json:"userId"`
	Confirmed bool   `json:"confirmed"`
}

// FulfillmentDetails é um snapshot somente leitura do fulfillment de uma aposta.
type FulfillmentDetails struct {
	BetID             string            `json:"betId"`
	Title             string            `json:"title"`
	StakeDescription  string            `json:"stakeDescription"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`
	TotalWinners      int               `json:"totalWinners"`
	TotalLosers       int               `json:"totalLosers"`
	ConfirmationCount int               `json:"confirmationCount"`

	LoserClaimedFulfilledAt          *time.Time `json:"loserClaimedFulfilledAt,omitempty"`
	LoserClaimedBy                   string     `json:"loserClaimedBy,omitempty"`
	LoserFulfillmentProofURL         string     `json:"loserFulfillmentProofUrl,omitempty"`
	LoserFulfillmentProofDescription string     `json:"loserFulfillmentProofDescription,omitempty"`
	AllWinnersConfirmedAt            *time.Time `json:"allWinnersConfirmedAt,omitempty"`

	Winners       []WinnerConfirmation `json:"winners"`
	Losers        []string             `json:"losers"`
	Confirmations []Confirmation       `json:"confirmations"`
}

// StatusChange é devolvido pelas mutações quando o status agregado muda.
// Quem chama decide se publica para o pipeline de notificação.
type StatusChange struct {
	BetID                 string
	From                  FulfillmentStatus
	To                    FulfillmentStatus
	ConfirmationCount     int
	TotalWinners          int
	AllWinnersConfirmedAt *time.Time
	ChangedAt             time.Time
}
