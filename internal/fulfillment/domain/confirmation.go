package domain

import "time"

// Confirmation é criada uma única vez por vencedor e nunca é alterada.
type Confirmation struct {
	ID          string    `json:"id"`
	BetID       string    `json:"betId"`
	WinnerID    string    `json:"winnerId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
	Notes       string    `json:"notes,omitempty"`
}
