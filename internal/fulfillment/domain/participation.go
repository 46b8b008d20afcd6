package domain

import "time"

// ParticipationStatus é atribuído na resolução (fora deste serviço)
type ParticipationStatus string

const (
	ParticipationActive    ParticipationStatus = "ACTIVE"
	ParticipationWon       ParticipationStatus = "WON"
	ParticipationLost      ParticipationStatus = "LOST"
	ParticipationCancelled ParticipationStatus = "CANCELLED"
)

// Participation: no máximo uma por (aposta, usuário)
type Participation struct {
	ID        string
	BetID     string
	UserID    string
	Status    ParticipationStatus
	CreatedAt time.Time
}
