package domain

import (
	"context"
	"time"
)

// FulfillmentTx é a unidade de trabalho usada pelo serviço.
// Todas as leituras e escritas de uma operação acontecem dentro dela.
type FulfillmentTx interface {
	// GetBet retorna ErrBetNotFound se a aposta não existe; forUpdate trava a linha
	GetBet(ctx context.Context, betID string, forUpdate bool) (*Bet, error)
	ParticipationsByBet(ctx context.Context, betID string) ([]Participation, error)
	ConfirmationsByBet(ctx context.Context, betID string) ([]Confirmation, error)
	HasConfirmation(ctx context.Context, betID, winnerID string) (bool, error)
	// InsertConfirmation preenche c.ID quando vazio; violação de unicidade vira ErrAlreadyConfirmed
	InsertConfirmation(ctx context.Context, c *Confirmation) error
	CountConfirmations(ctx context.Context, betID string) (int, error)
	UpdateLoserClaim(ctx context.Context, claim LoserClaim) error
	UpdateFulfillmentStatus(ctx context.Context, betID string, status FulfillmentStatus, allWinnersConfirmedAt *time.Time) error
}

// FulfillmentStore abre unidades de trabalho
type FulfillmentStore interface {
	// WithTx executa fn numa transação; qualquer erro desfaz tudo
	WithTx(ctx context.Context, fn func(tx FulfillmentTx) error) error
	// View executa fn numa transação somente leitura
	View(ctx context.Context, fn func(tx FulfillmentTx) error) error
}
