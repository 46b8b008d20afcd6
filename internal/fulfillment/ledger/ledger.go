// Package ledger é a visão somente leitura das participações de uma aposta.
// As participações são criadas e finalizadas (WON/LOST) pelo subsistema de resolução.
package ledger

import (
	"context"
	"fmt"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

// Source é qualquer coisa capaz de listar participações por aposta
type Source interface {
	ParticipationsByBet(ctx context.Context, betID string) ([]domain.Participation, error)
}

type Ledger struct {
	src Source
}

func New(src Source) *Ledger { return &Ledger{src: src} }

// ByBet lista todas as participações da aposta
func (l *Ledger) ByBet(ctx context.Context, betID string) ([]domain.Participation, error) {
	parts, err := l.src.ParticipationsByBet(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return parts, nil
}

// ByStatus lista as participações da aposta com o status informado
func (l *Ledger) ByStatus(ctx context.Context, betID string, status domain.ParticipationStatus) ([]domain.Participation, error) {
	parts, err := l.ByBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	return Filter(parts, status), nil
}

func (l *Ledger) WinnersOf(ctx context.Context, betID string) ([]domain.Participation, error) {
	return l.ByStatus(ctx, betID, domain.ParticipationWon)
}

func (l *Ledger) LosersOf(ctx context.Context, betID string) ([]domain.Participation, error) {
	return l.ByStatus(ctx, betID, domain.ParticipationLost)
}

// Of retorna a participação do usuário ou ErrNotParticipant
func (l *Ledger) Of(ctx context.Context, betID, userID string) (*domain.Participation, error) {
	parts, err := l.ByBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	for i := range parts {
		if parts[i].UserID == userID {
			return &parts[i], nil
		}
	}
	return nil, domain.ErrNotParticipant
}

// Filter mantém a ordem original
func Filter(parts []domain.Participation, status domain.ParticipationStatus) []domain.Participation {
	out := make([]domain.Participation, 0, len(parts))
	for _, p := range parts {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}
