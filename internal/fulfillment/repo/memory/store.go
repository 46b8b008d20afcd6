// Package memory fornece um store de fulfillment em memória.
// Cada transação segura um lock global e trabalha numa cópia que substitui o estado no commit.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

var errReadOnly = errors.New("memory store: write in read-only transaction")

type state struct {
	bets          map[string]domain.Bet
	participation map[string][]domain.Participation // betID -> participações
	confirmations map[string][]domain.Confirmation  // betID -> confirmações
}

func (s *state) clone() *state {
	out := &state{
		bets:          make(map[string]domain.Bet, len(s.bets)),
		participation: make(map[string][]domain.Participation, len(s.participation)),
		confirmations: make(map[string][]domain.Confirmation, len(s.confirmations)),
	}
	for k, v := range s.bets {
		out.bets[k] = v
	}
	for k, v := range s.participation {
		out.participation[k] = append([]domain.Participation(nil), v...)
	}
	for k, v := range s.confirmations {
		out.confirmations[k] = append([]domain.Confirmation(nil), v...)
	}
	return out
}

// Store implementa domain.FulfillmentStore em memória
type Store struct {
	mu sync.RWMutex
	st *state
}

func NewStore() *Store {
	return &Store{st: &state{
		bets:          make(map[string]domain.Bet),
		participation: make(map[string][]domain.Participation),
		confirmations: make(map[string][]domain.Confirmation),
	}}
}

// PutBet cria ou substitui uma aposta (papel do subsistema de resolução)
func (s *Store) PutBet(b domain.Bet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.FulfillmentStatus == "" {
		b.FulfillmentStatus = domain.FulfillmentPending
	}
	s.st.bets[b.ID] = b
}

// PutParticipation cria ou substitui a participação do usuário na aposta
func (s *Store) PutParticipation(p domain.Participation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	parts := s.st.participation[p.BetID]
	for i := range parts {
		if parts[i].UserID == p.UserID {
			parts[i] = p
			return
		}
	}
	s.st.participation[p.BetID] = append(parts, p)
}

// Bet devolve uma cópia da aposta gravada
func (s *Store) Bet(betID string) (domain.Bet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.st.bets[betID]
	return b, ok
}

// ConfirmationCount conta as confirmações gravadas
func (s *Store) ConfirmationCount(betID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.confirmations[betID])
}

func (s *Store) WithTx(ctx context.Context, fn func(tx domain.FulfillmentTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(tx domain.FulfillmentTx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&tx{st: s.st, readOnly: true})
}

type tx struct {
	st       *state
	readOnly bool
}

func (t *tx) GetBet(_ context.Context, betID string, _ bool) (*domain.Bet, error) {
	b, ok := t.st.bets[betID]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	return &b, nil
}

func (t *tx) ParticipationsByBet(_ context.Context, betID string) ([]domain.Participation, error) {
	return append([]domain.Participation(nil), t.st.participation[betID]...), nil
}

func (t *tx) ConfirmationsByBet(_ context.Context, betID string) ([]domain.Confirmation, error) {
	return append([]domain.Confirmation(nil), t.st.confirmations[betID]...), nil
}

func (t *tx) HasConfirmation(_ context.Context, betID, winnerID string) (bool, error) {
	for _, c := range t.st.confirmations[betID] {
		if c.WinnerID == winnerID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) InsertConfirmation(ctx context.Context, c *domain.Confirmation) error {
	if t.readOnly {
		return errReadOnly
	}
	// mesma garantia da constraint única (bet_id, winner_id) do Postgres
	if dup, _ := t.HasConfirmation(ctx, c.BetID, c.WinnerID); dup {
		return domain.ErrAlreadyConfirmed
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	t.st.confirmations[c.BetID] = append(t.st.confirmations[c.BetID], *c)
	return nil
}

func (t *tx) CountConfirmations(_ context.Context, betID string) (int, error) {
	return len(t.st.confirmations[betID]), nil
}

func (t *tx) UpdateLoserClaim(_ context.Context, claim domain.LoserClaim) error {
	if t.readOnly {
		return errReadOnly
	}
	b, ok := t.st.bets[claim.BetID]
	if !ok {
		return domain.ErrBetNotFound
	}
	at := claim.ClaimedAt
	b.LoserClaimedFulfilledAt = &at
	b.LoserClaimedBy = claim.UserID
	b.LoserFulfillmentProofURL = claim.ProofURL
	b.LoserFulfillmentProofDescription = claim.ProofDescription
	t.st.bets[claim.BetID] = b
	return nil
}

func (t *tx) UpdateFulfillmentStatus(_ context.Context, betID string, status domain.FulfillmentStatus, allWinnersConfirmedAt *time.Time) error {
	if t.readOnly {
		return errReadOnly
	}
	b, ok := t.st.bets[betID]
	if !ok {
		return domain.ErrBetNotFound
	}
	b.FulfillmentStatus = status
	b.AllWinnersConfirmedAt = allWinnersConfirmedAt
	t.st.bets[betID] = b
	return nil
}
