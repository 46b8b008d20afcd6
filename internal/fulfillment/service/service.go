package service

import (
	"context"
	"strings"
	"time"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/engine"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/ledger"
)

// Nomes de operação usados em OnRejected
const (
	OpLoserClaim    = "loser_claim"
	OpWinnerConfirm = "winner_confirm"
	OpDetails       = "details"
	OpRecompute     = "recompute"
)

// LoserClaimInput é a entrada de LoserClaimFulfilled
type LoserClaimInput struct {
	BetID            string
	UserID           string
	ProofURL         string
	ProofDescription string
}

// WinnerConfirmInput é a entrada de WinnerConfirmFulfilled
type WinnerConfirmInput struct {
	BetID    string
	WinnerID string
	Notes    string
}

// ConfirmResult descreve o estado após uma confirmação.
// Change só é preenchido se o status agregado mudou.
type ConfirmResult struct {
	Confirmation      domain.Confirmation
	Status            domain.FulfillmentStatus
	ConfirmationCount int
	TotalWinners      int
	Change            *domain.StatusChange
}

// RecomputeResult descreve o estado após um recálculo explícito
type RecomputeResult struct {
	Status            domain.FulfillmentStatus
	ConfirmationCount int
	TotalWinners      int
	Change            *domain.StatusChange
}

// Service orquestra claims de perdedores e confirmações de vencedores.
// Cada operação roda numa única transação do store, com a aposta travada.
// Os callbacks são opcionais e servem para métricas.
type Service struct {
	store domain.FulfillmentStore

	Now func() time.Time

	OnLoserClaim   func()
	OnConfirmation func()
	OnTransition   func(from, to domain.FulfillmentStatus)
	OnRejected     func(op string, err error)
}

// New cria o serviço sobre um store transacional
func New(store domain.FulfillmentStore) *Service {
	return &Service{
		store: store,
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// LoserClaimFulfilled registra que um perdedor declarou ter cumprido o stake.
// É informativo: não altera o status agregado.
func (s *Service) LoserClaimFulfilled(ctx context.Context, in LoserClaimInput) (domain.LoserClaim, error) {
	var claim domain.LoserClaim
	err := s.store.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		bet, err := eligibleBet(ctx, tx, in.BetID)
		if err != nil {
			return err
		}
		p, err := ledger.New(tx).Of(ctx, bet.ID, in.UserID)
		if err != nil {
			return err
		}
		if p.Status != domain.ParticipationLost {
			return domain.ErrNotLoser
		}

		claim = bet.ApplyLoserClaim(in.UserID, s.Now(), in.ProofURL, in.ProofDescription)
		return tx.UpdateLoserClaim(ctx, claim)
	})
	if err != nil {
		s.rejected(OpLoserClaim, err)
		return domain.LoserClaim{}, err
	}
	if s.OnLoserClaim != nil {
		s.OnLoserClaim()
	}
	return claim, nil
}

// WinnerConfirmFulfilled grava a confirmação do vencedor e recalcula o status agregado.
func (s *Service) WinnerConfirmFulfilled(ctx context.Context, in WinnerConfirmInput) (ConfirmResult, error) {
	var res ConfirmResult
	err := s.store.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		bet, err := eligibleBet(ctx, tx, in.BetID)
		if err != nil {
			return err
		}
		led := ledger.New(tx)
		p, err := led.Of(ctx, bet.ID, in.WinnerID)
		if err != nil {
			return err
		}
		if p.Status != domain.ParticipationWon {
			return domain.ErrNotWinner
		}

		// caminho rápido; a constraint única no store é a garantia real
		exists, err := tx.HasConfirmation(ctx, bet.ID, in.WinnerID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyConfirmed
		}

		now := s.Now()
		conf := domain.Confirmation{
			BetID:       bet.ID,
			WinnerID:    in.WinnerID,
			ConfirmedAt: now,
			Notes:       strings.TrimSpace(in.Notes),
		}
		if err := tx.InsertConfirmation(ctx, &conf); err != nil {
			return err
		}

		rc, err := s.recompute(ctx, tx, led, bet, now)
		if err != nil {
			return err
		}
		res = ConfirmResult{
			Confirmation:      conf,
			Status:            rc.Status,
			ConfirmationCount: rc.ConfirmationCount,
			TotalWinners:      rc.TotalWinners,
			Change:            rc.Change,
		}
		return nil
	})
	if err != nil {
		s.rejected(OpWinnerConfirm, err)
		return ConfirmResult{}, err
	}
	if s.OnConfirmation != nil {
		s.OnConfirmation()
	}
	s.transitioned(res.Change)
	return res, nil
}

// Recompute recalcula o status de uma aposta sem nova confirmação.
// Usado quando a aposta acaba de ser resolvida (ex.: aposta sem vencedores).
func (s *Service) Recompute(ctx context.Context, betID string) (RecomputeResult, error) {
	var res RecomputeResult
	err := s.store.WithTx(ctx, func(tx domain.FulfillmentTx) error {
		bet, err := eligibleBet(ctx, tx, betID)
		if err != nil {
			return err
		}
		res, err = s.recompute(ctx, tx, ledger.New(tx), bet, s.Now())
		return err
	})
	if err != nil {
		s.rejected(OpRecompute, err)
		return RecomputeResult{}, err
	}
	s.transitioned(res.Change)
	return res, nil
}

// GetFulfillmentDetails devolve um snapshot somente leitura
func (s *Service) GetFulfillmentDetails(ctx context.Context, betID string) (domain.FulfillmentDetails, error) {
	var d domain.FulfillmentDetails
	err := s.store.View(ctx, func(tx domain.FulfillmentTx) error {
		bet, err := tx.GetBet(ctx, betID, false)
		if err != nil {
			return err
		}
		if !bet.StakeFulfillmentRequired {
			return domain.ErrFulfillmentNotEnabled
		}
		parts, err := ledger.New(tx).ByBet(ctx, bet.ID)
		if err != nil {
			return err
		}
		confs, err := tx.ConfirmationsByBet(ctx, bet.ID)
		if err != nil {
			return err
		}
		d = buildDetails(bet, parts, confs)
		return nil
	})
	if err != nil {
		s.rejected(OpDetails, err)
		return domain.FulfillmentDetails{}, err
	}
	return d, nil
}

// recompute roda o engine e persiste o resultado se mudou. Precisa da aposta travada.
func (s *Service) recompute(ctx context.Context, tx domain.FulfillmentTx, led *ledger.Ledger, bet *domain.Bet, now time.Time) (RecomputeResult, error) {
	winners, err := led.WinnersOf(ctx, bet.ID)
	if err != nil {
		return RecomputeResult{}, err
	}
	count, err := tx.CountConfirmations(ctx, bet.ID)
	if err != nil {
		return RecomputeResult{}, err
	}

	r := engine.Compute(len(winners), count, bet.AllWinnersConfirmedAt, now)
	out := RecomputeResult{Status: r.Status, ConfirmationCount: count, TotalWinners: len(winners)}
	// o status agregado só avança; dados inconsistentes não fazem a aposta regredir
	if r.Status.Before(bet.FulfillmentStatus) {
		out.Status = bet.FulfillmentStatus
		return out, nil
	}
	if !r.Changed(bet) {
		return out, nil
	}

	if err := tx.UpdateFulfillmentStatus(ctx, bet.ID, r.Status, r.AllWinnersConfirmedAt); err != nil {
		return RecomputeResult{}, err
	}
	if r.Status != bet.FulfillmentStatus {
		out.Change = &domain.StatusChange{
			BetID:                 bet.ID,
			From:                  bet.FulfillmentStatus,
			To:                    r.Status,
			ConfirmationCount:     count,
			TotalWinners:          len(winners),
			AllWinnersConfirmedAt: r.AllWinnersConfirmedAt,
			ChangedAt:             now,
		}
	}
	bet.FulfillmentStatus = r.Status
	bet.AllWinnersConfirmedAt = r.AllWinnersConfirmedAt
	return out, nil
}

// eligibleBet trava a aposta e valida as pré-condições comuns
func eligibleBet(ctx context.Context, tx domain.FulfillmentTx, betID string) (*domain.Bet, error) {
	bet, err := tx.GetBet(ctx, betID, true)
	if err != nil {
		return nil, err
	}
	if err := bet.CheckEligible(); err != nil {
		return nil, err
	}
	return bet, nil
}

func buildDetails(bet *domain.Bet, parts []domain.Participation, confs []domain.Confirmation) domain.FulfillmentDetails {
	confirmed := make(map[string]struct{}, len(confs))
	for _, c := range confs {
		confirmed[c.WinnerID] = struct{}{}
	}

	winners := ledger.Filter(parts, domain.ParticipationWon)
	losers := ledger.Filter(parts, domain.ParticipationLost)

	d := domain.FulfillmentDetails{
		BetID:                            bet.ID,
		Title:                            bet.Title,
		StakeDescription:                 bet.StakeDescription,
		FulfillmentStatus:                bet.FulfillmentStatus,
		TotalWinners:                     len(winners),
		TotalLosers:                      len(losers),
		ConfirmationCount:                len(confs),
		LoserClaimedFulfilledAt:          bet.LoserClaimedFulfilledAt,
		LoserClaimedBy:                   bet.LoserClaimedBy,
		LoserFulfillmentProofURL:         bet.LoserFulfillmentProofURL,
		LoserFulfillmentProofDescription: bet.LoserFulfillmentProofDescription,
		AllWinnersConfirmedAt:            bet.AllWinnersConfirmedAt,
		Winners:                          make([]domain.WinnerConfirmation, 0, len(winners)),
		Losers:                           make([]string, 0, len(losers)),
		Confirmations:                    confs,
	}
	if d.Confirmations == nil {
		d.Confirmations = []domain.Confirmation{}
	}
	for _, w := range winners {
		_, ok := confirmed[w.UserID]
		d.Winners = append(d.Winners, domain.WinnerConfirmation{UserID: w.UserID, Confirmed: ok})
	}
	for _, l := range losers {
		d.Losers = append(d.Losers, l.UserID)
	}
	return d
}

func (s *Service) rejected(op string, err error) {
	if s.OnRejected != nil {
		s.OnRejected(op, err)
	}
}

func (s *Service) transitioned(c *domain.StatusChange) {
	if c != nil && s.OnTransition != nil {
		s.OnTransition(c.From, c.To)
	}
}
