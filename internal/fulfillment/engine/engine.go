// Package engine deriva o status agregado de fulfillment a partir do número
// de vencedores e de confirmações registradas.
package engine

import (
	"time"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

// Result é o status calculado e o instante em que todos confirmaram (nil se ainda não)
type Result struct {
	Status                domain.FulfillmentStatus
	AllWinnersConfirmedAt *time.Time
}

// Compute é pura e total. Sem vencedores a aposta já nasce FULFILLED.
// Entradas negativas contam como zero e confirmações acima do total contam como FULFILLED.
// firstFulfilledAt, quando não nil, é preservado: o timestamp marca a primeira vez
// que a aposta chegou a FULFILLED.
func Compute(totalWinners, confirmations int, firstFulfilledAt *time.Time, now time.Time) Result {
	if totalWinners < 0 {
		totalWinners = 0
	}
	if confirmations < 0 {
		confirmations = 0
	}

	switch {
	case totalWinners == 0, confirmations >= totalWinners:
		return fulfilled(firstFulfilledAt, now)
	case confirmations == 0:
		return Result{Status: domain.FulfillmentPending}
	default:
		return Result{Status: domain.FulfillmentPartiallyFulfilled}
	}
}

func fulfilled(first *time.Time, now time.Time) Result {
	at := now
	if first != nil {
		at = *first
	}
	return Result{Status: domain.FulfillmentFulfilled, AllWinnersConfirmedAt: &at}
}

// Changed compara o resultado com o que está persistido na aposta
func (r Result) Changed(b *domain.Bet) bool {
	if r.Status != b.FulfillmentStatus {
		return true
	}
	switch {
	case r.AllWinnersConfirmedAt == nil && b.AllWinnersConfirmedAt == nil:
		return false
	case r.AllWinnersConfirmedAt == nil || b.AllWinnersConfirmedAt == nil:
		return true
	default:
		return !r.AllWinnersConfirmedAt.Equal(*b.AllWinnersConfirmedAt)
	}
}
