package domain

import "errors"

var (
	ErrBetNotFound           = errors.New("bet not found")
	ErrBetNotResolved        = errors.New("bet is not resolved")
	ErrFulfillmentNotEnabled = errors.New("fulfillment tracking not enabled for this bet")
	ErrOutcomeMissing        = errors.New("bet has no outcome")
	ErrNotParticipant        = errors.New("user did not participate in this bet")
	ErrNotLoser              = errors.New("user is not a loser of this bet")
	ErrNotWinner             = errors.New("user is not a winner of this bet")
	ErrAlreadyConfirmed      = errors.New("winner has already confirmed fulfillment")
)

var reasons = []struct {
	err  error
	code string
}{
	{ErrBetNotFound, "bet_not_found"},
	{ErrBetNotResolved, "bet_not_resolved"},
	{ErrFulfillmentNotEnabled, "fulfillment_not_enabled"},
	{ErrOutcomeMissing, "outcome_missing"},
	{ErrNotParticipant, "not_participant"},
	{ErrNotLoser, "not_loser"},
	{ErrNotWinner, "not_winner"},
	{ErrAlreadyConfirmed, "already_confirmed"},
}

// Reason devolve um código estável para o erro (label de métrica e campo "code" da API).
// Erros de infraestrutura viram "internal".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return "internal"
}

// IsNotFound indica erro de aposta inexistente
func IsNotFound(err error) bool { return errors.Is(err, ErrBetNotFound) }

// IsRejection indica uma violação de regra de negócio (não deve ser retentada)
func IsRejection(err error) bool { return Reason(err) != "internal" }
