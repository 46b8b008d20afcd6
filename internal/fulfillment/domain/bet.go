package domain

import (
	"strings"
	"time"
)

// BetStatus representa o ciclo de vida da aposta
type BetStatus string

const (
	BetOpen      BetStatus = "OPEN"
	BetResolved  BetStatus = "RESOLVED"
	BetCancelled BetStatus = "CANCELLED"
)

// FulfillmentStatus é o status agregado derivado das confirmações dos vencedores.
// Nunca é definido diretamente por uma ação de usuário.
type FulfillmentStatus string

const (
	FulfillmentPending            FulfillmentStatus = "PENDING"
	FulfillmentPartiallyFulfilled FulfillmentStatus = "PARTIALLY_FULFILLED"
	FulfillmentFulfilled          FulfillmentStatus = "FULFILLED"
)

// rank ordena os status para checar progressão monotônica
func (s FulfillmentStatus) rank() int {
	switch s {
	case FulfillmentPartiallyFulfilled:
		return 1
	case FulfillmentFulfilled:
		return 2
	default:
		return 0
	}
}

// Before indica se s vem antes de other na progressão PENDING -> PARTIALLY_FULFILLED -> FULFILLED
func (s FulfillmentStatus) Before(other FulfillmentStatus) bool { return s.rank() < other.rank() }

// Bet é o subconjunto da aposta relevante para o rastreio de fulfillment.
type Bet struct {
	ID                       string
	Title                    string
	StakeDescription         string
	Status                   BetStatus
	Outcome                  string // vazio enquanto não resolvida
	StakeFulfillmentRequired bool
	FulfillmentStatus        FulfillmentStatus

	LoserClaimedFulfilledAt          *time.Time
	LoserClaimedBy                   string
	LoserFulfillmentProofURL         string
	LoserFulfillmentProofDescription string

	AllWinnersConfirmedAt *time.Time
}

// CheckEligible valida as pré-condições comuns a claim e confirmação
func (b *Bet) CheckEligible() error {
	if b.Status != BetResolved {
		return ErrBetNotResolved
	}
	if !b.StakeFulfillmentRequired {
		return ErrFulfillmentNotEnabled
	}
	if b.Outcome == "" {
		return ErrOutcomeMissing
	}
	return nil
}

// ApplyLoserClaim registra o claim do perdedor. Campos de prova só são
// sobrescritos por valores não vazios.
func (b *Bet) ApplyLoserClaim(userID string, at time.Time, proofURL, proofDescription string) LoserClaim {
	b.LoserClaimedFulfilledAt = &at
	b.LoserClaimedBy = userID
	if v := strings.TrimSpace(proofURL); v != "" {
		b.LoserFulfillmentProofURL = v
	}
	if v := strings.TrimSpace(proofDescription); v != "" {
		b.LoserFulfillmentProofDescription = v
	}
	return LoserClaim{
		BetID:            b.ID,
		UserID:           userID,
		ClaimedAt:        at,
		ProofURL:         b.LoserFulfillmentProofURL,
		ProofDescription: b.LoserFulfillmentProofDescription,
	}
}

// LoserClaim é o estado gravado na aposta após um claim
type LoserClaim struct {
	BetID            string    `json:"betId"`
	UserID           string    `json:"userId"`
	ClaimedAt        time.Time `json:"claimedAt"`
	ProofURL         string    `json:"proofUrl,omitempty"`
	ProofDescription string    `json:"proofDescription,omitempty"`
}
