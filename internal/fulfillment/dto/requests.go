package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
)

var validate = validator.New()

// LoserClaimRequest é o corpo de POST /bets/{id}/fulfillment/loser-claim
type LoserClaimRequest struct {
	UserID           string `json:"userId" validate:"required,max=64"`
	ProofURL         string `json:"proofUrl" validate:"omitempty,max=2048"`
	ProofDescription string `json:"proofDescription" validate:"omitempty,max=2000"`
}

func (r LoserClaimRequest) Validate() error { return validate.Struct(r) }

// WinnerConfirmRequest é o corpo de POST /bets/{id}/fulfillment/winner-confirm
type WinnerConfirmRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}

func (r WinnerConfirmRequest) Validate() error { return validate.Struct(r) }

// WinnerConfirmResponse devolve a confirmação e o status agregado resultante
type WinnerConfirmResponse struct {
	Confirmation      domain.Confirmation      `json:"confirmation"`
	FulfillmentStatus domain.FulfillmentStatus `json:"fulfillmentStatus"`
	ConfirmationCount int                      `json:"confirmationCount"`
	TotalWinners      int                      `json:"totalWinners"`
	StatusChanged     bool                     `json:"statusChanged"`
}

// ErrorResponse é o formato de erro da API; Code vem de domain.Reason
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
