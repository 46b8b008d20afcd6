package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/domain"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/dto"
	"github.com/radieske/social-bet-fulfillment/internal/fulfillment/service"
)

// FulfillmentService é o que a API precisa do serviço de fulfillment
type FulfillmentService interface {
	LoserClaimFulfilled(ctx context.Context, in service.LoserClaimInput) (domain.LoserClaim, error)
	WinnerConfirmFulfilled(ctx context.Context, in service.WinnerConfirmInput) (service.ConfirmResult, error)
	GetFulfillmentDetails(ctx context.Context, betID string) (domain.FulfillmentDetails, error)
}

// DetailsCache é o cache de leitura dos detalhes (Redis em produção)
type DetailsCache interface {
	// Get devolve também a versão da entrada; Set só vale para essa versão,
	// então um snapshot lido antes de um Invalidate nunca volta a ser servido
	Get(ctx context.Context, betID string) (domain.FulfillmentDetails, bool, int64, error)
	Set(ctx context.Context, d domain.FulfillmentDetails, version int64) error
	Invalidate(ctx context.Context, betID string) error
}

// Events recebe os eventos produzidos pelas mutações depois do commit
type Events interface {
	StatusChanged(c *domain.StatusChange)
	LoserClaimed(c domain.LoserClaim)
}

// API expõe os endpoints REST de fulfillment.
// Cache, Events e WS são opcionais.
type API struct {
	Log     *zap.Logger
	Service FulfillmentService
	Cache   DetailsCache
	Events  Events
	WS      http.Handler // feed ao vivo em /ws
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/bets/{id}/fulfillment", a.getDetails)                    // Detalhes do fulfillment
	r.Post("/bets/{id}/fulfillment/loser-claim", a.loserClaim)       // Perdedor declara que cumpriu
	r.Post("/bets/{id}/fulfillment/winner-confirm", a.winnerConfirm) // Vencedor confirma recebimento
	if a.WS != nil {
		r.Handle("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz erros de domínio em status HTTP
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		status = http.StatusConflict
	case domain.IsRejection(err):
		status = http.StatusUnprocessableEntity
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("fulfillment request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, dto.ErrorResponse{Error: msg, Code: domain.Reason(err)})
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "invalid_request"})
}

// decode lê o corpo JSON e valida as tags
func decode[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, dst *T) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return (*dst).Validate()
}

func (a *API) loserClaim(w http.ResponseWriter, r *http.Request) {
	var req dto.LoserClaimRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	betID := chi.URLParam(r, "id")

	claim, err := a.Service.LoserClaimFulfilled(r.Context(), service.LoserClaimInput{
		BetID:            betID,
		UserID:           req.UserID,
		ProofURL:         req.ProofURL,
		ProofDescription: req.ProofDescription,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.invalidate(r.Context(), betID)
	if a.Events != nil {
		a.Events.LoserClaimed(claim)
	}
	writeJSON(w, http.StatusOK, claim)
}

func (a *API) winnerConfirm(w http.ResponseWriter, r *http.Request) {
	var req dto.WinnerConfirmRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	betID := chi.URLParam(r, "id")

	res, err := a.Service.WinnerConfirmFulfilled(r.Context(), service.WinnerConfirmInput{
		BetID:    betID,
		WinnerID: req.UserID,
		Notes:    req.Notes,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.invalidate(r.Context(), betID)
	if a.Events != nil {
		a.Events.StatusChanged(res.Change)
	}
	writeJSON(w, http.StatusCreated, dto.WinnerConfirmResponse{
		Confirmation:      res.Confirmation,
		FulfillmentStatus: res.Status,
		ConfirmationCount: res.ConfirmationCount,
		TotalWinners:      res.TotalWinners,
		StatusChanged:     res.Change != nil,
	})
}

// getDetails retorna os detalhes, preferencialmente do cache
func (a *API) getDetails(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")

	var (
		version   int64
		cacheable bool
	)
	if a.Cache != nil {
		d, ok, v, err := a.Cache.Get(r.Context(), betID)
		switch {
		case err != nil:
			a.Log.Warn("details cache get failed", zap.String("bet_id", betID), zap.Error(err))
		case ok:
			writeJSON(w, http.StatusOK, d)
			return
		default:
			version, cacheable = v, true
		}
	}

	d, err := a.Service.GetFulfillmentDetails(r.Context(), betID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if cacheable {
		if err := a.Cache.Set(r.Context(), d, version); err != nil {
			a.Log.Warn("details cache set failed", zap.String("bet_id", betID), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) invalidate(ctx context.Context, betID string) {
	if a.Cache == nil {
		return
	}
	if err := a.Cache.Invalidate(ctx, betID); err != nil {
		a.Log.Warn("details cache invalidate failed", zap.String("bet_id", betID), zap.Error(err))
	}
}
